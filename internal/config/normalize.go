package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizePolicy()
	c.normalizeEnrichment()
	c.normalizeTracker()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
		def   string
	}{
		{"paths.input_dir", &c.Paths.InputDir, defaultInputDir},
		{"paths.non_mapped_dir", &c.Paths.NonMappedDir, defaultNonMappedDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.archive_dir", &c.Paths.ArchiveDir, defaultArchiveDir},
		{"paths.failed_dir", &c.Paths.FailedDir, defaultFailedDir},
		{"paths.image_dir", &c.Paths.ImageDir, defaultImageDir},
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeProvider() {
	if key := os.Getenv("PROVIDER_API_KEY"); key != "" && strings.TrimSpace(c.Provider.APIKey) == "" {
		c.Provider.APIKey = key
	}
	c.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(c.Provider.BaseURL), "/")
	if c.Provider.MappingsPageLimit <= 0 {
		c.Provider.MappingsPageLimit = defaultMappingsPageLimit
	}
	if c.Provider.LayerPageLimit <= 0 {
		c.Provider.LayerPageLimit = defaultLayerPageLimit
	}
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = defaultProviderTimeout
	}
}

func (c *Config) normalizePolicy() {
	if c.Policy.FailedToMapRetryDays <= 0 {
		c.Policy.FailedToMapRetryDays = defaultFailedToMapRetryDays
	}
	platforms := make([]string, 0, len(c.Policy.BlockPlatforms))
	for _, platform := range c.Policy.BlockPlatforms {
		if trimmed := strings.TrimSpace(platform); trimmed != "" {
			platforms = append(platforms, trimmed)
		}
	}
	c.Policy.BlockPlatforms = platforms
}

func (c *Config) normalizeEnrichment() {
	if c.Enrichment.MaxActors <= 0 {
		c.Enrichment.MaxActors = defaultMaxActors
	}
	if c.Enrichment.MaxProducers <= 0 {
		c.Enrichment.MaxProducers = defaultMaxProducers
	}
	if strings.TrimSpace(c.Enrichment.TVODProductMatch) == "" {
		c.Enrichment.TVODProductMatch = defaultTVODProductMatch
	}
	qualifiers := make([]string, 0, len(c.Enrichment.ImageQualifiers))
	for _, q := range c.Enrichment.ImageQualifiers {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			qualifiers = append(qualifiers, trimmed)
		}
	}
	c.Enrichment.ImageQualifiers = qualifiers
}

func (c *Config) normalizeTracker() {
	if c.Tracker.PollInterval <= 0 {
		c.Tracker.PollInterval = defaultPollInterval
	}
	if c.Tracker.SweepTimeout <= 0 {
		c.Tracker.SweepTimeout = defaultSweepTimeout
	}
	if c.Tracker.OrphanCleanupAt < 0 || c.Tracker.OrphanCleanupAt > 23 {
		c.Tracker.OrphanCleanupAt = defaultOrphanCleanupHour
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
