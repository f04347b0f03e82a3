package config

const (
	defaultInputDir             = "~/.local/share/adiengine/input"
	defaultNonMappedDir         = "~/.local/share/adiengine/nonmapped"
	defaultWorkDir              = "~/.local/share/adiengine/work"
	defaultOutputDir            = "~/.local/share/adiengine/output"
	defaultArchiveDir           = "~/.local/share/adiengine/archive"
	defaultFailedDir            = "~/.local/share/adiengine/failed"
	defaultImageDir             = "~/.local/share/adiengine/images"
	defaultDataDir              = "~/.local/share/adiengine/data"
	defaultLogDir               = "~/.local/share/adiengine/logs"
	defaultAPIBind              = "127.0.0.1:7512"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 60
	defaultMappingsPageLimit    = 100
	defaultLayerPageLimit       = 100
	defaultProviderTimeout      = 30
	defaultPollInterval         = 300
	defaultSweepTimeout         = 600
	defaultOrphanCleanupHour    = 3
	defaultFailedToMapRetryDays = 30
	defaultMaxActors            = 5
	defaultMaxProducers         = 2
	defaultTVODProductMatch     = "tvod"
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 120
	defaultQueuePollInterval    = 5
	defaultErrorRetryInterval   = 30
	defaultNotifyDedupWindow    = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:     defaultInputDir,
			NonMappedDir: defaultNonMappedDir,
			WorkDir:      defaultWorkDir,
			OutputDir:    defaultOutputDir,
			ArchiveDir:   defaultArchiveDir,
			FailedDir:    defaultFailedDir,
			ImageDir:     defaultImageDir,
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Provider: Provider{
			MappingsPageLimit: defaultMappingsPageLimit,
			LayerPageLimit:    defaultLayerPageLimit,
			RequestTimeout:    defaultProviderTimeout,
		},
		Policy: Policy{
			AllowAdultContent:    false,
			ProcessUltraHD:       true,
			AllowSDContent:       true,
			FailedToMapRetryDays: defaultFailedToMapRetryDays,
		},
		Enrichment: Enrichment{
			ImageQualifiers:  []string{"Iconic", "Box Cover", "Banner-L1"},
			DownloadImages:   true,
			MaxActors:        defaultMaxActors,
			MaxProducers:     defaultMaxProducers,
			TVODProductMatch: defaultTVODProductMatch,
		},
		Tracker: Tracker{
			PollInterval:    defaultPollInterval,
			SweepTimeout:    defaultSweepTimeout,
			OrphanCleanupAt: defaultOrphanCleanupHour,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			Ingest:             true,
			Updates:            true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
