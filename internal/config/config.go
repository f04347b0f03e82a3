package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	InputDir     string `toml:"input_dir"`
	NonMappedDir string `toml:"non_mapped_dir"`
	WorkDir      string `toml:"work_dir"`
	OutputDir    string `toml:"output_dir"`
	ArchiveDir   string `toml:"archive_dir"`
	FailedDir    string `toml:"failed_dir"`
	ImageDir     string `toml:"image_dir"`
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Provider contains configuration for the metadata provider API.
type Provider struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	MappingsPageLimit int    `toml:"mappings_page_limit"`
	LayerPageLimit    int    `toml:"layer_page_limit"`
	RequestTimeout    int    `toml:"request_timeout"`
}

// Policy contains the ingest acceptance gates.
type Policy struct {
	AllowAdultContent    bool     `toml:"allow_adult_content"`
	ProcessUltraHD       bool     `toml:"process_ultra_hd"`
	AllowSDContent       bool     `toml:"allow_sd_content"`
	BlockPlatforms       []string `toml:"block_platforms"`
	FailedToMapRetryDays int      `toml:"failed_to_map_retry_days"`
}

// Enrichment contains tuning for the metadata merge and image selection.
type Enrichment struct {
	ImageQualifiers  []string `toml:"image_qualifiers"`
	DownloadImages   bool     `toml:"download_images"`
	MaxActors        int      `toml:"max_actors"`
	MaxProducers     int      `toml:"max_producers"`
	TVODProductMatch string   `toml:"tvod_product_match"`
}

// Tracker contains configuration for the update sweep loop.
type Tracker struct {
	PollInterval    int `toml:"poll_interval"`
	SweepTimeout    int `toml:"sweep_timeout"`
	OrphanCleanupAt int `toml:"orphan_cleanup_hour"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Ingest             bool   `toml:"ingest"`
	Updates            bool   `toml:"updates"`
	Errors             bool   `toml:"errors"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the engine.
//
// Configuration sections by subsystem:
//   - Paths: package directories, database location, and API bind address
//   - Provider: metadata provider API connection and page limits
//   - Policy: adult/UHD/SD acceptance gates, platform blocklist, retry window
//   - Enrichment: image qualifiers and merge tuning
//   - Tracker: update sweep polling and orphan cleanup
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Provider      Provider      `toml:"provider"`
	Policy        Policy        `toml:"policy"`
	Enrichment    Enrichment    `toml:"enrichment"`
	Tracker       Tracker       `toml:"tracker"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/adiengine/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("adiengine.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the supplied path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates all configured directories when missing.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.InputDir,
		c.Paths.NonMappedDir,
		c.Paths.WorkDir,
		c.Paths.OutputDir,
		c.Paths.ArchiveDir,
		c.Paths.FailedDir,
		c.Paths.ImageDir,
		c.Paths.DataDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "adiengine.db")
}

// PollInterval returns the tracker sweep interval as a duration.
func (c *Config) PollInterval() time.Duration {
	seconds := c.Tracker.PollInterval
	if seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

// ProviderTimeout returns the provider HTTP timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	seconds := c.Provider.RequestTimeout
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
