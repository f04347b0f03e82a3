package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adiengine/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adiengine.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[provider]
base_url = "https://api.example.com/"
api_key = "test-key"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Provider.BaseURL != "https://api.example.com" {
		t.Fatalf("base url = %q, want trailing slash trimmed", cfg.Provider.BaseURL)
	}
	if cfg.Provider.MappingsPageLimit <= 0 || cfg.Provider.LayerPageLimit <= 0 {
		t.Fatal("page limits must default to positive values")
	}
	if cfg.Paths.InputDir == "" || cfg.Paths.DataDir == "" {
		t.Fatal("path defaults must be filled in")
	}
	if cfg.Tracker.PollInterval <= 0 {
		t.Fatal("tracker poll interval must default to a positive value")
	}
	if cfg.Logging.Format != "console" && cfg.Logging.Format != "json" {
		t.Fatalf("logging format = %q", cfg.Logging.Format)
	}
}

func TestLoadAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("PROVIDER_API_KEY", "env-key")
	path := writeConfig(t, `
[provider]
base_url = "https://api.example.com"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Fatalf("api key = %q, want the environment fallback", cfg.Provider.APIKey)
	}
}

func TestLoadMissingFileRequiresProvider(t *testing.T) {
	t.Setenv("PROVIDER_API_KEY", "")
	path := filepath.Join(t.TempDir(), "does-not-exist.toml")

	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	t.Setenv("PROVIDER_API_KEY", "")
	path := writeConfig(t, `
[provider]
base_url = "https://api.example.com"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Provider.BaseURL = "https://api.example.com"
		cfg.Provider.APIKey = "test"
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "defaults pass", mutate: func(*config.Config) {}},
		{
			name:    "input and non-mapped collide",
			mutate:  func(c *config.Config) { c.Paths.NonMappedDir = c.Paths.InputDir },
			wantErr: "non_mapped_dir",
		},
		{
			name:    "input and output collide",
			mutate:  func(c *config.Config) { c.Paths.OutputDir = c.Paths.InputDir },
			wantErr: "output_dir",
		},
		{
			name:    "heartbeat timeout too short",
			mutate:  func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval },
			wantErr: "heartbeat_timeout",
		},
		{
			name:    "unknown logging format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "unknown logging level",
			mutate:  func(c *config.Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("existing config must not be overwritten")
	}
}

func TestPollInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.PollInterval = 60
	if got := cfg.PollInterval().Seconds(); got != 60 {
		t.Fatalf("PollInterval = %vs", got)
	}
	cfg.Tracker.PollInterval = 0
	if got := cfg.PollInterval().Seconds(); got != 300 {
		t.Fatalf("zero interval = %vs, want the 300s fallback", got)
	}
}
