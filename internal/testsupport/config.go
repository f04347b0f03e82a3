// Package testsupport provides shared helpers for package-level tests:
// temp-dir configs, store construction, and ADI package fixtures.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"adiengine/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Every directory exists when the helper returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(base, "input")
	cfg.Paths.NonMappedDir = filepath.Join(base, "nonmapped")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfg.Paths.FailedDir = filepath.Join(base, "failed")
	cfg.Paths.ImageDir = filepath.Join(base, "images")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Provider.BaseURL = "http://127.0.0.1:0"
	cfg.Provider.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	for _, dir := range []string{
		cfg.Paths.InputDir,
		cfg.Paths.NonMappedDir,
		cfg.Paths.WorkDir,
		cfg.Paths.OutputDir,
		cfg.Paths.ArchiveDir,
		cfg.Paths.FailedDir,
		cfg.Paths.ImageDir,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	return &cfg
}

// WithProvider points the config at a test provider endpoint.
func WithProvider(baseURL, apiKey string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Provider.BaseURL = baseURL
		cfg.Provider.APIKey = apiKey
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
