// Package preflight verifies the runtime environment before the daemon
// starts processing packages.
package preflight

import (
	"context"

	"adiengine/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir),
		CheckDirectoryAccess("Failed directory", cfg.Paths.FailedDir),
		CheckDirectoryAccess("Non-mapped directory", cfg.Paths.NonMappedDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, minWorkSpaceBytes),
		CheckFreeSpace("Output directory space", cfg.Paths.OutputDir, minOutputSpaceBytes),
	}

	if cfg.Provider.BaseURL != "" {
		results = append(results, CheckProviderAPI(ctx, cfg.Provider.BaseURL, cfg.Provider.APIKey))
	}

	return results
}

// AllPassed reports whether every result in the slice passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
