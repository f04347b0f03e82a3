// Package services holds the error taxonomy and context plumbing shared by
// pipeline stages and the daemon.
//
// Stage code wraps failures with one of the exported sentinel markers so the
// workflow manager can map errors onto terminal or retryable queue statuses
// without inspecting message text. Context helpers carry item, stage, lane,
// and correlation identifiers down through blocking calls so log lines stay
// attributable.
package services
