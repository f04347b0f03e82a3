// Package daemon hosts the long-running engine process: the workflow
// manager, the single-instance lock, and the HTTP API used by the CLI and
// by monitoring.
package daemon
