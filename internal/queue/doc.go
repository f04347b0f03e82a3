// Package queue persists the package ingest pipeline in SQLite. Items move
// through status transitions driven by the workflow manager; rollback
// transitions return interrupted items to the start of their current stage so
// a restarted daemon can resume cleanly.
package queue
