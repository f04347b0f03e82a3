// Package workflow coordinates the two processing lanes of the engine: the
// ingest lane that walks queued packages through the pipeline stages, and the
// tracker lane that periodically sweeps the provider for metadata updates and
// regenerates affected packages.
package workflow
