package workflow

import (
	"context"

	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  queue.Stats
	StageHealth map[string]stage.Health
	Watermarks  map[string]int64
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	stageSet := append([]pipelineStage(nil), m.stages...)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if m.tracking != nil {
		if marks, err := m.tracking.Watermarks(ctx); err == nil {
			summary.Watermarks = map[string]int64{
				"mapping": marks.Mapping,
				"layer1":  marks.Layer1,
				"layer2":  marks.Layer2,
			}
		}
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		copied := *lastItem
		summary.LastItem = &copied
	}
	return summary
}

// Healthy reports whether every configured stage passes its health check.
func (m *Manager) Healthy(ctx context.Context) (bool, []stage.Health) {
	m.mu.RLock()
	stageSet := append([]pipelineStage(nil), m.stages...)
	m.mu.RUnlock()

	ready := true
	checks := make([]stage.Health, 0, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		check := stg.handler.HealthCheck(ctx)
		if !check.Ready {
			ready = false
		}
		checks = append(checks, check)
	}
	return ready, checks
}
