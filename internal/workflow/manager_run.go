package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services"
)

// Start begins background processing on both lanes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	lanes := 1
	if m.sweeper != nil || m.processor != nil {
		lanes++
	}
	m.wg.Add(lanes)
	m.mu.Unlock()

	go m.runIngestLane(runCtx)
	if lanes > 1 {
		go m.runTrackerLane(runCtx)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runIngestLane(ctx context.Context) {
	defer m.wg.Done()

	laneCtx := services.WithLane(ctx, "ingest")
	logger := logging.WithContext(laneCtx, m.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.scanInputDir(laneCtx, logger); err != nil {
			logger.Warn("input directory scan failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "input_scan_failed"),
			)
		}

		if err := m.heartbeat.ReclaimStaleItems(laneCtx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			)
		}

		item, err := m.store.NextForStatuses(laneCtx, m.statusOrder...)
		if err != nil {
			m.handleNextItemError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(laneCtx, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
		m.updateQueueGauges(laneCtx)
	}
}

func (m *Manager) handleNextItemError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next queue item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) updateQueueGauges(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return
	}
	inFlight := 0
	for status, count := range stats.ByStatus {
		if queue.IsProcessing(status) {
			inFlight += count
		}
	}
	m.metrics.PackagesInQueue.Set(float64(inFlight))
	m.metrics.PackagesWaiting.Set(float64(stats.Waiting))
}
