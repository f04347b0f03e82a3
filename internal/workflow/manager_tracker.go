package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"adiengine/internal/logging"
	"adiengine/internal/notifications"
	"adiengine/internal/services"
)

func (m *Manager) runTrackerLane(ctx context.Context) {
	defer m.wg.Done()

	laneCtx := services.WithLane(ctx, "tracker")
	logger := logging.WithContext(laneCtx, m.logger)

	interval := m.cfg.PollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runTrackerCycle(laneCtx, logger)
		}
	}
}

func (m *Manager) runTrackerCycle(ctx context.Context, logger *slog.Logger) {
	if m.sweeper != nil {
		sweepCtx := ctx
		var cancel context.CancelFunc
		if timeout := time.Duration(m.cfg.Tracker.SweepTimeout) * time.Second; timeout > 0 {
			sweepCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		summary, err := m.sweeper.Run(sweepCtx)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			m.setLastError(err)
			logger.Error("update sweep failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "sweep_failed"),
			)
		} else if !summary.Skipped {
			logger.Debug("update sweep finished",
				logging.Int("claimed", totalByTier(summary.Claimed)),
				logging.Int("applied", totalByTier(summary.Applied)),
			)
		}
	}

	if m.processor != nil {
		generated, err := m.processor.Run(ctx)
		if err != nil {
			m.setLastError(err)
			logger.Error("update generation failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "update_generation_failed"),
			)
		}
		if generated > 0 {
			if err := m.notifier.Publish(ctx, notifications.EventUpdateGenerated, notifications.Payload{
				"paid": fmt.Sprintf("%d package(s)", generated),
			}); err != nil {
				logger.Debug("update notification failed", logging.Error(err))
			}
		}
	}

	requeued, err := m.store.RequeueNonMapped(ctx)
	if err != nil {
		logger.Warn("requeue of non-mapped packages failed", logging.Error(err))
	} else if requeued > 0 {
		logger.Info("requeued non-mapped packages for another mapping attempt",
			logging.Int64("count", requeued),
		)
	}

	m.maybeCleanOrphans(ctx, logger)
	m.updateQueueGauges(ctx)
}

// maybeCleanOrphans runs the mapping cleanup once per day during the
// configured hour.
func (m *Manager) maybeCleanOrphans(ctx context.Context, logger *slog.Logger) {
	now := time.Now()
	if now.Hour() != m.cfg.Tracker.OrphanCleanupAt {
		return
	}
	m.mu.Lock()
	ranToday := m.lastCleanup.Year() == now.Year() && m.lastCleanup.YearDay() == now.YearDay()
	if !ranToday {
		m.lastCleanup = now
	}
	m.mu.Unlock()
	if ranToday {
		return
	}

	removed, err := m.tracking.CleanOrphanMappings(ctx)
	if err != nil {
		logger.Warn("orphan mapping cleanup failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("removed orphan mappings", logging.Int64("count", removed))
	}
}

func totalByTier[K comparable](counts map[K]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
