package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"adiengine/internal/logging"
	"adiengine/internal/notifications"
	"adiengine/internal/queue"
	"adiengine/internal/services"
	"adiengine/internal/stageexec"
)

func (m *Manager) processItem(ctx context.Context, laneLogger *slog.Logger, item *queue.Item) error {
	m.mu.RLock()
	stg, ok := m.stageByStart[item.Status]
	m.mu.RUnlock()
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.waitForItemOrShutdown(ctx)
		return nil
	}

	stageCtx := services.WithItemID(ctx, item.ID)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())

	hbCtx, hbCancel := context.WithCancel(stageCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	start := time.Now()
	runErr := stageexec.Run(stageCtx, stageexec.Options{
		Logger:     m.logger,
		Store:      m.store,
		Notifier:   m.notifier,
		Handler:    stg.handler,
		StageName:  stg.name,
		Processing: stg.processingStatus,
		Done:       stg.doneStatus,
		Item:       item,
	})
	hbCancel()
	hbWG.Wait()

	m.setLastItem(item)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return runErr
		}
		m.setLastError(runErr)
		m.finishFailedItem(stageCtx, laneLogger, item)
		return runErr
	}

	if item.Status == queue.StatusCompleted {
		m.finishCompletedItem(stageCtx, laneLogger, item, time.Since(start))
	}
	return nil
}

func (m *Manager) finishCompletedItem(ctx context.Context, logger *slog.Logger, item *queue.Item, elapsed time.Duration) {
	if m.metrics != nil {
		m.metrics.IngestSuccess.Inc()
	}
	logger.Info("package completed",
		logging.String(logging.FieldEventType, "item_complete"),
		logging.String(logging.FieldPAID, item.PAID),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.Duration("stage_duration", elapsed),
	)
	if err := m.notifier.Publish(ctx, notifications.EventIngestCompleted, notifications.Payload{
		"paid":    item.PAID,
		"title":   item.Title,
		"package": item.PackageName,
	}); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

// finishFailedItem routes the physical package out of the input directory so
// a restart does not re-queue a package the pipeline already gave up on.
// Non-mapped packages keep their work directory: a later mapping sweep can
// requeue them from the imported status without re-extracting.
func (m *Manager) finishFailedItem(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	switch item.Status {
	case queue.StatusFailedToMap:
		m.routePackageFile(ctx, logger, item, m.cfg.Paths.NonMappedDir)
	case queue.StatusFailed, queue.StatusRejected:
		if m.metrics != nil {
			m.metrics.IngestFailure.Inc()
		}
		m.routePackageFile(ctx, logger, item, m.cfg.Paths.FailedDir)
		m.removeWorkDir(logger, item)
	}
}
