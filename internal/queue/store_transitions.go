package queue

import (
	"context"
	"fmt"
	"time"
)

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	args := make([]any, 0, len(stageRollbackTransitions)*2+1+len(stageRollbackTransitions))
	caseClause := ""
	for _, transition := range stageRollbackTransitions {
		caseClause += " WHEN ? THEN ?"
		args = append(args, transition.from, transition.to)
	}
	args = append(args, nowUTC().Format(time.RFC3339Nano))
	inClause := makePlaceholders(len(stageRollbackTransitions))
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = CASE status`+caseClause+` ELSE status END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+inClause+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := nowUTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start of
// their current stage when heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	args := make([]any, 0, len(stageRollbackTransitions)*3+2)
	caseClause := ""
	for _, transition := range stageRollbackTransitions {
		caseClause += " WHEN ? THEN ?"
		args = append(args, transition.from, transition.to)
	}
	args = append(args, nowUTC().Format(time.RFC3339Nano))
	inClause := makePlaceholders(len(stageRollbackTransitions))
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = CASE status`+caseClause+` ELSE status END,
             progress_stage = 'Reclaimed from stale processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+inClause+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := nowUTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
             SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                 progress_message = NULL, error_message = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending, now, StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, StatusFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
             progress_message = NULL, error_message = NULL, updated_at = ?
         WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// RequeueNonMapped sends parked non-mapped items back through the mapping
// stage. The mapping stage fails items permanently once their retry window
// has expired.
func (s *Store) RequeueNonMapped(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, progress_stage = 'Mapping retry', progress_percent = 0,
             progress_message = NULL, error_message = NULL, updated_at = ?
         WHERE status = ?`,
		StatusImported, nowUTC().Format(time.RFC3339Nano), StatusFailedToMap,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue non-mapped items: %w", err)
	}
	return res.RowsAffected()
}

// FailProcessing marks every in-flight item failed; called on daemon shutdown.
func (s *Store) FailProcessing(ctx context.Context, reason string) (int64, error) {
	inClause := makePlaceholders(len(stageRollbackTransitions))
	args := make([]any, 0, len(stageRollbackTransitions)+2)
	args = append(args, reason, nowUTC().Format(time.RFC3339Nano))
	for _, transition := range stageRollbackTransitions {
		args = append(args, transition.from)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = '`+string(StatusFailed)+`', error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+inClause+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("fail processing items: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns per-status counts alongside aggregate totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
		switch Status(status) {
		case StatusCompleted:
			stats.Completed += count
		case StatusFailed, StatusRejected:
			stats.Failed += count
		case StatusPending, StatusFailedToMap:
			stats.Waiting += count
		}
	}
	return stats, rows.Err()
}
