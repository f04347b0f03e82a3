package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const rowColumns = "id, provider_id, paid, tms_id, root_id, connector_id, series_id, update_id, update_date, next_update_id, max_update_id, updates_checked, requires_enrichment, ingest_uuid, created_at, updated_at"

func scanRow(tier Tier, scanner interface{ Scan(dest ...any) error }) (*Row, error) {
	var (
		row        Row
		updateDate sql.NullString
		checked    int64
		requires   int64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&row.ID,
		&row.ProviderID,
		&row.PAID,
		&row.TMSID,
		&row.RootID,
		&row.ConnectorID,
		&row.SeriesID,
		&row.UpdateID,
		&updateDate,
		&row.NextUpdateID,
		&row.MaxUpdateID,
		&checked,
		&requires,
		&row.IngestUUID,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	row.Tier = tier
	row.UpdatesChecked = checked != 0
	row.RequiresEnrichment = requires != 0
	if updateDate.Valid {
		row.UpdateDate = parseTime(updateDate.String)
	}
	row.CreatedAt = parseTime(createdRaw)
	row.UpdatedAt = parseTime(updatedRaw)
	return &row, nil
}

// Save inserts a row when the asset is new to the tier or rewrites the
// existing row in place, keyed by paid. Seeding from an ingest resets the
// enrichment flag: the package just written already is the enriched state.
func (s *Store) Save(ctx context.Context, row *Row) error {
	if row == nil {
		return errors.New("tracking row is nil")
	}
	table, err := row.Tier.table()
	if err != nil {
		return err
	}
	existing, err := s.RowByPAID(ctx, row.Tier, row.PAID)
	if err != nil {
		return err
	}
	now := nowString()
	if existing == nil {
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO `+table+` (
                provider_id, paid, tms_id, root_id, connector_id, series_id, update_id, update_date,
                next_update_id, max_update_id, updates_checked, requires_enrichment,
                ingest_uuid, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trimmedOrEmpty(row.ProviderID),
			trimmedOrEmpty(row.PAID),
			trimmedOrEmpty(row.TMSID),
			trimmedOrEmpty(row.RootID),
			trimmedOrEmpty(row.ConnectorID),
			trimmedOrEmpty(row.SeriesID),
			row.UpdateID,
			nullableTimeString(row.UpdateDate),
			row.NextUpdateID,
			row.MaxUpdateID,
			boolToInt(row.UpdatesChecked),
			boolToInt(row.RequiresEnrichment),
			trimmedOrEmpty(row.IngestUUID),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert %s row: %w", row.Tier, err)
		}
		row.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		return nil
	}

	row.ID = existing.ID
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+table+`
         SET provider_id = ?, tms_id = ?, root_id = ?, connector_id = ?, series_id = ?, update_id = ?,
             update_date = ?, next_update_id = ?, max_update_id = ?,
             updates_checked = ?, requires_enrichment = ?, ingest_uuid = ?, updated_at = ?
         WHERE id = ?`,
		trimmedOrEmpty(row.ProviderID),
		trimmedOrEmpty(row.TMSID),
		trimmedOrEmpty(row.RootID),
		trimmedOrEmpty(row.ConnectorID),
		trimmedOrEmpty(row.SeriesID),
		row.UpdateID,
		nullableTimeString(row.UpdateDate),
		row.NextUpdateID,
		row.MaxUpdateID,
		boolToInt(row.UpdatesChecked),
		boolToInt(row.RequiresEnrichment),
		trimmedOrEmpty(row.IngestUUID),
		now,
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("update %s row: %w", row.Tier, err)
	}
	return nil
}

// RowByPAID returns the tier row for an asset id, or nil.
func (s *Store) RowByPAID(ctx context.Context, tier Tier, paid string) (*Row, error) {
	table, err := tier.table()
	if err != nil {
		return nil, err
	}
	row, err := scanRow(tier, s.db.QueryRowContext(
		ctx, `SELECT `+rowColumns+` FROM `+table+` WHERE paid = ? ORDER BY id LIMIT 1`, paid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("row by paid: %w", err)
	}
	return row, nil
}

// RowsByRootID returns the tier rows sharing a provider root id, the fan-out
// target set of a sweep hit.
func (s *Store) RowsByRootID(ctx context.Context, tier Tier, rootID string) ([]*Row, error) {
	table, err := tier.table()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx, `SELECT `+rowColumns+` FROM `+table+` WHERE root_id = ? ORDER BY id`, rootID)
	if err != nil {
		return nil, fmt.Errorf("rows by root id: %w", err)
	}
	defer rows.Close()

	var result []*Row
	for rows.Next() {
		row, err := scanRow(tier, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// RowsByConnector returns the tier rows keyed by the series connector and
// root ids. Series update feeds identify root programs by connector, so this
// is the fan-out target set of a layer2 sweep hit.
func (s *Store) RowsByConnector(ctx context.Context, tier Tier, connectorID, rootID string) ([]*Row, error) {
	table, err := tier.table()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+rowColumns+` FROM `+table+` WHERE connector_id = ? AND connector_id != '' AND root_id = ? ORDER BY id`,
		connectorID, rootID)
	if err != nil {
		return nil, fmt.Errorf("rows by connector: %w", err)
	}
	defer rows.Close()

	var result []*Row
	for rows.Next() {
		row, err := scanRow(tier, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// FindByNaturalKey claims the tier row identified by provider tms/root ids.
// Rows already flagged for enrichment are not candidates, and the claim is
// gated: when another tier holds a flagged row for the same root, nil is
// returned and the caller must wait for that tier to be enriched first. A
// successful claim raises the enrichment flag, so a second call before the
// generator clears it returns no candidate.
func (s *Store) FindByNaturalKey(ctx context.Context, tier Tier, tmsID, rootID string) (*Row, error) {
	table, err := tier.table()
	if err != nil {
		return nil, err
	}
	row, err := scanRow(tier, s.db.QueryRowContext(
		ctx,
		`SELECT `+rowColumns+` FROM `+table+`
         WHERE tms_id = ? AND root_id = ? AND requires_enrichment = 0
         ORDER BY id LIMIT 1`,
		tmsID, rootID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by natural key: %w", err)
	}

	for _, other := range Tiers() {
		if other == tier {
			continue
		}
		gated, err := s.hasFlaggedRow(ctx, other, row.RootID)
		if err != nil {
			return nil, err
		}
		if gated {
			return nil, nil
		}
	}

	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET requires_enrichment = 1, updates_checked = 1, updated_at = ? WHERE id = ?`,
		nowString(), row.ID,
	); err != nil {
		return nil, fmt.Errorf("claim row: %w", err)
	}
	row.RequiresEnrichment = true
	row.UpdatesChecked = true
	return row, nil
}

func (s *Store) hasFlaggedRow(ctx context.Context, tier Tier, rootID string) (bool, error) {
	table, err := tier.table()
	if err != nil {
		return false, err
	}
	var count int
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM `+table+` WHERE root_id = ? AND requires_enrichment = 1`,
		rootID,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check %s gate: %w", tier, err)
	}
	return count > 0, nil
}

// ApplyNewData records a provider update against a claimed row: the row's
// update cursor advances and the enrichment flag is raised for the generator.
func (s *Store) ApplyNewData(ctx context.Context, tier Tier, id int64, updateID int64, updateDate time.Time) error {
	table, err := tier.table()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+table+`
         SET update_id = ?, update_date = ?, requires_enrichment = 1, updates_checked = 0, updated_at = ?
         WHERE id = ?`,
		updateID, nullableTimeString(updateDate), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("apply new data: %w", err)
	}
	return nil
}

// UpdateCursorHints stores the provider-reported next and max update ids on a row.
func (s *Store) UpdateCursorHints(ctx context.Context, tier Tier, id, nextUpdateID, maxUpdateID int64) error {
	table, err := tier.table()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET next_update_id = ?, max_update_id = ?, updated_at = ? WHERE id = ?`,
		nextUpdateID, maxUpdateID, nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("update cursor hints: %w", err)
	}
	return nil
}

// SetUpdatesChecked toggles the per-row checked marker.
func (s *Store) SetUpdatesChecked(ctx context.Context, tier Tier, id int64, checked bool) error {
	table, err := tier.table()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET updates_checked = ?, updated_at = ? WHERE id = ?`,
		boolToInt(checked), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("set updates checked: %w", err)
	}
	return nil
}

// ClearEnrichmentFlag lowers requires_enrichment once the generator finished
// (or established nothing changed) for a row.
func (s *Store) ClearEnrichmentFlag(ctx context.Context, tier Tier, id int64) error {
	table, err := tier.table()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET requires_enrichment = 0, updates_checked = 1, updated_at = ? WHERE id = ?`,
		nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("clear enrichment flag: %w", err)
	}
	return nil
}

// RowsRequiringEnrichment returns the tier rows flagged by the sweep, oldest first.
func (s *Store) RowsRequiringEnrichment(ctx context.Context, tier Tier) ([]*Row, error) {
	table, err := tier.table()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+rowColumns+` FROM `+table+` WHERE requires_enrichment = 1 ORDER BY update_id, id`)
	if err != nil {
		return nil, fmt.Errorf("rows requiring enrichment: %w", err)
	}
	defer rows.Close()

	var result []*Row
	for rows.Next() {
		row, err := scanRow(tier, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// LowestUnprocessedUpdateID resolves the sweep cursor for a tier: the
// watermark when one was recorded, else the lowest update id seen in the tier
// table, else the lowest id in the mapping table. Zero means no cursor exists
// anywhere and the sweep should start from the provider's oldest update.
func (s *Store) LowestUnprocessedUpdateID(ctx context.Context, tier Tier) (int64, error) {
	marks, err := s.Watermarks(ctx)
	if err != nil {
		return 0, err
	}
	if cursor := marks.For(tier); cursor > 0 {
		return cursor, nil
	}

	table, err := tier.table()
	if err != nil {
		return 0, err
	}
	var lowest sql.NullInt64
	if err := s.db.QueryRowContext(
		ctx, `SELECT MIN(update_id) FROM `+table+` WHERE update_id > 0`).Scan(&lowest); err != nil {
		return 0, fmt.Errorf("lowest tier update id: %w", err)
	}
	if lowest.Valid && lowest.Int64 > 0 {
		return lowest.Int64, nil
	}

	if tier != TierMapping {
		if err := s.db.QueryRowContext(
			ctx, `SELECT MIN(update_id) FROM mapping_tracking WHERE update_id > 0`).Scan(&lowest); err != nil {
			return 0, fmt.Errorf("lowest mapping update id: %w", err)
		}
		if lowest.Valid && lowest.Int64 > 0 {
			return lowest.Int64, nil
		}
	}
	return 0, nil
}

// Watermarks returns the shared cursor row.
func (s *Store) Watermarks(ctx context.Context) (Watermarks, error) {
	var (
		marks       Watermarks
		inOperation int64
		updatedRaw  string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT mapping_update_id, layer1_update_id, layer2_update_id, in_operation, updated_at
         FROM latest_update_ids WHERE id = 1`,
	).Scan(&marks.Mapping, &marks.Layer1, &marks.Layer2, &inOperation, &updatedRaw)
	if err != nil {
		return Watermarks{}, fmt.Errorf("read watermarks: %w", err)
	}
	marks.InOperation = inOperation != 0
	marks.UpdatedAt = parseTime(updatedRaw)
	return marks, nil
}

// AdvanceWatermark moves a tier cursor forward. Regressions are ignored so a
// re-swept page can never pull the cursor backwards.
func (s *Store) AdvanceWatermark(ctx context.Context, tier Tier, updateID int64) error {
	var column string
	switch tier {
	case TierMapping:
		column = "mapping_update_id"
	case TierLayer1:
		column = "layer1_update_id"
	case TierLayer2:
		column = "layer2_update_id"
	default:
		return fmt.Errorf("unknown tracking tier %q", string(tier))
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE latest_update_ids SET `+column+` = ?, updated_at = ? WHERE id = 1 AND `+column+` < ?`,
		updateID, nowString(), updateID,
	)
	if err != nil {
		return fmt.Errorf("advance %s watermark: %w", tier, err)
	}
	return nil
}

// SetInOperation flips the advisory sweep flag. The flag survives crashes, so
// callers pair every set with a deferred clear.
func (s *Store) SetInOperation(ctx context.Context, active bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE latest_update_ids SET in_operation = ?, updated_at = ? WHERE id = 1`,
		boolToInt(active), nowString(),
	)
	if err != nil {
		return fmt.Errorf("set in-operation flag: %w", err)
	}
	return nil
}

// InOperation reports whether a sweep/generation pass is marked active.
func (s *Store) InOperation(ctx context.Context) (bool, error) {
	marks, err := s.Watermarks(ctx)
	if err != nil {
		return false, err
	}
	return marks.InOperation, nil
}
