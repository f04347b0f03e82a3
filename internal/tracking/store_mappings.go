package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveMapping inserts or refreshes a provider mapping keyed by the
// provider-qualified asset id.
func (s *Store) SaveMapping(ctx context.Context, mapping *Mapping) error {
	if mapping == nil {
		return errors.New("mapping is nil")
	}
	now := nowString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO mappings (onapi_provider_id, paid, tms_id, root_id, status, links_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(onapi_provider_id) DO UPDATE SET
             paid = excluded.paid, tms_id = excluded.tms_id, root_id = excluded.root_id,
             status = excluded.status, links_json = excluded.links_json, updated_at = excluded.updated_at`,
		trimmedOrEmpty(mapping.OnAPIProviderID),
		trimmedOrEmpty(mapping.PAID),
		trimmedOrEmpty(mapping.TMSID),
		trimmedOrEmpty(mapping.RootID),
		trimmedOrEmpty(mapping.Status),
		mapping.LinksJSON,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

const mappingColumns = "id, onapi_provider_id, paid, tms_id, root_id, status, links_json, created_at, updated_at"

func scanMapping(scanner interface{ Scan(dest ...any) error }) (*Mapping, error) {
	var (
		mapping    Mapping
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&mapping.ID,
		&mapping.OnAPIProviderID,
		&mapping.PAID,
		&mapping.TMSID,
		&mapping.RootID,
		&mapping.Status,
		&mapping.LinksJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	mapping.CreatedAt = parseTime(createdRaw)
	mapping.UpdatedAt = parseTime(updatedRaw)
	return &mapping, nil
}

// MappingByOnAPIProviderID returns the mapping for a provider-qualified id, or nil.
func (s *Store) MappingByOnAPIProviderID(ctx context.Context, onapiID string) (*Mapping, error) {
	mapping, err := scanMapping(s.db.QueryRowContext(
		ctx, `SELECT `+mappingColumns+` FROM mappings WHERE onapi_provider_id = ?`, onapiID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mapping by onapi id: %w", err)
	}
	return mapping, nil
}

// MappingByPAID returns the first mapping for an asset id, or nil.
func (s *Store) MappingByPAID(ctx context.Context, paid string) (*Mapping, error) {
	mapping, err := scanMapping(s.db.QueryRowContext(
		ctx, `SELECT `+mappingColumns+` FROM mappings WHERE paid = ? ORDER BY id LIMIT 1`, paid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mapping by paid: %w", err)
	}
	return mapping, nil
}

// CleanOrphanMappings removes mappings whose asset no longer has an enriched
// document, together with the tracking rows, cached payloads, and image
// records left behind. Returns the number of mappings removed.
func (s *Store) CleanOrphanMappings(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT m.paid, m.onapi_provider_id FROM mappings m
         LEFT JOIN enriched_documents d ON d.paid = m.paid
         WHERE d.paid IS NULL OR d.enriched_xml = ''`)
	if err != nil {
		return 0, fmt.Errorf("find orphan mappings: %w", err)
	}
	type orphan struct{ paid, onapiID string }
	var orphans []orphan
	for rows.Next() {
		var o orphan
		if err := rows.Scan(&o.paid, &o.onapiID); err != nil {
			rows.Close()
			return 0, err
		}
		orphans = append(orphans, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin orphan cleanup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var removed int64
	for _, o := range orphans {
		res, err := tx.ExecContext(ctx, `DELETE FROM mappings WHERE paid = ?`, o.paid)
		if err != nil {
			return 0, fmt.Errorf("delete orphan mapping: %w", err)
		}
		count, _ := res.RowsAffected()
		removed += count

		for _, table := range []string{"mapping_tracking", "layer1_tracking", "layer2_tracking"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE paid = ?`, o.paid); err != nil {
				return 0, fmt.Errorf("delete orphan tracking: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM lookup_cache WHERE onapi_provider_id = ?`, o.onapiID); err != nil {
			return 0, fmt.Errorf("delete orphan lookup: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM asset_images WHERE paid = ?`, o.paid); err != nil {
			return 0, fmt.Errorf("delete orphan images: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM enriched_documents WHERE paid = ?`, o.paid); err != nil {
			return 0, fmt.Errorf("delete orphan document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit orphan cleanup: %w", err)
	}
	return removed, nil
}

// SaveLookupData upserts one cached provider payload column for an asset.
func (s *Store) SaveLookupData(ctx context.Context, onapiID string, tier Tier, payload string) error {
	var column string
	switch tier {
	case TierMapping:
		column = "mapping_data"
	case TierLayer1:
		column = "layer1_data"
	case TierLayer2:
		column = "layer2_data"
	default:
		return fmt.Errorf("unknown tracking tier %q", string(tier))
	}
	now := nowString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lookup_cache (onapi_provider_id, `+column+`, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(onapi_provider_id) DO UPDATE SET `+column+` = excluded.`+column+`, updated_at = excluded.updated_at`,
		trimmedOrEmpty(onapiID), payload, now,
	)
	if err != nil {
		return fmt.Errorf("save lookup data: %w", err)
	}
	return nil
}

// LookupData returns the cached provider payloads for an asset, or nil.
func (s *Store) LookupData(ctx context.Context, onapiID string) (*LookupEntry, error) {
	var (
		entry      LookupEntry
		updatedRaw string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT onapi_provider_id, mapping_data, layer1_data, layer2_data, updated_at
         FROM lookup_cache WHERE onapi_provider_id = ?`, onapiID,
	).Scan(&entry.OnAPIProviderID, &entry.MappingData, &entry.Layer1Data, &entry.Layer2Data, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup data: %w", err)
	}
	entry.UpdatedAt = parseTime(updatedRaw)
	return &entry, nil
}

// SaveImages records the enriched image list for an asset.
func (s *Store) SaveImages(ctx context.Context, paid string, refs []ImageRef) error {
	now := nowString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO asset_images (paid, images, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(paid) DO UPDATE SET images = excluded.images, updated_at = excluded.updated_at`,
		trimmedOrEmpty(paid), EncodeImageRefs(refs), now,
	)
	if err != nil {
		return fmt.Errorf("save images: %w", err)
	}
	return nil
}

// ImagesForAsset returns the stored image references of an asset.
func (s *Store) ImagesForAsset(ctx context.Context, paid string) ([]ImageRef, error) {
	var encoded string
	err := s.db.QueryRowContext(
		ctx, `SELECT images FROM asset_images WHERE paid = ?`, paid).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("images for asset: %w", err)
	}
	return DecodeImageRefs(encoded), nil
}

// SaveEnrichedDocument stores the enriched ADI XML of an asset.
func (s *Store) SaveEnrichedDocument(ctx context.Context, paid, enrichedXML string) error {
	now := nowString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO enriched_documents (paid, enriched_xml, enriched_at, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(paid) DO UPDATE SET enriched_xml = excluded.enriched_xml,
             enriched_at = excluded.enriched_at, updated_at = excluded.updated_at`,
		trimmedOrEmpty(paid), enrichedXML, now, now,
	)
	if err != nil {
		return fmt.Errorf("save enriched document: %w", err)
	}
	return nil
}

// SaveUpdateDocument stores the most recent generated update ADI XML.
func (s *Store) SaveUpdateDocument(ctx context.Context, paid, updateXML string) error {
	now := nowString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO enriched_documents (paid, update_xml, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(paid) DO UPDATE SET update_xml = excluded.update_xml, updated_at = excluded.updated_at`,
		trimmedOrEmpty(paid), updateXML, now,
	)
	if err != nil {
		return fmt.Errorf("save update document: %w", err)
	}
	return nil
}

// DocumentForAsset returns the stored ADI state of an asset, or nil.
func (s *Store) DocumentForAsset(ctx context.Context, paid string) (*Document, error) {
	var (
		doc         Document
		enrichedRaw sql.NullString
		updatedRaw  string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT paid, enriched_xml, update_xml, enriched_at, updated_at
         FROM enriched_documents WHERE paid = ?`, paid,
	).Scan(&doc.PAID, &doc.EnrichedXML, &doc.UpdateXML, &enrichedRaw, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document for asset: %w", err)
	}
	if enrichedRaw.Valid {
		doc.EnrichedAt = parseTime(enrichedRaw.String)
	}
	doc.UpdatedAt = parseTime(updatedRaw)
	return &doc, nil
}

