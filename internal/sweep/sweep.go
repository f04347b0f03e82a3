// Package sweep polls the provider update feeds and flags tracked assets
// whose upstream metadata changed.
package sweep

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"adiengine/internal/adi"
	"adiengine/internal/logging"
	"adiengine/internal/metrics"
	"adiengine/internal/services"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

// Provider is the slice of the API client the sweep consumes.
type Provider interface {
	MappingUpdates(ctx context.Context, fromUpdateID int64, limit int) (*gracenote.UpdatesPage, error)
	Layer1Updates(ctx context.Context, fromUpdateID int64, limit int) (*gracenote.UpdatesPage, error)
	Layer2Updates(ctx context.Context, fromUpdateID int64, limit int) (*gracenote.UpdatesPage, error)
}

// Summary reports what one sweep cycle did.
type Summary struct {
	Skipped bool
	Claimed map[tracking.Tier]int
	Applied map[tracking.Tier]int
}

// Sweeper runs the periodic update sweep across the three tracking tiers.
type Sweeper struct {
	store         *tracking.Store
	provider      Provider
	logger        *slog.Logger
	metrics       *metrics.Metrics
	mappingsLimit int
	layerLimit    int
}

// New wires a sweeper. Mapping and layer update feeds page independently.
// A nil metrics bundle disables instrumentation.
func New(store *tracking.Store, provider Provider, logger *slog.Logger, m *metrics.Metrics, mappingsLimit, layerLimit int) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	if mappingsLimit <= 0 {
		mappingsLimit = 100
	}
	if layerLimit <= 0 {
		layerLimit = 100
	}
	return &Sweeper{store: store, provider: provider, logger: logger, metrics: m, mappingsLimit: mappingsLimit, layerLimit: layerLimit}
}

// Run executes one sweep cycle: every tier in order, single-flight. A cycle
// already in operation is skipped entirely, never queued.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		Claimed: make(map[tracking.Tier]int),
		Applied: make(map[tracking.Tier]int),
	}
	log := logging.WithContext(ctx, s.logger)

	active, err := s.store.InOperation(ctx)
	if err != nil {
		return summary, services.Wrap(services.ErrSweepFailure, "sweep", "run", "read operation flag", err)
	}
	if active {
		summary.Skipped = true
		log.Warn("sweep already in operation, skipping cycle")
		return summary, nil
	}
	if err := s.store.SetInOperation(ctx, true); err != nil {
		return summary, services.Wrap(services.ErrSweepFailure, "sweep", "run", "set operation flag", err)
	}
	defer func() {
		if clearErr := s.store.SetInOperation(context.WithoutCancel(ctx), false); clearErr != nil {
			log.Error("clear operation flag", logging.Error(clearErr))
		}
	}()

	started := time.Now()
	cursors := make(map[tracking.Tier]int64, 3)
	for _, tier := range tracking.Tiers() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.runTier(ctx, tier, cursors, &summary); err != nil {
			return summary, err
		}
	}
	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}
	log.Info("sweep cycle complete",
		slog.Duration("elapsed", time.Since(started)),
		slog.Int("claimed", total(summary.Claimed)),
		slog.Int("applied", total(summary.Applied)))
	return summary, nil
}

func (s *Sweeper) runTier(ctx context.Context, tier tracking.Tier, cursors map[tracking.Tier]int64, summary *Summary) error {
	log := logging.WithContext(ctx, s.logger).With(slog.String(logging.FieldTier, string(tier)))

	cursor, ok := cursors[tier]
	if !ok {
		var err error
		cursor, err = s.store.LowestUnprocessedUpdateID(ctx, tier)
		if err != nil {
			return services.Wrap(services.ErrSweepFailure, "sweep", "cursor", "resolve sweep cursor", err)
		}
		cursors[tier] = cursor
	}

	page, err := s.fetch(ctx, tier, cursor)
	if err != nil {
		return services.Wrap(services.ErrSweepFailure, "sweep", "fetch", "fetch provider updates", err)
	}
	next := page.NextUpdateID
	if next == 0 {
		// Provider reports the feed max was reached.
		next = page.MaxUpdateID
	}

	switch tier {
	case tracking.TierMapping:
		claimed, err := s.sweepMappings(ctx, page, next)
		if err != nil {
			return err
		}
		summary.Claimed[tier] += claimed
		s.count(tier, claimed)
	default:
		applied, err := s.sweepLayer(ctx, tier, page, next)
		if err != nil {
			return err
		}
		summary.Applied[tier] += applied
		s.count(tier, applied)
	}

	if next > 0 {
		if err := s.store.AdvanceWatermark(ctx, tier, next); err != nil {
			return services.Wrap(services.ErrSweepFailure, "sweep", "watermark", "advance watermark", err)
		}
	}
	log.Info("tier swept",
		slog.Int64("cursor", cursor),
		slog.Int64("next", next),
		slog.Int("updates", len(page.Updates)))
	return nil
}

func (s *Sweeper) fetch(ctx context.Context, tier tracking.Tier, cursor int64) (*gracenote.UpdatesPage, error) {
	switch tier {
	case tracking.TierMapping:
		return s.provider.MappingUpdates(ctx, cursor, s.mappingsLimit)
	case tracking.TierLayer1:
		return s.provider.Layer1Updates(ctx, cursor, s.layerLimit)
	default:
		return s.provider.Layer2Updates(ctx, cursor, s.layerLimit)
	}
}

// sweepMappings claims tracking rows for accepted mappings in this
// platform's namespace and refreshes the lookup cache along the way.
func (s *Sweeper) sweepMappings(ctx context.Context, page *gracenote.UpdatesPage, next int64) (int, error) {
	claimed := 0
	for _, record := range page.Updates {
		for i := range record.Mappings {
			mapping := &record.Mappings[i]
			if !gracenote.IsMapped(mapping) {
				continue
			}
			paid := gracenote.MappingLink(mapping, gracenote.LinkTypePAID)
			if !strings.HasPrefix(strings.ToLower(paid), strings.ToLower(adi.PAIDPrefix)) {
				continue
			}
			providerID := gracenote.MappingLink(mapping, gracenote.LinkTypeProviderID)
			if providerID == "" {
				continue
			}
			onapiID := adi.OnAPIProviderID(providerID, paid)
			if payload, err := json.Marshal(mapping); err == nil {
				if err := s.store.SaveLookupData(ctx, onapiID, tracking.TierMapping, string(payload)); err != nil {
					return claimed, services.Wrap(services.ErrSweepFailure, "sweep", "mapping", "cache mapping lookup", err)
				}
			}

			row, err := s.store.FindByNaturalKey(ctx, tracking.TierMapping,
				gracenote.MappingID(mapping, gracenote.IDTypeTMS),
				gracenote.MappingID(mapping, gracenote.IDTypeRoot))
			if err != nil {
				return claimed, services.Wrap(services.ErrSweepFailure, "sweep", "mapping", "claim tracking row", err)
			}
			if row == nil {
				continue
			}
			if err := s.store.UpdateCursorHints(ctx, tracking.TierMapping, row.ID, next, page.MaxUpdateID); err != nil {
				return claimed, services.Wrap(services.ErrSweepFailure, "sweep", "mapping", "store cursor hints", err)
			}
			claimed++
		}
	}
	return claimed, nil
}

// sweepLayer fans a changed upstream record out to every matching tracked
// row. Layer1 rows match on the program root id; layer2 only tracks root
// program records, never episodes, and matches on the series connector and
// root ids the enrichment stage reseeded.
func (s *Sweeper) sweepLayer(ctx context.Context, tier tracking.Tier, page *gracenote.UpdatesPage, next int64) (int, error) {
	applied := 0
	for _, record := range page.Updates {
		if record.TMSID == "" || record.RootID == "" {
			continue
		}
		var (
			rows []*tracking.Row
			err  error
		)
		if tier == tracking.TierLayer2 {
			if !gracenote.IsRootProgram(record) {
				continue
			}
			rows, err = s.store.RowsByConnector(ctx, tier, record.ConnectorID, record.RootID)
		} else {
			rows, err = s.store.RowsByRootID(ctx, tier, record.RootID)
		}
		if err != nil {
			return applied, services.Wrap(services.ErrSweepFailure, "sweep", "layer", "load tracked rows", err)
		}
		for _, row := range rows {
			if err := s.store.ApplyNewData(ctx, tier, row.ID, record.UpdateID, record.UpdateDate); err != nil {
				return applied, services.Wrap(services.ErrSweepFailure, "sweep", "layer", "apply provider update", err)
			}
			if err := s.store.UpdateCursorHints(ctx, tier, row.ID, next, page.MaxUpdateID); err != nil {
				return applied, services.Wrap(services.ErrSweepFailure, "sweep", "layer", "store cursor hints", err)
			}
			applied++
		}
	}
	return applied, nil
}

func (s *Sweeper) count(tier tracking.Tier, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.SweepClaims.WithLabelValues(string(tier)).Add(float64(n))
	}
}

func total(m map[tracking.Tier]int) int {
	sum := 0
	for _, n := range m {
		sum += n
	}
	return sum
}
