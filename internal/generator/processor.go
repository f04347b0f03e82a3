package generator

import (
	"context"
	"errors"
	"log/slog"

	"adiengine/internal/adi"
	"adiengine/internal/compare"
	"adiengine/internal/config"
	"adiengine/internal/images"
	"adiengine/internal/logging"
	"adiengine/internal/metrics"
	"adiengine/internal/services"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

// Processor walks the flagged tracking rows and decides per row whether the
// upstream change actually moves any mapped field: unchanged rows get their
// flag cleared, changed rows go through the executor.
type Processor struct {
	cfg      *config.Config
	store    *tracking.Store
	provider Provider
	executor *Executor
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewProcessor wires a generator processor.
func NewProcessor(cfg *config.Config, store *tracking.Store, provider Provider, logger *slog.Logger, m *metrics.Metrics) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		cfg:      cfg,
		store:    store,
		provider: provider,
		executor: NewExecutor(cfg, store, provider, logger),
		logger:   logger,
		metrics:  m,
	}
}

// Run processes every flagged row across all tiers, one row to completion at
// a time. A sweep in operation defers the whole pass to the next cycle, so
// generation never reads rows the sweep is still flagging.
func (p *Processor) Run(ctx context.Context) (int, error) {
	active, err := p.store.InOperation(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrEnrichmentFailure, "generator", "run", "read operation flag", err)
	}
	if active {
		logging.WithContext(ctx, p.logger).Info("sweep in operation, deferring generation pass")
		return 0, nil
	}

	generated := 0
	for _, tier := range tracking.Tiers() {
		rows, err := p.store.RowsRequiringEnrichment(ctx, tier)
		if err != nil {
			return generated, services.Wrap(services.ErrEnrichmentFailure, "generator", "run", "load flagged rows", err)
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return generated, err
			}
			ok, err := p.processRow(ctx, tier, row)
			if err != nil {
				p.fail(ctx, tier, row, err)
				continue
			}
			if ok {
				generated++
			}
		}
	}
	return generated, nil
}

// processRow reports whether a package was generated. The enrichment flag is
// cleared on both outcomes; only an error leaves it raised for a retry.
func (p *Processor) processRow(ctx context.Context, tier tracking.Tier, row *tracking.Row) (bool, error) {
	log := logging.WithContext(ctx, p.logger).With(
		slog.String(logging.FieldTier, string(tier)),
		slog.String(logging.FieldPAID, row.PAID))

	changed, err := p.changed(ctx, log, tier, row)
	if err != nil {
		return false, err
	}
	if !changed {
		log.Info("upstream change moves no mapped field, clearing flag")
		return false, p.store.ClearEnrichmentFlag(ctx, tier, row.ID)
	}

	if _, err := p.executor.GenerateUpdate(ctx, row); err != nil {
		return false, err
	}
	if err := p.store.ClearEnrichmentFlag(ctx, tier, row.ID); err != nil {
		return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "clear_flag", "clear enrichment flag", err)
	}
	if p.metrics != nil {
		p.metrics.UpdateSuccess.Inc()
	}
	return true, nil
}

func (p *Processor) changed(ctx context.Context, log *slog.Logger, tier tracking.Tier, row *tracking.Row) (bool, error) {
	doc, err := p.executor.loadDocument(ctx, row.PAID)
	if err != nil {
		return false, err
	}

	switch tier {
	case tracking.TierMapping:
		stored, err := p.store.MappingByPAID(ctx, row.PAID)
		if err != nil {
			return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "load stored mapping", err)
		}
		if stored == nil {
			return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "asset has no stored mapping", nil)
		}
		fresh, raw, err := p.provider.GetMapping(ctx, stored.OnAPIProviderID)
		if err != nil {
			if errors.Is(err, gracenote.ErrNotFound) {
				return false, nil
			}
			return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "fetch mapping", err)
		}
		if raw != "" {
			if err := p.store.SaveLookupData(ctx, stored.OnAPIProviderID, tracking.TierMapping, raw); err != nil {
				return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "cache mapping lookup", err)
			}
		}
		return compare.MappingChanged(stored, fresh), nil

	case tracking.TierLayer1:
		fresh, raw, err := p.provider.GetLayer1Program(ctx, row.TMSID)
		if err != nil {
			if errors.Is(err, gracenote.ErrNotFound) {
				return false, nil
			}
			return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "fetch program", err)
		}
		if raw != "" {
			if err := p.store.SaveLookupData(ctx, adi.OnAPIProviderID(row.ProviderID, row.PAID), tracking.TierLayer1, raw); err != nil {
				return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "cache program lookup", err)
			}
		}
		if compare.Layer1Changed(log, doc, fresh, p.cfg.Enrichment.MaxActors, p.cfg.Enrichment.MaxProducers) {
			return true, nil
		}
		if fresh.HasMovieInfo() {
			// Movie facts are not tracked field by field; always regenerate.
			return true, nil
		}
		return p.imagesChanged(ctx, log, row, fresh)

	default:
		if row.ConnectorID == "" {
			// Never reseeded with a series identity: the asset has no
			// series record to compare against.
			return false, nil
		}
		fresh, raw, err := p.provider.GetLayer2Program(ctx, row.ConnectorID)
		if err != nil {
			if errors.Is(err, gracenote.ErrNotFound) {
				return false, nil
			}
			return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "fetch series", err)
		}
		if raw != "" {
			if err := p.store.SaveLookupData(ctx, adi.OnAPIProviderID(row.ProviderID, row.PAID), tracking.TierLayer2, raw); err != nil {
				return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "cache series lookup", err)
			}
		}
		return compare.Layer2Changed(log, doc, fresh), nil
	}
}

func (p *Processor) imagesChanged(ctx context.Context, log *slog.Logger, row *tracking.Row, fresh *gracenote.Program) (bool, error) {
	stored, err := p.store.ImagesForAsset(ctx, row.PAID)
	if err != nil {
		return false, services.Wrap(services.ErrEnrichmentFailure, "generator", "compare", "load cached images", err)
	}
	want := images.Select(fresh.Assets, images.Options{
		Qualifiers: p.cfg.Enrichment.ImageQualifiers,
		IsMovie:    fresh.HasMovieInfo(),
	})
	return compare.Images(log, stored, want), nil
}

func (p *Processor) fail(ctx context.Context, tier tracking.Tier, row *tracking.Row, err error) {
	logging.WithContext(ctx, p.logger).Error("update generation failed",
		slog.String(logging.FieldTier, string(tier)),
		slog.String(logging.FieldPAID, row.PAID),
		logging.Error(err))
	if p.metrics != nil {
		p.metrics.UpdateFailure.Inc()
	}
}
