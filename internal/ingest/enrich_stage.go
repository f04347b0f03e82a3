package ingest

import (
	"context"
	"log/slog"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/config"
	"adiengine/internal/enrich"
	"adiengine/internal/images"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/stage"
	"adiengine/internal/tracking"
)

// EnrichProvider is the slice of the API client the enrichment stage consumes.
type EnrichProvider interface {
	GetLayer1Program(ctx context.Context, tmsID string) (*gracenote.Program, string, error)
	GetLayer2Program(ctx context.Context, connectorID string) (*gracenote.Program, string, error)
	DownloadImage(ctx context.Context, assetURI string) ([]byte, error)
}

// EnrichStage fetches provider program data and projects it into the
// package's metadata document, merging previously enriched data for updates.
type EnrichStage struct {
	cfg      *config.Config
	tracking *tracking.Store
	provider EnrichProvider
	images   *images.Worker
	logger   *slog.Logger
}

// NewEnrichStage wires the enrichment handler.
func NewEnrichStage(cfg *config.Config, tracker *tracking.Store, provider EnrichProvider, logger *slog.Logger) *EnrichStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EnrichStage{
		cfg:      cfg,
		tracking: tracker,
		provider: provider,
		images:   images.NewWorker(provider, logger),
		logger:   logger,
	}
}

// SetLogger installs the stage-scoped logger.
func (s *EnrichStage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
		s.images = images.NewWorker(s.provider, logger)
	}
}

func (s *EnrichStage) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.AdiPath) == "" {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "prepare", "item carries no extracted document", nil)
	}
	item.SetProgress("Enriching", "fetching provider metadata", 55)
	return nil
}

func (s *EnrichStage) Execute(ctx context.Context, item *queue.Item) error {
	doc, err := adi.Load(item.AdiPath)
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "load", "load extracted document", err)
	}

	mapping, err := s.tracking.MappingByPAID(ctx, item.PAID)
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "load", "load stored mapping", err)
	}
	if mapping == nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "load", "asset has no stored mapping", nil)
	}

	layer1, rawLayer1, err := s.provider.GetLayer1Program(ctx, mapping.TMSID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "enrich", "fetch", "fetch program record", err)
	}
	if rawLayer1 != "" {
		if err := s.tracking.SaveLookupData(ctx, item.OnAPIProviderID, tracking.TierLayer1, rawLayer1); err != nil {
			return services.Wrap(services.ErrEnrichmentFailure, "enrich", "persist", "cache program lookup", err)
		}
	}

	cached, err := s.tracking.ImagesForAsset(ctx, item.PAID)
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "load", "load cached images", err)
	}

	if item.IsUpdate {
		previous, err := s.previousDocument(ctx, item.PAID)
		if err != nil {
			return err
		}
		if previous != nil {
			result := enrich.MergePrevious(doc, previous, cached)
			if result.InvalidateImageCache {
				s.logger.Info("stored images diverged from cache, forcing reselection",
					slog.String(logging.FieldPAID, item.PAID))
				if err := s.tracking.SaveImages(ctx, item.PAID, nil); err != nil {
					return services.Wrap(services.ErrEnrichmentFailure, "enrich", "merge", "invalidate image cache", err)
				}
				cached = nil
			}
			doc.SetVersionMinor(previous.VersionMinor() + 1)
		}
	}

	opts := enrich.Options{
		MaxActors:      s.cfg.Enrichment.MaxActors,
		MaxProducers:   s.cfg.Enrichment.MaxProducers,
		BlockPlatforms: s.cfg.Policy.BlockPlatforms,
	}
	enrich.ApplyLayer1(doc, layer1, opts)

	isMovie := layer1.HasMovieInfo()
	if !isMovie {
		connector := strings.TrimSpace(layer1.ConnectorID)
		if connector != "" {
			layer2, rawLayer2, err := s.provider.GetLayer2Program(ctx, connector)
			if err != nil {
				return services.Wrap(services.ErrTransient, "enrich", "fetch", "fetch series record", err)
			}
			if rawLayer2 != "" {
				if err := s.tracking.SaveLookupData(ctx, item.OnAPIProviderID, tracking.TierLayer2, rawLayer2); err != nil {
					return services.Wrap(services.ErrEnrichmentFailure, "enrich", "persist", "cache series lookup", err)
				}
			}
			enrich.ApplyLayer2(doc, layer2)
			if err := s.reseedLayer2Tracking(ctx, item.PAID, connector, layer2); err != nil {
				return err
			}
		}
	}

	if _, err := s.images.Apply(ctx, doc, layer1.Assets, cached, images.Options{
		Qualifiers: s.cfg.Enrichment.ImageQualifiers,
		Download:   s.cfg.Enrichment.DownloadImages,
		WorkDir:    item.WorkDir,
		IsMovie:    isMovie,
	}); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "images", "attach images", err)
	}

	// Propagate versions onto every sub-asset.
	doc.SetVersionMajor(doc.VersionMajor())
	doc.SetVersionMinor(doc.VersionMinor())

	if err := adi.Save(doc, item.AdiPath); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "persist", "write enriched document", err)
	}
	item.VersionMinor = doc.VersionMinor()
	item.SetProgress("Enriched", "provider metadata applied", 70)
	return nil
}

// reseedLayer2Tracking rewrites the layer2 row with the series record's own
// identity. The mapping stage seeds the row with the episode's tms/root ids,
// but series update feeds key root programs by connector id and series root
// id, so the row must carry those once the series record is known.
func (s *EnrichStage) reseedLayer2Tracking(ctx context.Context, paid, connector string, layer2 *gracenote.Program) error {
	row, err := s.tracking.RowByPAID(ctx, tracking.TierLayer2, paid)
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "persist", "load series tracking row", err)
	}
	if row == nil || layer2 == nil {
		return nil
	}
	row.ConnectorID = connector
	if strings.TrimSpace(layer2.ConnectorID) != "" {
		row.ConnectorID = layer2.ConnectorID
	}
	if strings.TrimSpace(layer2.TMSID) != "" {
		row.TMSID = layer2.TMSID
	}
	if strings.TrimSpace(layer2.RootID) != "" {
		row.RootID = layer2.RootID
	}
	if strings.TrimSpace(layer2.SeriesID) != "" {
		row.SeriesID = layer2.SeriesID
	}
	if layer2.UpdateID > 0 {
		row.UpdateID = layer2.UpdateID
	}
	row.UpdatesChecked = true
	row.RequiresEnrichment = false
	if err := s.tracking.Save(ctx, row); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "enrich", "persist", "reseed series tracking row", err)
	}
	return nil
}

func (s *EnrichStage) previousDocument(ctx context.Context, paid string) (*adi.Document, error) {
	stored, err := s.tracking.DocumentForAsset(ctx, paid)
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "enrich", "merge", "load stored document", err)
	}
	if stored == nil {
		return nil, nil
	}
	source := stored.UpdateXML
	if strings.TrimSpace(source) == "" {
		source = stored.EnrichedXML
	}
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}
	doc, err := adi.Parse([]byte(source))
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "enrich", "merge", "parse stored document", err)
	}
	return doc, nil
}

func (s *EnrichStage) HealthCheck(ctx context.Context) stage.Health {
	if s.provider == nil {
		return stage.Unhealthy("enrich", "provider client not configured")
	}
	return stage.Healthy("enrich")
}
