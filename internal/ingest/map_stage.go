package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"adiengine/internal/config"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/stage"
	"adiengine/internal/tracking"
)

// MapProvider is the slice of the API client the mapping stage consumes.
type MapProvider interface {
	GetMapping(ctx context.Context, onapiProviderID string) (*gracenote.ProgramMapping, string, error)
}

// MapStage resolves the provider mapping for a package. Packages the
// provider has not mapped yet are parked as retryable until the retry window
// expires.
type MapStage struct {
	cfg      *config.Config
	tracking *tracking.Store
	provider MapProvider
	logger   *slog.Logger
}

// NewMapStage wires the mapping handler.
func NewMapStage(cfg *config.Config, tracker *tracking.Store, provider MapProvider, logger *slog.Logger) *MapStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MapStage{cfg: cfg, tracking: tracker, provider: provider, logger: logger}
}

// SetLogger installs the stage-scoped logger.
func (s *MapStage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *MapStage) Prepare(ctx context.Context, item *queue.Item) error {
	if item.OnAPIProviderID == "" {
		return services.Wrap(services.ErrImportFailure, "map", "prepare", "item carries no provider identity", nil)
	}
	item.SetProgress("Mapping", "resolving provider mapping", 30)
	return nil
}

func (s *MapStage) Execute(ctx context.Context, item *queue.Item) error {
	mapping, raw, err := s.provider.GetMapping(ctx, item.OnAPIProviderID)
	if err != nil && !errors.Is(err, gracenote.ErrNotFound) {
		return services.Wrap(services.ErrTransient, "map", "fetch", "fetch provider mapping", err)
	}
	if err != nil || !gracenote.IsMapped(mapping) {
		return s.notMapped(item)
	}

	if raw != "" {
		if err := s.tracking.SaveLookupData(ctx, item.OnAPIProviderID, tracking.TierMapping, raw); err != nil {
			return services.Wrap(services.ErrImportFailure, "map", "persist", "cache mapping lookup", err)
		}
	}

	tmsID := gracenote.MappingID(mapping, gracenote.IDTypeTMS)
	rootID := gracenote.MappingID(mapping, gracenote.IDTypeRoot)
	if tmsID == "" || rootID == "" {
		return services.Wrap(services.ErrMappingUnavailable, "map", "fetch", "provider mapping carries no program ids", nil)
	}

	links, _ := json.Marshal(mapping.Links)
	if err := s.tracking.SaveMapping(ctx, &tracking.Mapping{
		OnAPIProviderID: item.OnAPIProviderID,
		PAID:            item.PAID,
		TMSID:           tmsID,
		RootID:          rootID,
		Status:          mapping.Status,
		LinksJSON:       string(links),
	}); err != nil {
		return services.Wrap(services.ErrImportFailure, "map", "persist", "store provider mapping", err)
	}

	for _, tier := range tracking.Tiers() {
		if err := s.tracking.Save(ctx, &tracking.Row{
			Tier:       tier,
			ProviderID: item.ProviderID,
			PAID:       item.PAID,
			TMSID:      tmsID,
			RootID:     rootID,
			UpdateID:   mapping.UpdateID,
			UpdateDate: mapping.UpdateDate,
			IngestUUID: item.IngestID,
		}); err != nil {
			return services.Wrap(services.ErrImportFailure, "map", "persist", fmt.Sprintf("seed %s tracking row", tier), err)
		}
	}

	s.logger.Info("provider mapping resolved",
		slog.String(logging.FieldPAID, item.PAID),
		slog.String("tms_id", tmsID),
		slog.String("root_id", rootID))
	item.SetProgress("Mapped", "provider mapping resolved", 45)
	return nil
}

// notMapped parks the package for retry while inside the retry window and
// fails it permanently afterwards.
func (s *MapStage) notMapped(item *queue.Item) error {
	window := time.Duration(s.cfg.Policy.FailedToMapRetryDays) * 24 * time.Hour
	age := time.Since(item.FirstSeenAt)
	if window > 0 && age > window {
		return services.Wrap(services.ErrImportFailure, "map", "fetch",
			fmt.Sprintf("provider mapping still missing after %d days", s.cfg.Policy.FailedToMapRetryDays), nil)
	}
	return services.Wrap(services.ErrMappingUnavailable, "map", "fetch",
		"provider has not mapped this asset yet", nil)
}

func (s *MapStage) HealthCheck(ctx context.Context) stage.Health {
	if s.provider == nil {
		return stage.Unhealthy("map", "provider client not configured")
	}
	return stage.Healthy("map")
}
