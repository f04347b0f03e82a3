// Package ingest implements the pipeline stage handlers that carry a package
// from the input directory to delivery.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/config"
	"adiengine/internal/importer"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services"
	"adiengine/internal/stage"
	"adiengine/internal/tracking"
)

// ImportStage validates an incoming archive, classifies it against the
// tracked asset state, and extracts it into a working directory.
type ImportStage struct {
	cfg      *config.Config
	queue    *queue.Store
	tracking *tracking.Store
	logger   *slog.Logger
}

// NewImportStage wires the import handler.
func NewImportStage(cfg *config.Config, store *queue.Store, tracker *tracking.Store, logger *slog.Logger) *ImportStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ImportStage{cfg: cfg, queue: store, tracking: tracker, logger: logger}
}

// SetLogger installs the stage-scoped logger.
func (s *ImportStage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Prepare checks the archive is still where the watcher saw it.
func (s *ImportStage) Prepare(ctx context.Context, item *queue.Item) error {
	if _, err := os.Stat(item.PackagePath); err != nil {
		return services.Wrap(services.ErrImportFailure, "import", "prepare", "package archive is gone", err)
	}
	item.SetProgress("Importing", "inspecting package archive", 5)
	return nil
}

func (s *ImportStage) Execute(ctx context.Context, item *queue.Item) error {
	facts, err := importer.Inspect(item.PackagePath, s.cfg)
	if err != nil {
		return err
	}

	item.PAID = facts.PAID
	item.ProviderID = facts.ProviderID
	item.OnAPIProviderID = facts.OnAPIProviderID
	item.Title = facts.Title
	item.VersionMajor = facts.VersionMajor
	item.VersionMinor = facts.VersionMinor
	item.IsAdult = facts.IsAdult
	item.IsUltraHD = facts.IsUltraHD
	item.IsTVOD = facts.IsTVOD

	if err := importer.CheckPolicy(facts, s.cfg.Policy); err != nil {
		return err
	}
	if removed := importer.StripPosters(facts.Doc); removed > 0 {
		s.logger.Info("stripped distributor poster assets", slog.Int("count", removed))
	}

	active, err := s.queue.FindActiveByPAID(ctx, facts.PAID, item.ID)
	if err != nil {
		return services.Wrap(services.ErrImportFailure, "import", "classify", "check queue for active package", err)
	}
	if active != nil {
		return services.Wrap(services.ErrVersionConflict, "import", "classify",
			fmt.Sprintf("package for %s is already in the queue (item #%d)", facts.PAID, active.ID), nil)
	}

	existing, err := s.trackedVersion(ctx, facts.PAID)
	if err != nil {
		return err
	}
	decision, reason := adi.Classify(adi.VersionInfo{
		Major:    facts.VersionMajor,
		Minor:    facts.VersionMinor,
		HasMedia: facts.HasMedia,
		IsTVOD:   facts.IsTVOD,
	}, existing)
	s.logger.Info("package classified",
		slog.String("decision", decision.String()),
		slog.String("reason", reason),
		slog.String(logging.FieldPAID, facts.PAID))

	switch decision {
	case adi.DecisionDuplicate:
		return services.Wrap(services.ErrVersionConflict, "import", "classify", "duplicate ingest: "+reason, nil)
	case adi.DecisionVersionConflict:
		return services.Wrap(services.ErrVersionConflict, "import", "classify", reason, nil)
	case adi.DecisionFreshIngest:
		if !facts.HasMedia {
			return services.Wrap(services.ErrVersionConflict, "import", "classify",
				"metadata update for an asset that was never ingested", nil)
		}
		item.IsUpdate = false
	case adi.DecisionUpdate:
		item.IsUpdate = true
	}

	workDir := filepath.Join(s.cfg.Paths.WorkDir, item.IngestID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrImportFailure, "import", "extract", "create working directory", err)
	}
	if err := importer.ExtractAll(item.PackagePath, workDir); err != nil {
		_ = os.RemoveAll(workDir)
		return err
	}
	adiPath := filepath.Join(workDir, "ADI.XML")
	if err := adi.Save(facts.Doc, adiPath); err != nil {
		_ = os.RemoveAll(workDir)
		return services.Wrap(services.ErrImportFailure, "import", "extract", "write normalized document", err)
	}

	item.WorkDir = workDir
	item.AdiPath = adiPath
	item.SetProgress("Imported", "package extracted and classified", 20)
	return nil
}

// trackedVersion reads the last accepted version out of the stored enriched
// document, nil when the asset was never delivered.
func (s *ImportStage) trackedVersion(ctx context.Context, paid string) (*adi.TrackedVersion, error) {
	stored, err := s.tracking.DocumentForAsset(ctx, paid)
	if err != nil {
		return nil, services.Wrap(services.ErrImportFailure, "import", "classify", "load stored document", err)
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
		return nil, services.Wrap(services.ErrImportFailure, "import", "classify", "parse stored document", err)
	}
	return &adi.TrackedVersion{Major: doc.VersionMajor(), Minor: doc.VersionMinor()}, nil
}

func (s *ImportStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := os.Stat(s.cfg.Paths.InputDir); err != nil {
		return stage.Unhealthy("import", "input directory unavailable: "+err.Error())
	}
	return stage.Healthy("import")
}
