package ingest

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/config"
	"adiengine/internal/fileutil"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services"
	"adiengine/internal/stage"
	"adiengine/internal/tracking"
)

// DeliverStage moves the finished archive to the output directory and
// persists the enriched document. This is the single point where stored
// state is overwritten; every earlier failure leaves the database untouched.
type DeliverStage struct {
	cfg      *config.Config
	tracking *tracking.Store
	logger   *slog.Logger
}

// NewDeliverStage wires the delivery handler.
func NewDeliverStage(cfg *config.Config, tracker *tracking.Store, logger *slog.Logger) *DeliverStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DeliverStage{cfg: cfg, tracking: tracker, logger: logger}
}

// SetLogger installs the stage-scoped logger.
func (s *DeliverStage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *DeliverStage) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.DeliveryPath) == "" {
		return services.Wrap(services.ErrEnrichmentFailure, "deliver", "prepare", "item carries no delivery archive", nil)
	}
	if _, err := os.Stat(item.DeliveryPath); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "deliver", "prepare", "delivery archive is gone", err)
	}
	item.SetProgress("Delivering", "moving archive to output", 95)
	return nil
}

func (s *DeliverStage) Execute(ctx context.Context, item *queue.Item) error {
	finalPath := filepath.Join(s.cfg.Paths.OutputDir, filepath.Base(item.DeliveryPath))
	if err := fileutil.MoveFile(item.DeliveryPath, finalPath); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "deliver", "move", "move archive to output", err)
	}
	item.DeliveryPath = finalPath

	payload, err := os.ReadFile(item.AdiPath)
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "deliver", "persist", "read enriched document", err)
	}
	doc, err := adi.Parse(payload)
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "deliver", "persist", "parse enriched document", err)
	}

	if item.IsUpdate {
		err = s.tracking.SaveUpdateDocument(ctx, item.PAID, string(payload))
	} else {
		err = s.tracking.SaveEnrichedDocument(ctx, item.PAID, string(payload))
	}
	if err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "deliver", "persist", "store enriched document", err)
	}

	if refs := imageRefs(doc); len(refs) > 0 {
		if err := s.tracking.SaveImages(ctx, item.PAID, refs); err != nil {
			return services.Wrap(services.ErrEnrichmentFailure, "deliver", "persist", "store image refs", err)
		}
	}

	s.archiveSource(item)
	if item.WorkDir != "" {
		if err := os.RemoveAll(item.WorkDir); err != nil {
			s.logger.Warn("cleanup working directory", logging.Error(err))
		}
	}

	s.logger.Info("package delivered",
		slog.String(logging.FieldPAID, item.PAID),
		slog.String("package", item.PackageName),
		slog.String("archive", finalPath))
	item.Status = queue.StatusCompleted
	item.SetProgress("Completed", "package delivered", 100)
	return nil
}

// archiveSource moves the consumed input archive out of the input directory.
func (s *DeliverStage) archiveSource(item *queue.Item) {
	if item.PackagePath == "" {
		return
	}
	if _, err := os.Stat(item.PackagePath); err != nil {
		return
	}
	dest := filepath.Join(s.cfg.Paths.ArchiveDir, filepath.Base(item.PackagePath))
	if err := fileutil.MoveFile(item.PackagePath, dest); err != nil {
		s.logger.Warn("archive source package", logging.Error(err))
	}
}

// imageRefs reads the qualifier/file pairs off the final document's image
// sub-assets.
func imageRefs(doc *adi.Document) []tracking.ImageRef {
	var refs []tracking.ImageRef
	for _, sub := range doc.ImageAssets() {
		qualifier := strings.TrimSpace(sub.Metadata.Value(adi.AttrImageQualifier))
		if qualifier == "" || sub.Content == nil {
			continue
		}
		file := strings.TrimSpace(sub.Content.Value)
		if file == "" {
			continue
		}
		refs = append(refs, tracking.ImageRef{Qualifier: qualifier, Path: path.Base(file)})
	}
	return refs
}

func (s *DeliverStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := os.Stat(s.cfg.Paths.OutputDir); err != nil {
		return stage.Unhealthy("deliver", "output directory unavailable: "+err.Error())
	}
	return stage.Healthy("deliver")
}
