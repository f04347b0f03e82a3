package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adiengine/internal/config"
	"adiengine/internal/fileutil"
	"adiengine/internal/generator"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services"
	"adiengine/internal/stage"
)

// PackageStage assembles the delivery archive from the working directory.
type PackageStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewPackageStage wires the packaging handler.
func NewPackageStage(cfg *config.Config, logger *slog.Logger) *PackageStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PackageStage{cfg: cfg, logger: logger}
}

// SetLogger installs the stage-scoped logger.
func (s *PackageStage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *PackageStage) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.WorkDir) == "" {
		return services.Wrap(services.ErrEnrichmentFailure, "package", "prepare", "item carries no working directory", nil)
	}
	if _, err := os.Stat(item.WorkDir); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "package", "prepare", "working directory is gone", err)
	}
	item.SetProgress("Packaging", "assembling delivery archive", 80)
	return nil
}

func (s *PackageStage) Execute(ctx context.Context, item *queue.Item) error {
	name := generator.PackageName(item.PAID, item.IsTVOD, time.Now())
	archivePath := filepath.Join(s.cfg.Paths.WorkDir, name+".zip")
	if err := fileutil.ZipDir(archivePath, item.WorkDir); err != nil {
		return services.Wrap(services.ErrEnrichmentFailure, "package", "archive", "write delivery archive", err)
	}

	item.PackageName = name
	item.DeliveryPath = archivePath
	s.logger.Info("package assembled",
		slog.String(logging.FieldPAID, item.PAID),
		slog.String("package", name))
	item.SetProgress("Packaged", "delivery archive ready", 90)
	return nil
}

func (s *PackageStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := os.Stat(s.cfg.Paths.WorkDir); err != nil {
		return stage.Unhealthy("package", "working directory unavailable: "+err.Error())
	}
	return stage.Healthy("package")
}
