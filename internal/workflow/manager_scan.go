package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adiengine/internal/fileutil"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
)

// scanInputDir queues every archive in the input directory that is not
// already known. Packages are matched by path, so a file dropped twice with
// the same name is picked up again only after the earlier item left the
// directory.
func (m *Manager) scanInputDir(ctx context.Context, logger *slog.Logger) error {
	entries, err := os.ReadDir(m.cfg.Paths.InputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".zip") || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(m.cfg.Paths.InputDir, name)
		existing, err := m.store.FindByPackagePath(ctx, path)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		// Skip files still being written; mtime settles once the upload ends.
		if time.Since(info.ModTime()) < 5*time.Second {
			continue
		}
		item, err := m.store.NewPackage(ctx, path, info.ModTime())
		if err != nil {
			return err
		}
		logger.Info("queued new package",
			logging.String(logging.FieldEventType, "package_discovered"),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("package", name),
		)
	}
	return nil
}

func (m *Manager) routePackageFile(ctx context.Context, logger *slog.Logger, item *queue.Item, destDir string) {
	source := strings.TrimSpace(item.PackagePath)
	if source == "" || destDir == "" {
		return
	}
	if _, err := os.Stat(source); err != nil {
		return
	}
	target := filepath.Join(destDir, filepath.Base(source))
	if err := fileutil.MoveFile(source, target); err != nil {
		logger.Warn("failed to move package out of input directory",
			logging.Error(err),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("destination", target),
		)
		return
	}
	item.PackagePath = target
	if err := m.store.Update(ctx, item); err != nil {
		logger.Warn("failed to persist moved package path", logging.Error(err))
	}
}

func (m *Manager) removeWorkDir(logger *slog.Logger, item *queue.Item) {
	workDir := strings.TrimSpace(item.WorkDir)
	if workDir == "" {
		return
	}
	if err := os.RemoveAll(workDir); err != nil {
		logger.Warn("failed to remove work directory",
			logging.Error(err),
			logging.Int64(logging.FieldItemID, item.ID),
		)
	}
}
