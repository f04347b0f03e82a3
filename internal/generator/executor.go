// Package generator turns flagged tracking rows into regenerated update
// packages: fetch fresh provider data, re-map metadata, bump the minor
// version, and write a delivery archive.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adiengine/internal/adi"
	"adiengine/internal/config"
	"adiengine/internal/enrich"
	"adiengine/internal/fileutil"
	"adiengine/internal/images"
	"adiengine/internal/logging"
	"adiengine/internal/services"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

// Provider is the slice of the API client the executor consumes.
type Provider interface {
	GetMapping(ctx context.Context, onapiProviderID string) (*gracenote.ProgramMapping, string, error)
	GetLayer1Program(ctx context.Context, tmsID string) (*gracenote.Program, string, error)
	GetLayer2Program(ctx context.Context, connectorID string) (*gracenote.Program, string, error)
	DownloadImage(ctx context.Context, assetURI string) ([]byte, error)
}

// Executor builds one update package per invocation.
type Executor struct {
	cfg      *config.Config
	store    *tracking.Store
	provider Provider
	images   *images.Worker
	logger   *slog.Logger
}

// NewExecutor wires an update package executor.
func NewExecutor(cfg *config.Config, store *tracking.Store, provider Provider, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		cfg:      cfg,
		store:    store,
		provider: provider,
		images:   images.NewWorker(provider, logger),
		logger:   logger,
	}
}

// Result reports what GenerateUpdate produced.
type Result struct {
	PackageName string
	ArchivePath string
	Minor       int
}

// GenerateUpdate regenerates the enriched document for a tracked asset and
// writes the delivery archive. The stored document is only overwritten after
// the archive lands, so a failure anywhere earlier leaves the database
// record untouched.
func (e *Executor) GenerateUpdate(ctx context.Context, row *tracking.Row) (*Result, error) {
	log := logging.WithContext(ctx, e.logger).With(slog.String(logging.FieldPAID, row.PAID))

	mapping, err := e.store.MappingByPAID(ctx, row.PAID)
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "load_mapping", "load stored mapping", err)
	}
	if mapping == nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "load_mapping", "asset has no stored mapping", nil)
	}

	doc, err := e.loadDocument(ctx, row.PAID)
	if err != nil {
		return nil, err
	}

	layer1, rawLayer1, err := e.provider.GetLayer1Program(ctx, mapping.TMSID)
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "fetch_layer1", "fetch program record", err)
	}
	if rawLayer1 != "" {
		if err := e.store.SaveLookupData(ctx, mapping.OnAPIProviderID, tracking.TierLayer1, rawLayer1); err != nil {
			return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "fetch_layer1", "cache program lookup", err)
		}
	}

	stripDerivedMarkers(doc)
	opts := enrich.Options{
		MaxActors:      e.cfg.Enrichment.MaxActors,
		MaxProducers:   e.cfg.Enrichment.MaxProducers,
		BlockPlatforms: e.cfg.Policy.BlockPlatforms,
	}
	enrich.ApplyLayer1(doc, layer1, opts)

	isMovie := layer1.HasMovieInfo()
	if !isMovie {
		connector := strings.TrimSpace(layer1.ConnectorID)
		if connector != "" {
			layer2, rawLayer2, err := e.provider.GetLayer2Program(ctx, connector)
			if err != nil {
				return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "fetch_layer2", "fetch series record", err)
			}
			if rawLayer2 != "" {
				if err := e.store.SaveLookupData(ctx, mapping.OnAPIProviderID, tracking.TierLayer2, rawLayer2); err != nil {
					return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "fetch_layer2", "cache series lookup", err)
				}
			}
			enrich.ApplyLayer2(doc, layer2)
		}
	}

	packageName := PackageName(row.PAID, isTVOD(doc, e.cfg.Enrichment.TVODProductMatch), time.Now())
	workDir := filepath.Join(e.cfg.Paths.WorkDir, packageName)
	created := false
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "workdir", "create working directory", err)
	}
	created = true
	defer func() {
		if created {
			if rmErr := os.RemoveAll(workDir); rmErr != nil {
				log.Warn("cleanup working directory", logging.Error(rmErr))
			}
		}
	}()

	cached, err := e.store.ImagesForAsset(ctx, row.PAID)
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "images", "load cached images", err)
	}
	attached, err := e.images.Apply(ctx, doc, layer1.Assets, cached, images.Options{
		Qualifiers: e.cfg.Enrichment.ImageQualifiers,
		Download:   e.cfg.Enrichment.DownloadImages,
		WorkDir:    workDir,
		IsMovie:    isMovie,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "images", "attach images", err)
	}

	minor := doc.VersionMinor() + 1
	doc.SetVersionMinor(minor)

	payload, err := adi.Marshal(doc)
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "render", "render document", err)
	}
	adiPath := filepath.Join(workDir, "ADI.XML")
	if err := os.WriteFile(adiPath, payload, 0o644); err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "render", "write document", err)
	}

	archivePath := filepath.Join(e.cfg.Paths.OutputDir, packageName+".zip")
	if err := fileutil.ZipDir(archivePath, workDir); err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "archive", "write delivery archive", err)
	}

	if err := e.store.SaveUpdateDocument(ctx, row.PAID, string(payload)); err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "persist", "store update document", err)
	}
	if err := e.store.SaveImages(ctx, row.PAID, attached); err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "persist", "store image refs", err)
	}

	log.Info("update package generated",
		slog.String("package", packageName),
		slog.Int("minor", minor),
		slog.String("archive", archivePath))
	return &Result{PackageName: packageName, ArchivePath: archivePath, Minor: minor}, nil
}

// loadDocument prefers the last generated update document and falls back to
// the originally enriched one.
func (e *Executor) loadDocument(ctx context.Context, paid string) (*adi.Document, error) {
	stored, err := e.store.DocumentForAsset(ctx, paid)
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "load_document", "load stored document", err)
	}
	if stored == nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "load_document", "asset has no stored document", nil)
	}
	source := stored.UpdateXML
	if strings.TrimSpace(source) == "" {
		source = stored.EnrichedXML
	}
	if strings.TrimSpace(source) == "" {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "load_document", "stored document is empty", nil)
	}
	doc, err := adi.Parse([]byte(source))
	if err != nil {
		return nil, services.Wrap(services.ErrEnrichmentFailure, "generator", "load_document", "parse stored document", err)
	}
	return doc, nil
}

// PackageName names an update package after its asset and generation time.
func PackageName(paid string, tvod bool, at time.Time) string {
	name := fmt.Sprintf("%s_%s", paid, at.Format("20060102-1504"))
	if tvod {
		name = "TVOD_" + name
	}
	return name
}

// stripDerivedMarkers removes per-delivery artifacts an update must not
// re-ship: movie and preview content references and the AMS verb.
func stripDerivedMarkers(doc *adi.Document) {
	doc.Metadata.AMS.Verb = ""
	doc.Asset.Metadata.AMS.Verb = ""
	for i := range doc.Asset.Assets {
		sub := &doc.Asset.Assets[i]
		sub.Metadata.AMS.Verb = ""
		class := strings.ToLower(sub.Metadata.AMS.AssetClass)
		if class == adi.ClassMovie || class == adi.ClassPreview {
			sub.Content = nil
		}
	}
}

func isTVOD(doc *adi.Document, productMatch string) bool {
	if productMatch == "" {
		return false
	}
	return strings.Contains(strings.ToLower(doc.TitleMetadata().AMS.Product), strings.ToLower(productMatch))
}
