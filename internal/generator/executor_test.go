package generator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"adiengine/internal/adi"
	"adiengine/internal/generator"
	"adiengine/internal/logging"
	"adiengine/internal/services"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/testsupport"
	"adiengine/internal/tracking"
)

type fakeProvider struct {
	layer1 *gracenote.Program
	layer2 *gracenote.Program
	images map[string][]byte
}

func (f *fakeProvider) GetMapping(context.Context, string) (*gracenote.ProgramMapping, string, error) {
	return nil, "", gracenote.ErrNotFound
}

func (f *fakeProvider) GetLayer1Program(context.Context, string) (*gracenote.Program, string, error) {
	if f.layer1 == nil {
		return nil, "", gracenote.ErrNotFound
	}
	return f.layer1, "{}", nil
}

func (f *fakeProvider) GetLayer2Program(context.Context, string) (*gracenote.Program, string, error) {
	if f.layer2 == nil {
		return nil, "", gracenote.ErrNotFound
	}
	return f.layer2, "{}", nil
}

func (f *fakeProvider) DownloadImage(_ context.Context, uri string) ([]byte, error) {
	payload, ok := f.images[uri]
	if !ok {
		return nil, gracenote.ErrNotFound
	}
	return payload, nil
}

func TestPackageName(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	if got := generator.PackageName("TITL0000000000000001", false, at); got != "TITL0000000000000001_20260830-1405" {
		t.Fatalf("PackageName = %q", got)
	}
	if got := generator.PackageName("TITL0000000000000001", true, at); got != "TVOD_TITL0000000000000001_20260830-1405" {
		t.Fatalf("tvod PackageName = %q", got)
	}
}

func TestGenerateUpdateWritesArchiveAndBumpsMinor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Enrichment.DownloadImages = false
	store := testsupport.MustOpenTracking(t, cfg)
	ctx := context.Background()

	paid := "TITL0000000000000001"
	if err := store.SaveMapping(ctx, &tracking.Mapping{
		OnAPIProviderID: "p0001" + paid,
		PAID:            paid,
		TMSID:           "MV000000010000",
		RootID:          "9000001",
		Status:          tracking.StatusMapped,
	}); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}

	enriched := testsupport.NewDocument(
		paid, "p0001", "Example Movie",
		testsupport.WithMovie("example.mpg"),
		testsupport.WithVersion(1, 2),
	)
	payload, err := adi.Marshal(enriched)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := store.SaveEnrichedDocument(ctx, paid, string(payload)); err != nil {
		t.Fatalf("SaveEnrichedDocument failed: %v", err)
	}

	provider := &fakeProvider{layer1: &gracenote.Program{
		TMSID:     "MV000000010000",
		RootID:    "9000001",
		Titles:    []gracenote.Title{{Value: "Example Movie"}},
		MovieInfo: &gracenote.MovieInfo{YearOfRelease: 2020},
	}}

	executor := generator.NewExecutor(cfg, store, provider, logging.NewNop())
	result, err := executor.GenerateUpdate(ctx, &tracking.Row{
		Tier: tracking.TierMapping,
		PAID: paid,
	})
	if err != nil {
		t.Fatalf("GenerateUpdate failed: %v", err)
	}
	if result.Minor != 3 {
		t.Fatalf("minor = %d, want the stored version bumped to 3", result.Minor)
	}
	if !strings.HasPrefix(result.PackageName, paid+"_") {
		t.Fatalf("package name = %q", result.PackageName)
	}

	if _, err := os.Stat(result.ArchivePath); err != nil {
		t.Fatalf("delivery archive missing: %v", err)
	}
	if filepath.Dir(result.ArchivePath) != cfg.Paths.OutputDir {
		t.Fatalf("archive written to %q, want the output directory", result.ArchivePath)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkDir, result.PackageName)); !os.IsNotExist(err) {
		t.Fatal("working directory must be cleaned up")
	}

	stored, err := store.DocumentForAsset(ctx, paid)
	if err != nil {
		t.Fatalf("DocumentForAsset failed: %v", err)
	}
	if stored == nil || strings.TrimSpace(stored.UpdateXML) == "" {
		t.Fatal("generated update document must be stored")
	}
	updated, err := adi.Parse([]byte(stored.UpdateXML))
	if err != nil {
		t.Fatalf("parse stored update: %v", err)
	}
	if updated.VersionMinor() != 3 {
		t.Fatalf("stored update minor = %d, want 3", updated.VersionMinor())
	}
	if updated.HasMediaContent() {
		t.Fatal("an update must not re-ship the media payload")
	}

	entry, err := store.LookupData(ctx, "p0001"+paid)
	if err != nil {
		t.Fatalf("LookupData failed: %v", err)
	}
	if entry == nil || entry.Layer1Data == "" {
		t.Fatal("program payload must be cached during generation")
	}
}

func TestGenerateUpdateRequiresStoredState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenTracking(t, cfg)
	ctx := context.Background()

	executor := generator.NewExecutor(cfg, store, &fakeProvider{}, logging.NewNop())
	_, err := executor.GenerateUpdate(ctx, &tracking.Row{
		Tier: tracking.TierMapping,
		PAID: "TITL0000000000000099",
	})
	if !errors.Is(err, services.ErrEnrichmentFailure) {
		t.Fatalf("expected enrichment failure for unmapped asset, got %v", err)
	}
}
