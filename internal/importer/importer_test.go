package importer_test

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/config"
	"adiengine/internal/importer"
	"adiengine/internal/services"
	"adiengine/internal/testsupport"
)

func TestReadArchiveInfo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	doc := testsupport.NewDocument(
		"TITL0000000000000001", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
		testsupport.WithPreview("example_preview.mpg"),
	)
	archive := testsupport.BuildPackageArchive(t, cfg.Paths.InputDir, "example.zip", doc)

	info, err := importer.ReadArchiveInfo(archive)
	if err != nil {
		t.Fatalf("ReadArchiveInfo failed: %v", err)
	}
	if info.MetadataFile != "ADI.XML" {
		t.Fatalf("MetadataFile = %q", info.MetadataFile)
	}
	if !info.HasMediaFolder {
		t.Fatal("media folder not detected")
	}
	if !info.HasPreviewAssets {
		t.Fatal("preview asset not detected")
	}
}

func TestReadArchiveInfoRequiresMetadata(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "empty.zip")
	out, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	writer := zip.NewWriter(out)
	entry, err := writer.Create("media/example.mpg")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write([]byte("payload")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	out.Close()

	if _, err := importer.ReadArchiveInfo(archive); !errors.Is(err, services.ErrImportFailure) {
		t.Fatalf("expected import failure, got %v", err)
	}
}

func TestInspectNormalizesPAID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	doc := testsupport.NewDocument(
		"PKG-000123", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
	)
	archive := testsupport.BuildPackageArchive(t, cfg.Paths.InputDir, "pkg.zip", doc)

	facts, err := importer.Inspect(archive, cfg)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if facts.PAID != "TITL0000000000000123" {
		t.Fatalf("PAID = %q", facts.PAID)
	}
	if !facts.PAIDNormalized {
		t.Fatal("normalization not reported")
	}
	if facts.Doc.PAID() != facts.PAID {
		t.Fatal("normalized identifier must be written back onto the document")
	}
	if facts.OnAPIProviderID != "p0001TITL0000000000000123" {
		t.Fatalf("OnAPIProviderID = %q", facts.OnAPIProviderID)
	}
	if !facts.HasMedia {
		t.Fatal("media payload not detected")
	}
}

func TestInspectDerivesContentFlags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	doc := testsupport.NewDocument(
		"TITL0000000000000002", "p0001", "Example",
		testsupport.WithMovie("example.mpg",
			adi.AppData{App: "MOD", Name: adi.AttrEncodingType, Value: "H264-UHD"},
			adi.AppData{App: "MOD", Name: adi.AttrHDContent, Value: "Y"},
		),
		testsupport.WithTitleAttr(adi.AttrAudience, "Adult"),
	)
	archive := testsupport.BuildPackageArchive(t, cfg.Paths.InputDir, "flags.zip", doc)

	facts, err := importer.Inspect(archive, cfg)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !facts.IsAdult || !facts.IsUltraHD || !facts.IsHD {
		t.Fatalf("content flags = adult:%v uhd:%v hd:%v", facts.IsAdult, facts.IsUltraHD, facts.IsHD)
	}
}

func TestInspectDetectsTVOD(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Enrichment.TVODProductMatch = "tvod"

	doc := testsupport.NewDocument("TITL0000000000000003", "p0001", "Example")
	doc.Asset.Metadata.AMS.Product = "TVOD-PREMIUM"
	archive := testsupport.BuildPackageArchive(t, cfg.Paths.InputDir, "tvod.zip", doc)

	facts, err := importer.Inspect(archive, cfg)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !facts.IsTVOD {
		t.Fatal("tvod product not detected")
	}
}

func TestCheckPolicy(t *testing.T) {
	cases := []struct {
		name   string
		facts  importer.PackageFacts
		policy config.Policy
		reject bool
	}{
		{
			name:   "adult content rejected by default",
			facts:  importer.PackageFacts{IsAdult: true, IsHD: true},
			policy: config.Policy{AllowSDContent: true},
			reject: true,
		},
		{
			name:   "adult content allowed when enabled",
			facts:  importer.PackageFacts{IsAdult: true, IsHD: true},
			policy: config.Policy{AllowAdultContent: true, AllowSDContent: true},
		},
		{
			name:   "uhd rejected when disabled",
			facts:  importer.PackageFacts{IsUltraHD: true, IsHD: true},
			policy: config.Policy{AllowSDContent: true},
			reject: true,
		},
		{
			name:   "sd rejected when disabled",
			facts:  importer.PackageFacts{},
			policy: config.Policy{},
			reject: true,
		},
		{
			name:   "hd passes a strict policy",
			facts:  importer.PackageFacts{IsHD: true},
			policy: config.Policy{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := importer.CheckPolicy(&tc.facts, tc.policy)
			if tc.reject {
				if !errors.Is(err, services.ErrPolicyRejection) {
					t.Fatalf("expected policy rejection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckPolicy failed: %v", err)
			}
		})
	}
}

func TestStripPosters(t *testing.T) {
	doc := testsupport.NewDocument(
		"TITL0000000000000004", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
	)
	doc.Asset.Assets = append(doc.Asset.Assets, adi.MediaAsset{
		Metadata: adi.Metadata{AMS: adi.AMS{AssetClass: adi.ClassPoster, AssetID: "POST0000000000000004"}},
	})

	if removed := importer.StripPosters(doc); removed != 1 {
		t.Fatalf("removed %d posters, want 1", removed)
	}
	if doc.MovieAsset() == nil {
		t.Fatal("movie asset must survive")
	}
	for _, sub := range doc.Asset.Assets {
		if sub.Metadata.AMS.AssetClass == adi.ClassPoster {
			t.Fatal("poster asset survived stripping")
		}
	}
}

func TestExtractAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	doc := testsupport.NewDocument(
		"TITL0000000000000005", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
	)
	archive := testsupport.BuildPackageArchive(t, cfg.Paths.InputDir, "extract.zip", doc)

	dest := filepath.Join(cfg.Paths.WorkDir, "extract")
	if err := importer.ExtractAll(archive, dest); err != nil {
		t.Fatalf("ExtractAll failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "ADI.XML")); err != nil {
		t.Fatalf("metadata file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "media", "example.mpg")); err != nil {
		t.Fatalf("media file missing: %v", err)
	}
}

func TestExtractAllRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	out, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	writer := zip.NewWriter(out)
	entry, err := writer.Create("../escape.txt")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write([]byte("payload")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	out.Close()

	dest := filepath.Join(dir, "dest")
	if err := importer.ExtractAll(archive, dest); !errors.Is(err, services.ErrImportFailure) {
		t.Fatalf("expected import failure, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("escaping entry must not be written")
	}
}
