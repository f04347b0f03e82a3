package testsupport

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"adiengine/internal/adi"
)

// DocumentOption mutates a fixture document before it is serialized.
type DocumentOption func(*adi.Document)

// NewDocument builds a minimal valid ADI document for tests.
func NewDocument(paid, providerID, title string, opts ...DocumentOption) *adi.Document {
	ams := adi.AMS{
		AssetClass:   adi.ClassTitle,
		AssetID:      paid,
		AssetName:    title,
		Product:      "SVOD",
		Provider:     "Test Provider",
		ProviderID:   providerID,
		VersionMajor: 1,
		VersionMinor: 0,
	}
	doc := &adi.Document{
		Metadata: adi.Metadata{AMS: adi.AMS{
			AssetClass:   "package",
			AssetID:      paid,
			AssetName:    title,
			Product:      "SVOD",
			Provider:     "Test Provider",
			ProviderID:   providerID,
			VersionMajor: 1,
		}},
		Asset: adi.TitleAsset{
			Metadata: adi.Metadata{
				AMS: ams,
				AppData: []adi.AppData{
					{App: "MOD", Name: adi.AttrTitle, Value: title},
				},
			},
		},
	}
	for _, opt := range opts {
		opt(doc)
	}
	return doc
}

// WithMovie attaches a movie sub-asset. A non-empty contentFile marks the
// package as a full media ingest.
func WithMovie(contentFile string, appData ...adi.AppData) DocumentOption {
	return func(doc *adi.Document) {
		asset := adi.MediaAsset{
			Metadata: adi.Metadata{
				AMS: adi.AMS{
					AssetClass:   adi.ClassMovie,
					AssetID:      "MOVI" + adi.StripTitlePrefix(doc.PAID()),
					Product:      "SVOD",
					ProviderID:   doc.TitleMetadata().AMS.ProviderID,
					VersionMajor: 1,
				},
				AppData: appData,
			},
		}
		if contentFile != "" {
			asset.Content = &adi.Content{Value: contentFile}
		}
		doc.Asset.Assets = append(doc.Asset.Assets, asset)
	}
}

// WithPreview attaches a preview sub-asset pointing at contentFile.
func WithPreview(contentFile string) DocumentOption {
	return func(doc *adi.Document) {
		doc.Asset.Assets = append(doc.Asset.Assets, adi.MediaAsset{
			Metadata: adi.Metadata{
				AMS: adi.AMS{
					AssetClass:   adi.ClassPreview,
					AssetID:      "PREV" + adi.StripTitlePrefix(doc.PAID()),
					Product:      "SVOD",
					ProviderID:   doc.TitleMetadata().AMS.ProviderID,
					VersionMajor: 1,
				},
			},
			Content: &adi.Content{Value: contentFile},
		})
	}
}

// WithTitleAttr sets an App_Data value on the title asset.
func WithTitleAttr(name, value string) DocumentOption {
	return func(doc *adi.Document) {
		doc.TitleMetadata().SetValue(name, value)
	}
}

// WithVersion overrides the version carried by every metadata block.
func WithVersion(major, minor int) DocumentOption {
	return func(doc *adi.Document) {
		doc.SetVersionMajor(major)
		doc.SetVersionMinor(minor)
	}
}

// BuildPackageArchive writes a zip archive holding the serialized document
// plus one placeholder file per content reference, and returns its path.
func BuildPackageArchive(t testing.TB, dir, name string, doc *adi.Document) string {
	t.Helper()

	payload, err := adi.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	archivePath := filepath.Join(dir, name)
	out, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	entry, err := writer.Create("ADI.XML")
	if err != nil {
		t.Fatalf("create metadata entry: %v", err)
	}
	if _, err := entry.Write(payload); err != nil {
		t.Fatalf("write metadata entry: %v", err)
	}
	for _, sub := range doc.Asset.Assets {
		if sub.Content == nil || sub.Content.Value == "" {
			continue
		}
		entryName := sub.Content.Value
		if sub.Metadata.AMS.AssetClass == adi.ClassMovie {
			entryName = "media/" + entryName
		}
		file, err := writer.Create(entryName)
		if err != nil {
			t.Fatalf("create content entry: %v", err)
		}
		if _, err := file.Write([]byte("payload")); err != nil {
			t.Fatalf("write content entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("finalize archive: %v", err)
	}
	return archivePath
}
