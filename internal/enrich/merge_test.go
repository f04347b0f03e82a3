package enrich_test

import (
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/enrich"
	"adiengine/internal/testsupport"
	"adiengine/internal/tracking"
)

func TestMergePreviousMovieAttributes(t *testing.T) {
	previous := testsupport.NewDocument(
		"TITL0000000000000001", "p0001", "Example",
		testsupport.WithMovie("example.mpg",
			adi.AppData{App: "MOD", Name: adi.AttrEncodingType, Value: "H.264"},
			adi.AppData{App: "MOD", Name: adi.AttrAudience, Value: "General"},
		),
	)

	update := testsupport.NewDocument(
		"TITL0000000000000001", "p0001", "Example",
		testsupport.WithMovie("",
			adi.AppData{App: "MOD", Name: adi.AttrAudience, Value: "Mature"},
		),
		testsupport.WithVersion(1, 1),
	)

	result := enrich.MergePrevious(update, previous, nil)
	if result.InvalidateImageCache {
		t.Fatal("no images involved, cache must stand")
	}

	movie := update.MovieAsset()
	if movie == nil {
		t.Fatal("movie asset missing after merge")
	}
	if got := movie.Metadata.Value(adi.AttrEncodingType); got != "H.264" {
		t.Fatalf("Encoding_Type = %q, want stored enrichment kept", got)
	}
	if got := movie.Metadata.Value(adi.AttrAudience); got != "Mature" {
		t.Fatalf("Audience = %q, want incoming override", got)
	}
	if movie.Metadata.AMS.VersionMinor != 1 {
		t.Fatalf("movie AMS minor = %d, want the incoming header", movie.Metadata.AMS.VersionMinor)
	}
}

func TestMergePreviousCarriesMovieWhenUpdateHasNone(t *testing.T) {
	previous := testsupport.NewDocument(
		"TITL0000000000000002", "p0001", "Example",
		testsupport.WithMovie("example.mpg",
			adi.AppData{App: "MOD", Name: adi.AttrEncodingType, Value: "H.264"},
		),
	)
	update := testsupport.NewDocument("TITL0000000000000002", "p0001", "Example")

	enrich.MergePrevious(update, previous, nil)

	movie := update.MovieAsset()
	if movie == nil {
		t.Fatal("stored movie metadata must carry forward")
	}
	if movie.Content != nil {
		t.Fatal("carried movie metadata must not reattach content")
	}
}

func TestMergePreviousPreview(t *testing.T) {
	previous := testsupport.NewDocument(
		"TITL0000000000000003", "p0001", "Example",
		testsupport.WithPreview("old_preview.mpg"),
	)
	update := testsupport.NewDocument("TITL0000000000000003", "p0001", "Example")

	enrich.MergePrevious(update, previous, nil)

	preview := update.PreviewAsset()
	if preview == nil {
		t.Fatal("stored preview metadata must carry forward")
	}
	if preview.Content != nil {
		t.Fatal("carried preview must not reference the old file")
	}

	withOwn := testsupport.NewDocument(
		"TITL0000000000000003", "p0001", "Example",
		testsupport.WithPreview("new_preview.mpg"),
	)
	enrich.MergePrevious(withOwn, previous, nil)
	preview = withOwn.PreviewAsset()
	if preview == nil || preview.Content == nil || preview.Content.Value != "new_preview.mpg" {
		t.Fatal("an update with its own preview keeps it")
	}
}

func imageAsset(qualifier, file string) adi.MediaAsset {
	return adi.MediaAsset{
		Metadata: adi.Metadata{
			AMS: adi.AMS{AssetClass: adi.ClassPoster, AssetID: "POST0000000000000004"},
			AppData: []adi.AppData{
				{App: "MOD", Name: adi.AttrImageQualifier, Value: qualifier},
			},
		},
		Content: &adi.Content{Value: file},
	}
}

func TestMergePreviousImageCacheInvalidation(t *testing.T) {
	previous := testsupport.NewDocument("TITL0000000000000004", "p0001", "Example")
	previous.Asset.Assets = append(previous.Asset.Assets, imageAsset("Iconic", "assets/p900_iconic.jpg"))

	cached := []tracking.ImageRef{{Qualifier: "Iconic", Path: "assets/p900_iconic.jpg"}}

	update := testsupport.NewDocument("TITL0000000000000004", "p0001", "Example")
	result := enrich.MergePrevious(update, previous, cached)
	if result.InvalidateImageCache {
		t.Fatal("matching image must not invalidate the cache")
	}
	if len(update.ImageAssets()) != 1 {
		t.Fatalf("image assets = %d, want 1 carried copy", len(update.ImageAssets()))
	}

	update = testsupport.NewDocument("TITL0000000000000004", "p0001", "Example")
	result = enrich.MergePrevious(update, previous, []tracking.ImageRef{
		{Qualifier: "Iconic", Path: "assets/p900_other.jpg"},
	})
	if !result.InvalidateImageCache {
		t.Fatal("filename mismatch must invalidate the cache")
	}

	update = testsupport.NewDocument("TITL0000000000000004", "p0001", "Example")
	result = enrich.MergePrevious(update, previous, nil)
	if result.InvalidateImageCache {
		t.Fatal("without a cached map there is nothing to invalidate")
	}
}

func TestMergePreviousNilDocuments(t *testing.T) {
	result := enrich.MergePrevious(nil, nil, nil)
	if result.InvalidateImageCache {
		t.Fatal("nil merge must be a no-op")
	}
}
