package adi_test

import (
	"strings"
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/testsupport"
)

func TestMetadataSetValueAppendsWithExistingApp(t *testing.T) {
	meta := &adi.Metadata{
		AMS: adi.AMS{Product: "SVOD"},
		AppData: []adi.AppData{
			{App: "MOD", Name: adi.AttrTitle, Value: "Old Title"},
		},
	}

	meta.SetValue(adi.AttrTitle, "New Title")
	if got := meta.Value(adi.AttrTitle); got != "New Title" {
		t.Fatalf("Title = %q, want replacement in place", got)
	}
	if len(meta.AppData) != 1 {
		t.Fatalf("SetValue on existing name must not append, have %d entries", len(meta.AppData))
	}

	meta.SetValue(adi.AttrYear, "2024")
	last := meta.AppData[len(meta.AppData)-1]
	if last.App != "MOD" {
		t.Fatalf("appended entry App = %q, want the existing entries' app", last.App)
	}
}

func TestMetadataSetValuesReplacesAll(t *testing.T) {
	meta := &adi.Metadata{AMS: adi.AMS{Product: "SVOD"}}
	meta.SetValues(adi.AttrGenre, []string{"Drama", "Comedy"})
	meta.SetValues(adi.AttrGenre, []string{"Horror"})

	got := meta.Values(adi.AttrGenre)
	if len(got) != 1 || got[0] != "Horror" {
		t.Fatalf("Genre values = %v, want single Horror entry", got)
	}

	meta.SetValues(adi.AttrGenre, nil)
	if meta.Has(adi.AttrGenre) {
		t.Fatal("SetValues with no values must remove the name")
	}
}

func TestMetadataRemoveIsCaseInsensitive(t *testing.T) {
	meta := &adi.Metadata{
		AppData: []adi.AppData{
			{Name: "summary_short", Value: "a"},
			{Name: adi.AttrSummaryShort, Value: "b"},
			{Name: adi.AttrTitle, Value: "keep"},
		},
	}
	if !meta.Remove(adi.AttrSummaryShort) {
		t.Fatal("expected Remove to report a removal")
	}
	if meta.Has(adi.AttrSummaryShort) {
		t.Fatal("all casings of the name must be removed")
	}
	if meta.Value(adi.AttrTitle) != "keep" {
		t.Fatal("unrelated entries must survive")
	}
}

func TestSetAssetIDPreservesSubAssetPrefix(t *testing.T) {
	doc := testsupport.NewDocument(
		"TITL0000000000000001", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
	)

	doc.SetAssetID("TITL0000000000000777")
	if doc.PAID() != "TITL0000000000000777" {
		t.Fatalf("PAID = %q after SetAssetID", doc.PAID())
	}
	movie := doc.MovieAsset()
	if movie == nil {
		t.Fatal("movie asset missing")
	}
	if got := movie.Metadata.AMS.AssetID; got != "MOVI0000000000000777" {
		t.Fatalf("movie Asset_ID = %q, want class prefix preserved", got)
	}
}

func TestSetVersionMinorCoversAllBlocks(t *testing.T) {
	doc := testsupport.NewDocument(
		"TITL0000000000000002", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
		testsupport.WithPreview("example_preview.mpg"),
	)

	doc.SetVersionMinor(3)
	if doc.Metadata.AMS.VersionMinor != 3 || doc.VersionMinor() != 3 {
		t.Fatal("package and title headers must carry the new minor version")
	}
	for _, sub := range doc.Asset.Assets {
		if sub.Metadata.AMS.VersionMinor != 3 {
			t.Fatalf("sub-asset %q minor = %d, want 3", sub.Metadata.AMS.AssetID, sub.Metadata.AMS.VersionMinor)
		}
	}
}

func TestHasMediaContent(t *testing.T) {
	withMedia := testsupport.NewDocument(
		"TITL0000000000000003", "p0001", "Example",
		testsupport.WithMovie("example.mpg"),
	)
	if !withMedia.HasMediaContent() {
		t.Fatal("movie content must be detected")
	}

	metadataOnly := testsupport.NewDocument(
		"TITL0000000000000003", "p0001", "Example",
		testsupport.WithMovie(""),
	)
	if metadataOnly.HasMediaContent() {
		t.Fatal("movie asset without content is a metadata update")
	}
	if metadataOnly.HasPreviewContent() {
		t.Fatal("no preview asset, no preview content")
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	doc := testsupport.NewDocument(
		"TITL0000000000000004", "p0001", "Round Trip",
		testsupport.WithMovie("roundtrip.mpg"),
		testsupport.WithTitleAttr(adi.AttrSummaryShort, "A short summary."),
	)

	data, err := adi.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.HasPrefix(string(data), `<?xml version="1.0" encoding="utf-8"?>`) {
		t.Fatal("marshalled document must start with the XML declaration")
	}

	parsed, err := adi.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.PAID() != doc.PAID() {
		t.Fatalf("PAID = %q after round trip, want %q", parsed.PAID(), doc.PAID())
	}
	if got := parsed.TitleMetadata().Value(adi.AttrSummaryShort); got != "A short summary." {
		t.Fatalf("Summary_Short = %q after round trip", got)
	}
}

func TestParseRejectsMissingAssetID(t *testing.T) {
	if _, err := adi.Parse([]byte(`<ADI><Metadata/><Asset><Metadata/></Asset></ADI>`)); err == nil {
		t.Fatal("expected error for document without Asset_ID")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := testsupport.NewDocument("TITL0000000000000005", "p0001", "Original")
	clone, err := adi.Clone(doc)
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	clone.TitleMetadata().SetValue(adi.AttrTitle, "Mutated")
	if doc.TitleMetadata().Value(adi.AttrTitle) != "Original" {
		t.Fatal("mutating the clone must not touch the source")
	}
}
