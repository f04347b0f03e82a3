package enrich_test

import (
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/enrich"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/testsupport"
)

func TestApplyLayer1WritesProgramFields(t *testing.T) {
	doc := testsupport.NewDocument("TITL0000000000000001", "p0001", "Placeholder")
	program := &gracenote.Program{
		TMSID:  "MV000000010000",
		RootID: "9000001",
		Titles: []gracenote.Title{{Value: "The Example Movie"}},
		Descriptions: []gracenote.Description{
			{Value: "A plot description.", Type: "plot", Size: 250},
		},
		Cast: []gracenote.Participant{
			{Role: "Actor", FirstName: "Jane", LastName: "Doe"},
			{Role: "Actor", FirstName: "John", LastName: "Roe"},
		},
		Crew: []gracenote.Participant{
			{Role: "Director", FirstName: "Dee", LastName: "Rector"},
		},
		Genres:      []gracenote.Genre{{Value: "drama", GenreID: "100"}},
		OrigAirDate: "2020-05-01",
		ExternalLinks: []gracenote.ExternalLink{
			{Source: "imdb", ID: "tt0000001"},
		},
	}

	enrich.ApplyLayer1(doc, program, enrich.Options{MaxActors: 10, MaxProducers: 5})

	meta := doc.TitleMetadata()
	if got := meta.Value(adi.AttrTitle); got != "The Example Movie" {
		t.Fatalf("Title = %q", got)
	}
	if got := meta.Value(adi.AttrTitleSortName); got != "Example Movie" {
		t.Fatalf("Title_Sort_Name = %q, want article stripped", got)
	}
	if got := meta.Value(adi.AttrSummaryShort); got != "A plot description." {
		t.Fatalf("Summary_Short = %q", got)
	}
	if got := meta.Values(adi.AttrActors); len(got) != 2 || got[0] != "Jane Doe" {
		t.Fatalf("Actors = %v", got)
	}
	if got := meta.Value(adi.AttrActorsDisplay); got != "Jane Doe, John Roe" {
		t.Fatalf("Actors_Display = %q", got)
	}
	if got := meta.Values(adi.AttrGenre); len(got) != 1 || got[0] != "Drama" {
		t.Fatalf("Genre = %v", got)
	}
	if got := meta.Value(adi.AttrYear); got != "2020" {
		t.Fatalf("Year = %q", got)
	}
	if got := meta.Value(adi.AttrLayer1TMSID); got != "MV000000010000" {
		t.Fatalf("layer1 tms id = %q", got)
	}
}

func TestApplyLayer1EmptyValuesLeaveStoredData(t *testing.T) {
	doc := testsupport.NewDocument(
		"TITL0000000000000002", "p0001", "Stored Title",
		testsupport.WithTitleAttr(adi.AttrSummaryShort, "Stored summary."),
		testsupport.WithTitleAttr(adi.AttrYear, "1999"),
	)

	enrich.ApplyLayer1(doc, &gracenote.Program{}, enrich.Options{})

	meta := doc.TitleMetadata()
	if got := meta.Value(adi.AttrTitle); got != "Stored Title" {
		t.Fatalf("Title = %q, want stored value kept", got)
	}
	if got := meta.Value(adi.AttrSummaryShort); got != "Stored summary." {
		t.Fatalf("Summary_Short = %q, want stored value kept", got)
	}
	if got := meta.Value(adi.AttrYear); got != "1999" {
		t.Fatalf("Year = %q, want stored value kept", got)
	}
}

func TestApplyLayer1BlockPlatforms(t *testing.T) {
	doc := testsupport.NewDocument(
		"TITL0000000000000003", "p0001", "Example",
		testsupport.WithTitleAttr(adi.AttrBlockPlatform, "distributor-block"),
	)

	enrich.ApplyLayer1(doc, &gracenote.Program{}, enrich.Options{
		BlockPlatforms: []string{"web", "mobile"},
	})

	got := doc.TitleMetadata().Values(adi.AttrBlockPlatform)
	if len(got) != 2 || got[0] != "web" || got[1] != "mobile" {
		t.Fatalf("Block_Platform = %v, want the configured list only", got)
	}
}

func TestApplyLayer1MovieSkipsShowIMDB(t *testing.T) {
	doc := testsupport.NewDocument("TITL0000000000000004", "p0001", "Example")
	program := &gracenote.Program{
		MovieInfo: &gracenote.MovieInfo{YearOfRelease: 2020},
		ExternalLinks: []gracenote.ExternalLink{
			{Source: "imdb", ID: "tt0000001"},
			{Source: "imdb", ID: "tt0000002"},
		},
	}

	enrich.ApplyLayer1(doc, program, enrich.Options{})

	meta := doc.TitleMetadata()
	if got := meta.Value(adi.AttrIMDbID); got != "tt0000001" {
		t.Fatalf("IMDb_ID = %q", got)
	}
	if meta.Has(adi.AttrShowIMDbID) {
		t.Fatal("movies must not receive a show-level IMDB id")
	}
}

func TestApplyLayer2WritesSeriesFields(t *testing.T) {
	doc := testsupport.NewDocument("TITL0000000000000005", "p0001", "Example")
	program := &gracenote.Program{
		TMSID:       "SH000000020000",
		RootID:      "9000002",
		ConnectorID: "EP000000020000",
		SeriesID:    "1234567",
		SeasonID:    "3",
		Titles:      []gracenote.Title{{Value: "Example Show"}},
		Seasons: []gracenote.Season{
			{SeasonID: "3", PremiereYear: 2015, TotalEpisodes: 12},
		},
	}

	enrich.ApplyLayer2(doc, program)

	meta := doc.TitleMetadata()
	if got := meta.Value(adi.AttrSeriesID); got != "3" {
		t.Fatalf("Series_ID = %q, want the season id", got)
	}
	if got := meta.Value(adi.AttrSeriesName); got != "Example Show" {
		t.Fatalf("Series_Name = %q", got)
	}
	if got := meta.Value(adi.AttrSeriesOrdinal); got != "3" {
		t.Fatalf("Series_Ordinal = %q", got)
	}
	if got := meta.Value(adi.AttrSeriesCount); got != "12" {
		t.Fatalf("Series_NumberOfItems = %q", got)
	}
	if got := meta.Value(adi.AttrShowID); got != "SH000000020000" {
		t.Fatalf("Show_ID = %q", got)
	}
	if got := meta.Value(adi.AttrShowCount); got != "1" {
		t.Fatalf("Show_NumberOfItems = %q", got)
	}
	if got := meta.Value(adi.AttrProductionYears); got != "2015" {
		t.Fatalf("Production_Years = %q", got)
	}
	if got := meta.Value(adi.AttrLayer2SeriesID); got != "1234567" {
		t.Fatalf("layer2 series id = %q", got)
	}
}

func TestSortTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Matrix", "Matrix"},
		{"A Quiet Place", "Quiet Place"},
		{"An Affair", "Affair"},
		{"the lowercase article", "lowercase article"},
		{"Theodore", "Theodore"},
		{"Matrix", "Matrix"},
		{"The ", "The "},
	}
	for _, tc := range cases {
		if got := enrich.SortTitle(tc.in); got != tc.want {
			t.Fatalf("SortTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
