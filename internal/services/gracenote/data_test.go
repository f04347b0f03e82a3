package gracenote_test

import (
	"testing"

	"adiengine/internal/services/gracenote"
)

func TestSelectDescriptionPriority(t *testing.T) {
	cases := []struct {
		name         string
		descriptions []gracenote.Description
		want         string
	}{
		{
			name: "plot 250 wins",
			descriptions: []gracenote.Description{
				{Value: "generic", Type: "generic", Size: 100},
				{Value: "long plot", Type: "plot", Size: 250},
				{Value: "short plot", Type: "plot", Size: 100},
			},
			want: "long plot",
		},
		{
			name: "plot 100 beats generic",
			descriptions: []gracenote.Description{
				{Value: "generic", Type: "generic", Size: 100},
				{Value: "short plot", Type: "plot", Size: 100},
			},
			want: "short plot",
		},
		{
			name: "size fallback when no known type",
			descriptions: []gracenote.Description{
				{Value: "tiny", Type: "tagline", Size: 60},
				{Value: "medium", Type: "tagline", Size: 100},
			},
			want: "medium",
		},
		{
			name: "first entry as last resort",
			descriptions: []gracenote.Description{
				{Value: "only", Type: "tagline", Size: 60},
			},
			want: "only",
		},
		{name: "empty input", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gracenote.SelectDescription(tc.descriptions); got != tc.want {
				t.Fatalf("SelectDescription = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCastNamesDedupAndCap(t *testing.T) {
	program := &gracenote.Program{Cast: []gracenote.Participant{
		{Role: "Actor", FirstName: "Jane", LastName: "Doe"},
		{Role: "Voice", FirstName: "Sam", LastName: "Voice"},
		{Role: "actor", FirstName: "JANE", LastName: "DOE"},
		{Role: "Host", FirstName: "Not", LastName: "Listed"},
		{Role: "Actor", FirstName: "Third", LastName: "Actor"},
	}}

	got := program.CastNames(0)
	want := []string{"Jane Doe", "Sam Voice", "Third Actor"}
	if len(got) != len(want) {
		t.Fatalf("CastNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CastNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if capped := program.CastNames(2); len(capped) != 2 {
		t.Fatalf("CastNames(2) returned %d names", len(capped))
	}
}

func TestProducerNamesIncludesExecutives(t *testing.T) {
	program := &gracenote.Program{Crew: []gracenote.Participant{
		{Role: "Producer", FirstName: "Pat", LastName: "Producer"},
		{Role: "Executive Producer", FirstName: "Exie", LastName: "Prod"},
		{Role: "Director", FirstName: "Dee", LastName: "Rector"},
	}}

	got := program.ProducerNames(0)
	if len(got) != 2 || got[0] != "Pat Producer" || got[1] != "Exie Prod" {
		t.Fatalf("ProducerNames = %v", got)
	}
	if dirs := program.DirectorNames(); len(dirs) != 1 || dirs[0] != "Dee Rector" {
		t.Fatalf("DirectorNames = %v", dirs)
	}
}

func TestShowNameTruncation(t *testing.T) {
	program := &gracenote.Program{Titles: []gracenote.Title{{Value: "abcdefghij"}}}
	if got := program.ShowName(4); got != "abcd" {
		t.Fatalf("ShowName(4) = %q", got)
	}
	if got := program.ShowName(0); got != "abcdefghij" {
		t.Fatalf("ShowName(0) = %q, want untruncated", got)
	}
	if got := program.ShowName(100); got != "abcdefghij" {
		t.Fatalf("ShowName(100) = %q", got)
	}
}

func TestOrdinalDefaults(t *testing.T) {
	empty := &gracenote.Program{}
	if got := empty.EpisodeOrdinal(); got != gracenote.DefaultEpisodeOrdinal {
		t.Fatalf("EpisodeOrdinal = %q, want default", got)
	}
	if got := empty.SeriesOrdinal(); got != gracenote.DefaultSeriesOrdinal {
		t.Fatalf("SeriesOrdinal = %q, want default", got)
	}

	filled := &gracenote.Program{
		SeasonID:    "3",
		EpisodeInfo: &gracenote.EpisodeInfo{Number: 7},
	}
	if got := filled.EpisodeOrdinal(); got != "7" {
		t.Fatalf("EpisodeOrdinal = %q", got)
	}
	if got := filled.SeriesOrdinal(); got != "3" {
		t.Fatalf("SeriesOrdinal = %q", got)
	}

	zeroSeason := &gracenote.Program{SeasonID: "0"}
	if got := zeroSeason.SeriesOrdinal(); got != gracenote.DefaultSeriesOrdinal {
		t.Fatalf("SeriesOrdinal for season zero = %q, want default", got)
	}
}

func TestYearPrefersAirDate(t *testing.T) {
	program := &gracenote.Program{
		OrigAirDate: "2019-03-04",
		MovieInfo:   &gracenote.MovieInfo{YearOfRelease: 2021},
	}
	if got := program.Year(); got != "2019" {
		t.Fatalf("Year = %q, want air date year", got)
	}

	program.OrigAirDate = ""
	if got := program.Year(); got != "2021" {
		t.Fatalf("Year = %q, want release year fallback", got)
	}

	program.MovieInfo = nil
	if got := program.Year(); got != "" {
		t.Fatalf("Year = %q, want empty", got)
	}
}

func TestProductionYears(t *testing.T) {
	open := &gracenote.Program{Seasons: []gracenote.Season{
		{PremiereYear: 2015},
		{PremiereYear: 2016},
	}}
	if got := open.ProductionYears(); got != "2015" {
		t.Fatalf("ProductionYears = %q, want premiere only", got)
	}

	closed := &gracenote.Program{Seasons: []gracenote.Season{
		{PremiereYear: 2015},
		{PremiereYear: 2018, FinaleYear: 2019},
	}}
	if got := closed.ProductionYears(); got != "2015-2019" {
		t.Fatalf("ProductionYears = %q, want span", got)
	}
}

func TestGenreValuesNormalizesCase(t *testing.T) {
	program := &gracenote.Program{Genres: []gracenote.Genre{
		{Value: "science fiction"},
		{Value: "DRAMA"},
		{Value: "  "},
	}}
	got := program.GenreValues()
	if len(got) != 2 {
		t.Fatalf("GenreValues = %v", got)
	}
	if got[0] != "Science Fiction" || got[1] != "Drama" {
		t.Fatalf("GenreValues = %v, want title case", got)
	}
}

func TestIMDBLinks(t *testing.T) {
	program := &gracenote.Program{ExternalLinks: []gracenote.ExternalLink{
		{Source: "imdb", ID: "tt0000001"},
		{Source: "tvdb", ID: "99999"},
		{Source: "IMDB", ID: "tt0000002"},
	}}
	if got := program.FirstIMDBLink(); got != "tt0000001" {
		t.Fatalf("FirstIMDBLink = %q", got)
	}
	if got := program.LastIMDBLink(); got != "tt0000002" {
		t.Fatalf("LastIMDBLink = %q", got)
	}
}

func TestShowIDStripsEpisodePrefix(t *testing.T) {
	program := &gracenote.Program{ConnectorID: "EP012345678901"}
	if got := program.ShowID(); got != "SH012345678901" {
		t.Fatalf("ShowID = %q", got)
	}
}

func TestIsRootProgram(t *testing.T) {
	root := gracenote.UpdateRecord{TMSID: "SH0001", ConnectorID: "sh0001"}
	if !gracenote.IsRootProgram(root) {
		t.Fatal("matching ids name the root program")
	}
	episode := gracenote.UpdateRecord{TMSID: "EP0002", ConnectorID: "SH0001"}
	if gracenote.IsRootProgram(episode) {
		t.Fatal("episode records are not root programs")
	}
	if gracenote.IsRootProgram(gracenote.UpdateRecord{}) {
		t.Fatal("empty record is not a root program")
	}
}

func TestMappingAccessors(t *testing.T) {
	mapping := &gracenote.ProgramMapping{
		Status: " mapped ",
		IDs: []gracenote.TypedValue{
			{Type: "tmsid", Value: "MV1"},
			{Type: "ROOTID", Value: "900"},
		},
		Links: []gracenote.TypedValue{{Type: "Paid", Value: "TITL1"}},
	}
	if !gracenote.IsMapped(mapping) {
		t.Fatal("status comparison must ignore case and whitespace")
	}
	if got := gracenote.MappingID(mapping, gracenote.IDTypeTMS); got != "MV1" {
		t.Fatalf("MappingID = %q", got)
	}
	if got := gracenote.MappingLink(mapping, gracenote.LinkTypePAID); got != "TITL1" {
		t.Fatalf("MappingLink = %q", got)
	}
	if gracenote.IsMapped(nil) {
		t.Fatal("nil mapping is not mapped")
	}
}
