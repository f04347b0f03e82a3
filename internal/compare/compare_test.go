package compare_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/compare"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/testsupport"
	"adiengine/internal/tracking"
)

func TestSingleValue(t *testing.T) {
	meta := &adi.Metadata{AppData: []adi.AppData{
		{Name: adi.AttrYear, Value: "2020"},
	}}

	cases := []struct {
		name     string
		attr     string
		incoming string
		want     bool
	}{
		{name: "equal value is unchanged", attr: adi.AttrYear, incoming: "2020", want: false},
		{name: "case and whitespace ignored", attr: adi.AttrYear, incoming: " 2020 ", want: false},
		{name: "different value changes", attr: adi.AttrYear, incoming: "2021", want: true},
		{name: "empty incoming never forces", attr: adi.AttrYear, incoming: "", want: false},
		{name: "blank incoming never forces", attr: adi.AttrYear, incoming: "   ", want: false},
		{name: "new attr with value changes", attr: adi.AttrTitle, incoming: "New", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := compare.SingleValue(nil, meta, tc.attr, tc.incoming); got != tc.want {
				t.Fatalf("SingleValue(%q, %q) = %v, want %v", tc.attr, tc.incoming, got, tc.want)
			}
		})
	}
}

func TestDetectorsLogPreviousAndIncoming(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	meta := &adi.Metadata{AppData: []adi.AppData{
		{Name: adi.AttrYear, Value: "2020"},
	}}

	if !compare.SingleValue(log, meta, adi.AttrYear, "2021") {
		t.Fatal("year change not detected")
	}
	out := buf.String()
	for _, want := range []string{"attribute changed", adi.AttrYear, "previous=2020", "incoming=2021"} {
		if !strings.Contains(out, want) {
			t.Fatalf("change log missing %q: %s", want, out)
		}
	}

	buf.Reset()
	if compare.SingleValue(log, meta, adi.AttrYear, "2020") {
		t.Fatal("unchanged year reported as changed")
	}
	if buf.Len() != 0 {
		t.Fatalf("unchanged value must not log: %s", buf.String())
	}

	buf.Reset()
	if !compare.ValueList(log, meta, adi.AttrActors, []string{"Jane Doe"}) {
		t.Fatal("new actor list not detected")
	}
	if !strings.Contains(buf.String(), "incoming=\"Jane Doe\"") {
		t.Fatalf("list change log missing incoming value: %s", buf.String())
	}
}

func TestValueListOrderMatters(t *testing.T) {
	meta := &adi.Metadata{AppData: []adi.AppData{
		{Name: adi.AttrActors, Value: "Jane Doe"},
		{Name: adi.AttrActors, Value: "John Roe"},
	}}

	if compare.ValueList(nil, meta, adi.AttrActors, []string{"Jane Doe", "John Roe"}) {
		t.Fatal("identical list reported as changed")
	}
	if !compare.ValueList(nil, meta, adi.AttrActors, []string{"John Roe", "Jane Doe"}) {
		t.Fatal("reordered billing must count as a change")
	}
	if !compare.ValueList(nil, meta, adi.AttrActors, []string{"Jane Doe"}) {
		t.Fatal("shorter list must count as a change")
	}
	if compare.ValueList(nil, meta, adi.AttrActors, nil) {
		t.Fatal("empty incoming list never forces a change")
	}
}

func TestTitleInList(t *testing.T) {
	program := &gracenote.Program{Titles: []gracenote.Title{
		{Value: "The Long Original Title"},
		{Value: "Short Title"},
	}}

	meta := &adi.Metadata{AppData: []adi.AppData{{Name: adi.AttrTitle, Value: "short title"}}}
	if compare.TitleInList(nil, meta, program) {
		t.Fatal("stored title present in the provider list is unchanged")
	}

	meta = &adi.Metadata{AppData: []adi.AppData{{Name: adi.AttrTitle, Value: "Renamed"}}}
	if !compare.TitleInList(nil, meta, program) {
		t.Fatal("stored title missing from the provider list is a change")
	}

	meta = &adi.Metadata{}
	if !compare.TitleInList(nil, meta, program) {
		t.Fatal("empty stored title with provider titles is a change")
	}

	if compare.TitleInList(nil, meta, &gracenote.Program{}) {
		t.Fatal("provider without titles never forces a change")
	}
}

func TestImages(t *testing.T) {
	stored := []tracking.ImageRef{
		{Qualifier: "Iconic", Path: "assets/a.jpg"},
		{Qualifier: "Banner-L1", Path: "assets/b.jpg"},
	}

	if compare.Images(nil, stored, []tracking.ImageRef{{Qualifier: "iconic", Path: "ASSETS/A.JPG"}}) {
		t.Fatal("case-insensitive match reported as changed")
	}
	if !compare.Images(nil, stored, []tracking.ImageRef{{Qualifier: "Iconic", Path: "assets/new.jpg"}}) {
		t.Fatal("new path for a stored qualifier is a change")
	}
	if !compare.Images(nil, stored, []tracking.ImageRef{{Qualifier: "Poster", Path: "assets/p.jpg"}}) {
		t.Fatal("unseen qualifier is a change")
	}
	if compare.Images(nil, stored, nil) {
		t.Fatal("empty wanted set never forces a change")
	}
}

func layer1Program() *gracenote.Program {
	return &gracenote.Program{
		TMSID:  "MV000000010000",
		RootID: "9000001",
		Titles: []gracenote.Title{{Value: "Example Movie"}},
		Descriptions: []gracenote.Description{
			{Value: "A plot description.", Type: "plot", Size: 250},
		},
		Cast: []gracenote.Participant{
			{Role: "Actor", FirstName: "Jane", LastName: "Doe"},
		},
		Genres:      []gracenote.Genre{{Value: "Drama", GenreID: "100"}},
		OrigAirDate: "2020-05-01",
	}
}

func enrichedLayer1Doc() *adi.Document {
	return testsupport.NewDocument(
		"TITL0000000000000001", "p0001", "Example Movie",
		testsupport.WithTitleAttr(adi.AttrActors, "Jane Doe"),
		testsupport.WithTitleAttr(adi.AttrSummaryShort, "A plot description."),
		testsupport.WithTitleAttr(adi.AttrYear, "2020"),
		testsupport.WithTitleAttr(adi.AttrGenre, "Drama"),
		testsupport.WithTitleAttr(adi.AttrLayer1TMSID, "MV000000010000"),
		testsupport.WithTitleAttr(adi.AttrLayer1RootID, "9000001"),
	)
}

func TestLayer1Changed(t *testing.T) {
	doc := enrichedLayer1Doc()
	program := layer1Program()
	if compare.Layer1Changed(nil, doc, program, 10, 5) {
		t.Fatal("in-sync document reported as changed")
	}

	program.Cast = append(program.Cast, gracenote.Participant{Role: "Actor", FirstName: "John", LastName: "Roe"})
	if !compare.Layer1Changed(nil, doc, program, 10, 5) {
		t.Fatal("extended cast must be detected")
	}

	program = layer1Program()
	program.OrigAirDate = "2021-05-01"
	if !compare.Layer1Changed(nil, doc, program, 10, 5) {
		t.Fatal("year change must be detected")
	}

	if compare.Layer1Changed(nil, doc, nil, 10, 5) {
		t.Fatal("missing program never forces a change")
	}
}

func TestEnrichmentRequiredMovieInfoAlwaysForces(t *testing.T) {
	doc := enrichedLayer1Doc()
	program := layer1Program()
	program.MovieInfo = &gracenote.MovieInfo{YearOfRelease: 2020}

	if !compare.EnrichmentRequired(nil, doc, program, nil, 10, 5, false) {
		t.Fatal("movie-level data must force regeneration")
	}

	program.MovieInfo = nil
	if compare.EnrichmentRequired(nil, doc, program, nil, 10, 5, false) {
		t.Fatal("in-sync document without movie info must not regenerate")
	}
	if !compare.EnrichmentRequired(nil, doc, program, nil, 10, 5, true) {
		t.Fatal("image change must force regeneration")
	}
}
