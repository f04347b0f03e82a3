// Package compare holds the stateless change detectors that decide whether a
// previously enriched document still matches fresh provider data. Every
// function answers the same question: would re-running enrichment write a
// different value than the one stored today. Detectors log the attribute with
// its previous and incoming value whenever they find a difference, so the
// generator's decision trail names the exact field that moved.
package compare

import (
	"log/slog"
	"strconv"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

func logChange(log *slog.Logger, attr, previous, incoming string) {
	if log == nil {
		return
	}
	log.Debug("attribute changed",
		slog.String("attr", attr),
		slog.String("previous", previous),
		slog.String("incoming", incoming))
}

// SingleValue reports whether attr would change. Empty incoming values never
// force a change; comparison ignores case and surrounding whitespace.
func SingleValue(log *slog.Logger, meta *adi.Metadata, attr, incoming string) bool {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return false
	}
	previous := strings.TrimSpace(meta.Value(attr))
	if strings.EqualFold(previous, incoming) {
		return false
	}
	logChange(log, attr, previous, incoming)
	return true
}

// ValueList reports whether a repeated attribute would change. Order matters:
// enrichment writes entries in provider billing order.
func ValueList(log *slog.Logger, meta *adi.Metadata, attr string, incoming []string) bool {
	if len(incoming) == 0 {
		return false
	}
	current := meta.Values(attr)
	changed := len(current) != len(incoming)
	if !changed {
		for i := range incoming {
			if !strings.EqualFold(strings.TrimSpace(current[i]), strings.TrimSpace(incoming[i])) {
				changed = true
				break
			}
		}
	}
	if changed {
		logChange(log, attr, strings.Join(current, ", "), strings.Join(incoming, ", "))
	}
	return changed
}

// Actors reports whether the capped actor billing would change.
func Actors(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program, maxActors int) bool {
	return ValueList(log, meta, adi.AttrActors, program.CastNames(maxActors))
}

// Crew reports whether any of the crew attributes would change.
func Crew(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program, maxProducers int) bool {
	if ValueList(log, meta, adi.AttrDirector, program.DirectorNames()) {
		return true
	}
	if ValueList(log, meta, adi.AttrProducer, program.ProducerNames(maxProducers)) {
		return true
	}
	return ValueList(log, meta, adi.AttrWriter, program.WriterNames())
}

// Description reports whether the selected short summary would change.
func Description(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program) bool {
	if program == nil {
		return false
	}
	return SingleValue(log, meta, adi.AttrSummaryShort, gracenote.SelectDescription(program.Descriptions))
}

// TitleInList reports a change when the stored title no longer appears among
// the provider title values. Provider title churn within the list does not
// count as a change.
func TitleInList(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program) bool {
	values := program.TitleValues()
	if len(values) == 0 {
		return false
	}
	current := strings.TrimSpace(meta.Value(adi.AttrTitle))
	if current == "" {
		logChange(log, adi.AttrTitle, "", strings.Join(values, ", "))
		return true
	}
	for _, value := range values {
		if strings.EqualFold(current, value) {
			return false
		}
	}
	logChange(log, adi.AttrTitle, current, strings.Join(values, ", "))
	return true
}

// Year reports whether the program year would change.
func Year(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program) bool {
	return SingleValue(log, meta, adi.AttrYear, program.Year())
}

// IMDB reports whether either IMDB identifier would change: the first
// external link names the program, the last names the show.
func IMDB(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program) bool {
	if SingleValue(log, meta, adi.AttrIMDbID, program.FirstIMDBLink()) {
		return true
	}
	return SingleValue(log, meta, adi.AttrShowIMDbID, program.LastIMDBLink())
}

// ProductionYears reports whether the series production span would change.
func ProductionYears(log *slog.Logger, meta *adi.Metadata, program *gracenote.Program) bool {
	return SingleValue(log, meta, adi.AttrProductionYears, program.ProductionYears())
}

// Images reports whether the stored image set differs from the refs that the
// image workflow would select today. Both slices are keyed by qualifier.
func Images(log *slog.Logger, stored, want []tracking.ImageRef) bool {
	if len(want) == 0 {
		return false
	}
	current := make(map[string]string, len(stored))
	for _, ref := range stored {
		current[strings.ToLower(ref.Qualifier)] = ref.Path
	}
	for _, ref := range want {
		path, ok := current[strings.ToLower(ref.Qualifier)]
		if !ok || !strings.EqualFold(path, ref.Path) {
			logChange(log, ref.Qualifier, path, ref.Path)
			return true
		}
	}
	return false
}

// Layer1Changed aggregates the program-level detectors.
func Layer1Changed(log *slog.Logger, doc *adi.Document, program *gracenote.Program, maxActors, maxProducers int) bool {
	if doc == nil || program == nil {
		return false
	}
	meta := doc.TitleMetadata()
	if meta == nil {
		return false
	}
	return Actors(log, meta, program, maxActors) ||
		Crew(log, meta, program, maxProducers) ||
		Description(log, meta, program) ||
		TitleInList(log, meta, program) ||
		Year(log, meta, program) ||
		IMDB(log, meta, program) ||
		SingleValue(log, meta, adi.AttrLayer1TMSID, program.TMSID) ||
		SingleValue(log, meta, adi.AttrLayer1RootID, program.RootID) ||
		ValueList(log, meta, adi.AttrGenre, program.GenreValues())
}

// Layer2Changed aggregates the series-level detectors.
func Layer2Changed(log *slog.Logger, doc *adi.Document, program *gracenote.Program) bool {
	if doc == nil || program == nil {
		return false
	}
	meta := doc.TitleMetadata()
	if meta == nil {
		return false
	}
	checks := []bool{
		SingleValue(log, meta, adi.AttrEpisodeName, program.EpisodeName()),
		SingleValue(log, meta, adi.AttrEpisodeOrdinal, program.EpisodeOrdinal()),
		SingleValue(log, meta, adi.AttrSeriesID, program.GnSeriesID()),
		SingleValue(log, meta, adi.AttrSeriesName, program.FullTitle()),
		SingleValue(log, meta, adi.AttrSeriesOrdinal, program.SeriesOrdinal()),
		SingleValue(log, meta, adi.AttrSeriesSummary, gracenote.SelectDescription(program.Descriptions)),
		SingleValue(log, meta, adi.AttrSeriesCount, nonZero(program.SeasonEpisodeCount())),
		SingleValue(log, meta, adi.AttrShowID, program.ShowID()),
		SingleValue(log, meta, adi.AttrShowName, program.ShowName(120)),
		SingleValue(log, meta, adi.AttrShowCount, nonZero(program.SeasonCount())),
		SingleValue(log, meta, adi.AttrLayer2TMSID, program.TMSID),
		SingleValue(log, meta, adi.AttrLayer2RootID, program.RootID),
		SingleValue(log, meta, adi.AttrLayer2SeriesID, program.SeriesID),
		ValueList(log, meta, adi.AttrGenre, program.GenreValues()),
		ProductionYears(log, meta, program),
	}
	for _, changed := range checks {
		if changed {
			return true
		}
	}
	return false
}

func nonZero(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// EnrichmentRequired decides whether a tracked asset needs a regenerated
// package. Movie-level data always forces regeneration when present, because
// movie facts are not tracked attribute by attribute.
func EnrichmentRequired(log *slog.Logger, doc *adi.Document, layer1, layer2 *gracenote.Program, maxActors, maxProducers int, imageChanged bool) bool {
	if Layer1Changed(log, doc, layer1, maxActors, maxProducers) {
		return true
	}
	if layer1.HasMovieInfo() {
		return true
	}
	if Layer2Changed(log, doc, layer2) {
		return true
	}
	return imageChanged
}
