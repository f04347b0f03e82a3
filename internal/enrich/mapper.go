package enrich

import (
	"strconv"
	"strings"

	"adiengine/internal/adi"
	"adiengine/internal/services/gracenote"
)

// Options bound the mapped participant lists and supply the platform block
// list written on every pass.
type Options struct {
	MaxActors      int
	MaxProducers   int
	BlockPlatforms []string
}

// ApplyLayer1 projects the program-level provider record into the title
// metadata: titles, summary, billing, genres, year, IMDB ids, and the layer1
// cross-reference ids. Empty provider values leave the stored attribute
// untouched.
func ApplyLayer1(doc *adi.Document, program *gracenote.Program, opts Options) {
	meta := doc.TitleMetadata()
	if meta == nil || program == nil {
		return
	}

	if title := program.FullTitle(); title != "" {
		meta.SetValue(adi.AttrTitle, title)
		meta.SetValue(adi.AttrTitleSortName, SortTitle(title))
	}
	setIfPresent(meta, adi.AttrSummaryShort, gracenote.SelectDescription(program.Descriptions))

	if actors := program.CastNames(opts.MaxActors); len(actors) > 0 {
		meta.SetValues(adi.AttrActors, actors)
		meta.SetValue(adi.AttrActorsDisplay, strings.Join(actors, ", "))
	}
	setListIfPresent(meta, adi.AttrDirector, program.DirectorNames())
	setListIfPresent(meta, adi.AttrProducer, program.ProducerNames(opts.MaxProducers))
	setListIfPresent(meta, adi.AttrWriter, program.WriterNames())

	setListIfPresent(meta, adi.AttrGenre, program.GenreValues())
	setListIfPresent(meta, adi.AttrGenreID, program.GenreIDs())

	setIfPresent(meta, adi.AttrYear, program.Year())
	setIfPresent(meta, adi.AttrIMDbID, program.FirstIMDBLink())
	if !program.HasMovieInfo() {
		setIfPresent(meta, adi.AttrShowIMDbID, program.LastIMDBLink())
	}

	if program.EpisodeInfo != nil {
		setIfPresent(meta, adi.AttrEpisodeName, program.EpisodeName())
		meta.SetValue(adi.AttrEpisodeOrdinal, program.EpisodeOrdinal())
		setIfPresent(meta, adi.AttrEpisodeID, program.TMSID)
	}

	setIfPresent(meta, adi.AttrLayer1TMSID, program.TMSID)
	setIfPresent(meta, adi.AttrLayer1RootID, program.RootID)

	applyBlockPlatforms(meta, opts.BlockPlatforms)
}

// ApplyLayer2 projects the series-level provider record into the title
// metadata: series and show fields, production years, and the layer2
// cross-reference ids.
func ApplyLayer2(doc *adi.Document, program *gracenote.Program) {
	meta := doc.TitleMetadata()
	if meta == nil || program == nil {
		return
	}

	setIfPresent(meta, adi.AttrSeriesID, program.GnSeriesID())
	setIfPresent(meta, adi.AttrSeriesName, program.FullTitle())
	meta.SetValue(adi.AttrSeriesOrdinal, program.SeriesOrdinal())
	setIfPresent(meta, adi.AttrSeriesSummary, gracenote.SelectDescription(program.Descriptions))
	if count := program.SeasonEpisodeCount(); count > 0 {
		meta.SetValue(adi.AttrSeriesCount, strconv.Itoa(count))
	}

	setIfPresent(meta, adi.AttrShowID, program.ShowID())
	setIfPresent(meta, adi.AttrShowName, program.ShowName(120))
	setIfPresent(meta, adi.AttrShowSummary, gracenote.SelectDescription(program.Descriptions))
	if count := program.SeasonCount(); count > 0 {
		meta.SetValue(adi.AttrShowCount, strconv.Itoa(count))
	}

	setIfPresent(meta, adi.AttrProductionYears, program.ProductionYears())

	setIfPresent(meta, adi.AttrLayer2TMSID, program.TMSID)
	setIfPresent(meta, adi.AttrLayer2RootID, program.RootID)
	setIfPresent(meta, adi.AttrLayer2SeriesID, program.SeriesID)
}

// SortTitle strips a leading English article for collation.
func SortTitle(title string) string {
	for _, article := range []string{"The ", "A ", "An "} {
		if len(title) > len(article) && strings.EqualFold(title[:len(article)], article) {
			return title[len(article):]
		}
	}
	return title
}

// applyBlockPlatforms drops any distributor-supplied block list and installs
// the configured one. Platform blocking is an operator decision, never
// carried over from the incoming package.
func applyBlockPlatforms(meta *adi.Metadata, platforms []string) {
	meta.Remove(adi.AttrBlockPlatform)
	if len(platforms) > 0 {
		meta.SetValues(adi.AttrBlockPlatform, platforms)
	}
}

func setIfPresent(meta *adi.Metadata, attr, value string) {
	if strings.TrimSpace(value) != "" {
		meta.SetValue(attr, value)
	}
}

func setListIfPresent(meta *adi.Metadata, attr string, values []string) {
	if len(values) > 0 {
		meta.SetValues(attr, values)
	}
}
