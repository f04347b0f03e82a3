package gracenote

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Ordinal fallbacks written when the provider reports zero values.
const (
	DefaultEpisodeOrdinal = "100001"
	DefaultSeriesOrdinal  = "100000"
)

// MappingID extracts an id entry by type, case-insensitively.
func MappingID(mapping *ProgramMapping, idType string) string {
	if mapping == nil {
		return ""
	}
	for _, entry := range mapping.IDs {
		if strings.EqualFold(entry.Type, idType) {
			return entry.Value
		}
	}
	return ""
}

// MappingLink extracts a link entry by type, case-insensitively.
func MappingLink(mapping *ProgramMapping, linkType string) string {
	if mapping == nil {
		return ""
	}
	for _, entry := range mapping.Links {
		if strings.EqualFold(entry.Type, linkType) {
			return entry.Value
		}
	}
	return ""
}

// IsMapped reports whether the mapping reached the accepted status.
func IsMapped(mapping *ProgramMapping) bool {
	return mapping != nil && strings.EqualFold(strings.TrimSpace(mapping.Status), "Mapped")
}

// HasMovieInfo reports whether the program carries movie-only facts.
func (p *Program) HasMovieInfo() bool {
	return p != nil && p.MovieInfo != nil
}

// FirstIMDBLink returns the first external IMDB id on the program, used for
// the program-level identifier.
func (p *Program) FirstIMDBLink() string {
	if p == nil {
		return ""
	}
	for _, link := range p.ExternalLinks {
		if strings.EqualFold(link.Source, "imdb") {
			return link.ID
		}
	}
	return ""
}

// LastIMDBLink returns the last external IMDB id on the program, used for the
// show-level identifier.
func (p *Program) LastIMDBLink() string {
	if p == nil {
		return ""
	}
	var last string
	for _, link := range p.ExternalLinks {
		if strings.EqualFold(link.Source, "imdb") {
			last = link.ID
		}
	}
	return last
}

// TitleValues returns every title value in provider order.
func (p *Program) TitleValues() []string {
	if p == nil {
		return nil
	}
	values := make([]string, 0, len(p.Titles))
	for _, title := range p.Titles {
		if trimmed := strings.TrimSpace(title.Value); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// FullTitle returns the first title value.
func (p *Program) FullTitle() string {
	if values := p.TitleValues(); len(values) > 0 {
		return values[0]
	}
	return ""
}

// ShowName returns the first title value truncated to maxLen runes; a maxLen
// of zero disables truncation.
func (p *Program) ShowName(maxLen int) string {
	name := p.FullTitle()
	if maxLen <= 0 {
		return name
	}
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen])
}

// SelectDescription picks the description used for enrichment: plot-250, then
// plot-100, then generic-100, then any description of size 250 or 100 in
// provider order, then the first entry.
func SelectDescription(descriptions []Description) string {
	type rule struct {
		descType string
		size     int
	}
	for _, r := range []rule{{"plot", 250}, {"plot", 100}, {"generic", 100}} {
		for _, desc := range descriptions {
			if strings.EqualFold(desc.Type, r.descType) && desc.Size == r.size {
				return desc.Value
			}
		}
	}
	for _, size := range []int{250, 100} {
		for _, desc := range descriptions {
			if desc.Size == size {
				return desc.Value
			}
		}
	}
	if len(descriptions) > 0 {
		return descriptions[0].Value
	}
	return ""
}

var genreCaser = cases.Title(language.Und)

// GenreValues returns genre display names in provider order. The feed is
// inconsistent about casing, so values are normalized to title case.
func (p *Program) GenreValues() []string {
	if p == nil {
		return nil
	}
	values := make([]string, 0, len(p.Genres))
	for _, genre := range p.Genres {
		if trimmed := strings.TrimSpace(genre.Value); trimmed != "" {
			values = append(values, genreCaser.String(trimmed))
		}
	}
	return values
}

// GenreIDs returns genre ids in provider order.
func (p *Program) GenreIDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Genres))
	for _, genre := range p.Genres {
		if trimmed := strings.TrimSpace(genre.GenreID); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// EpisodeName returns the provider episode title.
func (p *Program) EpisodeName() string {
	if p == nil || p.EpisodeInfo == nil {
		return ""
	}
	return strings.TrimSpace(p.EpisodeInfo.Title)
}

// SeasonEpisodeCount returns the episode count of the season matching the
// program's season id, falling back to the program total.
func (p *Program) SeasonEpisodeCount() int {
	if p == nil {
		return 0
	}
	for _, season := range p.Seasons {
		if season.SeasonID != "" && season.SeasonID == p.SeasonID {
			return season.TotalEpisodes
		}
	}
	return p.TotalEpisodes
}

// SeasonCount returns the number of seasons the provider reports.
func (p *Program) SeasonCount() int {
	if p == nil {
		return 0
	}
	return len(p.Seasons)
}

// Year returns the program year: the original air date year when present,
// else the movie info year of release.
func (p *Program) Year() string {
	if p == nil {
		return ""
	}
	if len(p.OrigAirDate) >= 4 {
		if _, err := strconv.Atoi(p.OrigAirDate[:4]); err == nil {
			return p.OrigAirDate[:4]
		}
	}
	if p.MovieInfo != nil && p.MovieInfo.YearOfRelease > 0 {
		return strconv.Itoa(p.MovieInfo.YearOfRelease)
	}
	return ""
}

// ProductionYears renders the series production span: the premiere year,
// suffixed with the finale year only when the finale is a four digit year.
func (p *Program) ProductionYears() string {
	if p == nil || len(p.Seasons) == 0 {
		return ""
	}
	premiere := p.Seasons[0].PremiereYear
	finale := p.Seasons[len(p.Seasons)-1].FinaleYear
	if premiere <= 0 {
		return ""
	}
	if finale >= 1000 && finale <= 9999 {
		return fmt.Sprintf("%d-%d", premiere, finale)
	}
	return strconv.Itoa(premiere)
}

// EpisodeOrdinal returns the provider episode number, substituting the
// default ordinal when the provider reports zero.
func (p *Program) EpisodeOrdinal() string {
	if p == nil || p.EpisodeInfo == nil || p.EpisodeInfo.Number == 0 {
		return DefaultEpisodeOrdinal
	}
	return strconv.Itoa(p.EpisodeInfo.Number)
}

// SeriesOrdinal returns the numeric season id, substituting the default
// ordinal when the provider reports season zero.
func (p *Program) SeriesOrdinal() string {
	if p == nil {
		return DefaultSeriesOrdinal
	}
	seasonID := strings.TrimSpace(p.SeasonID)
	if seasonID == "" || seasonID == "0" {
		return DefaultSeriesOrdinal
	}
	return seasonID
}

// GnSeriesID returns the identifier naming the series tier: the season id
// when one exists, else the series id.
func (p *Program) GnSeriesID() string {
	if p == nil {
		return ""
	}
	if id := strings.TrimSpace(p.SeasonID); id != "" && id != "0" {
		return id
	}
	return strings.TrimSpace(p.SeriesID)
}

// ShowID strips the episode suffix from a connector id to name the show.
func (p *Program) ShowID() string {
	if p == nil {
		return ""
	}
	connector := strings.TrimSpace(p.ConnectorID)
	if len(connector) > 2 {
		return "SH" + connector[2:]
	}
	return connector
}

// IsRootProgram reports whether an update record targets the root program of
// a layer2 feed entry rather than a child episode: the TMS id equals the
// connector id.
func IsRootProgram(record UpdateRecord) bool {
	return record.TMSID != "" && strings.EqualFold(record.TMSID, record.ConnectorID)
}
