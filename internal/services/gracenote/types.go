package gracenote

import "time"

// IDType values carried by mapping id entries.
const (
	IDTypeTMS  = "TMSId"
	IDTypeRoot = "rootId"
)

// Link type values carried by mapping link entries.
const (
	LinkTypeProviderID = "providerId"
	LinkTypePAID       = "paid"
	LinkTypePID        = "pid"
)

// TypedValue is an id or link entry on a program mapping. Type comparison is
// case-insensitive on the wire.
type TypedValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ProgramMapping links a provider asset to provider program identifiers.
type ProgramMapping struct {
	Status     string       `json:"status"`
	IDs        []TypedValue `json:"ids"`
	Links      []TypedValue `json:"links"`
	UpdateID   int64        `json:"updateId"`
	UpdateDate time.Time    `json:"updateDate"`
}

// Title is a program title entry.
type Title struct {
	Value string `json:"value"`
	Type  string `json:"type"`
	Size  int    `json:"size"`
	Lang  string `json:"lang"`
}

// Description is a program description entry.
type Description struct {
	Value string `json:"value"`
	Type  string `json:"type"`
	Size  int    `json:"size"`
}

// Participant is a cast or crew member.
type Participant struct {
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Genre is a program genre entry.
type Genre struct {
	Value   string `json:"value"`
	GenreID string `json:"genreId"`
}

// MovieInfo carries movie-only program facts.
type MovieInfo struct {
	YearOfRelease int `json:"yearOfRelease"`
}

// ExternalLink points at a third-party identifier such as IMDB.
type ExternalLink struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// Season describes one season of a series program.
type Season struct {
	SeasonID     string `json:"seasonId"`
	PremiereYear int    `json:"premiereYear"`
	FinaleYear   int    `json:"finaleYear"`
	TotalEpisodes int   `json:"totalEpisodes"`
}

// EpisodeInfo carries episode-only program facts.
type EpisodeInfo struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// ImageAsset is one downloadable artwork entry on a program.
type ImageAsset struct {
	Qualifier   string `json:"qualifier"`
	URI         string `json:"uri"`
	AspectRatio string `json:"aspectRatio"`
	AdiOrder    int    `json:"adiOrder"`
	Category    string `json:"category"`
}

// Program is a layer1 (program) or layer2 (series/show) payload.
type Program struct {
	TMSID         string         `json:"tmsId"`
	RootID        string         `json:"rootId"`
	ConnectorID   string         `json:"connectorId"`
	UpdateID      int64          `json:"updateId"`
	SeriesID      string         `json:"seriesId"`
	SeasonID      string         `json:"seasonId"`
	Titles        []Title        `json:"titles"`
	Descriptions  []Description  `json:"descriptions"`
	Cast          []Participant  `json:"cast"`
	Crew          []Participant  `json:"crew"`
	Genres        []Genre        `json:"genres"`
	MovieInfo     *MovieInfo     `json:"movieInfo,omitempty"`
	OrigAirDate   string         `json:"origAirDate"`
	ExternalLinks []ExternalLink `json:"externalLinks"`
	Seasons       []Season       `json:"seasons"`
	EpisodeInfo   *EpisodeInfo   `json:"episodeInfo,omitempty"`
	Assets        []ImageAsset   `json:"assets"`
	TotalEpisodes int            `json:"totalEpisodes"`
}

// UpdateRecord is one entry in an update feed page.
type UpdateRecord struct {
	UpdateID    int64           `json:"updateId"`
	UpdateDate  time.Time       `json:"updateDate"`
	TMSID       string          `json:"tmsId"`
	RootID      string          `json:"rootId"`
	ConnectorID string          `json:"connectorId"`
	Mappings    []ProgramMapping `json:"programMappings,omitempty"`
}

// UpdatesPage is a bounded window of the provider's update feed. NextUpdateID
// of zero means the feed window expired and the sweep must jump to
// MaxUpdateID.
type UpdatesPage struct {
	Updates      []UpdateRecord `json:"updates"`
	NextUpdateID int64          `json:"nextUpdateId"`
	MaxUpdateID  int64          `json:"maxUpdateId"`
}
