package adi

import (
	"encoding/xml"
	"strings"
)

// Asset_Class values used by CableLabs ADI 1.1 packages.
const (
	ClassTitle   = "title"
	ClassMovie   = "movie"
	ClassPreview = "preview"
	ClassPoster  = "poster"
	ClassBox     = "box cover"
	ClassImage   = "image"
)

// App_Data names written and compared during enrichment.
const (
	AttrAudience        = "Audience"
	AttrEncodingType    = "Encoding_Type"
	AttrHDContent       = "HDContent"
	AttrTitle           = "Title"
	AttrTitleSortName   = "Title_Sort_Name"
	AttrSummaryShort    = "Summary_Short"
	AttrActors          = "Actors"
	AttrActorsDisplay   = "Actors_Display"
	AttrDirector        = "Director"
	AttrProducer        = "Producer"
	AttrWriter          = "Writer"
	AttrYear            = "Year"
	AttrGenre           = "Genre"
	AttrGenreID         = "GenreID"
	AttrIMDbID          = "IMDb_ID"
	AttrShowIMDbID      = "Show_IMDb_ID"
	AttrEpisodeName     = "Episode_Name"
	AttrEpisodeOrdinal  = "Episode_Ordinal"
	AttrEpisodeID       = "Episode_ID"
	AttrSeriesID        = "Series_ID"
	AttrSeriesName      = "Series_Name"
	AttrSeriesOrdinal   = "Series_Ordinal"
	AttrSeriesCount     = "Series_NumberOfItems"
	AttrSeriesSummary   = "Series_Summary"
	AttrShowID          = "Show_ID"
	AttrShowName        = "Show_Name"
	AttrShowSummary     = "Show_Summary"
	AttrShowCount       = "Show_NumberOfItems"
	AttrProductionYears = "Production_Years"
	AttrBlockPlatform   = "Block_Platform"
	AttrImages          = "GN_Images"
	AttrLayer1TMSID     = "GN_Layer1_TMSId"
	AttrLayer1RootID    = "GN_Layer1_RootId"
	AttrLayer2TMSID     = "GN_Layer2_TMSId"
	AttrLayer2RootID    = "GN_Layer2_RootId"
	AttrLayer2SeriesID  = "GN_Layer2_SeriesId"
	AttrContentCheckSum = "Content_CheckSum"
	AttrContentFileSize = "Content_FileSize"
	AttrImageQualifier  = "Image_Qualifier"
	AttrImageAspect     = "Image_Aspect_Ratio"
	AttrImageAdiOrder   = "Image_AdiOrder"
)

// Document is a full ADI package description.
type Document struct {
	XMLName  xml.Name   `xml:"ADI"`
	Metadata Metadata   `xml:"Metadata"`
	Asset    TitleAsset `xml:"Asset"`
}

// Metadata pairs an AMS header with its App_Data attribute list.
type Metadata struct {
	AMS     AMS       `xml:"AMS"`
	AppData []AppData `xml:"App_Data"`
}

// AMS is the asset management header carried by every metadata block.
type AMS struct {
	AssetClass   string `xml:"Asset_Class,attr"`
	AssetID      string `xml:"Asset_ID,attr"`
	AssetName    string `xml:"Asset_Name,attr"`
	CreationDate string `xml:"Creation_Date,attr"`
	Description  string `xml:"Description,attr"`
	Product      string `xml:"Product,attr"`
	Provider     string `xml:"Provider,attr"`
	ProviderID   string `xml:"Provider_ID,attr"`
	Verb         string `xml:"Verb,attr"`
	VersionMajor int    `xml:"Version_Major,attr"`
	VersionMinor int    `xml:"Version_Minor,attr"`
}

// AppData is a single named attribute on a metadata block.
type AppData struct {
	App   string `xml:"App,attr"`
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

// TitleAsset is the top-level title asset holding all media sub-assets.
type TitleAsset struct {
	Metadata Metadata     `xml:"Metadata"`
	Assets   []MediaAsset `xml:"Asset"`
}

// MediaAsset is a movie, preview, or image sub-asset.
type MediaAsset struct {
	Metadata Metadata `xml:"Metadata"`
	Content  *Content `xml:"Content"`
}

// Content points at the physical file delivered with the package.
type Content struct {
	Value string `xml:"Value,attr"`
}

// Value returns the first App_Data value with the given name, or "".
func (m *Metadata) Value(name string) string {
	for _, entry := range m.AppData {
		if strings.EqualFold(entry.Name, name) {
			return entry.Value
		}
	}
	return ""
}

// Has reports whether an App_Data entry with the given name exists.
func (m *Metadata) Has(name string) bool {
	for _, entry := range m.AppData {
		if strings.EqualFold(entry.Name, name) {
			return true
		}
	}
	return false
}

// SetValue updates the named App_Data entry in place, appending a new entry
// when none exists. The App attribute of new entries follows the existing
// entries, falling back to the AMS product.
func (m *Metadata) SetValue(name, value string) {
	for i := range m.AppData {
		if strings.EqualFold(m.AppData[i].Name, name) {
			m.AppData[i].Value = value
			return
		}
	}
	app := m.AMS.Product
	if len(m.AppData) > 0 {
		app = m.AppData[0].App
	}
	m.AppData = append(m.AppData, AppData{App: app, Name: name, Value: value})
}

// Remove deletes every App_Data entry with the given name and reports whether
// anything was removed.
func (m *Metadata) Remove(name string) bool {
	kept := m.AppData[:0]
	removed := false
	for _, entry := range m.AppData {
		if strings.EqualFold(entry.Name, name) {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	m.AppData = kept
	return removed
}

// SetValues replaces every App_Data entry with the given name by one entry
// per value, appended in order. Passing no values just removes the name.
func (m *Metadata) SetValues(name string, values []string) {
	app := m.AMS.Product
	if len(m.AppData) > 0 {
		app = m.AppData[0].App
	}
	m.Remove(name)
	for _, value := range values {
		m.AppData = append(m.AppData, AppData{App: app, Name: name, Value: value})
	}
}

// Values returns every App_Data value with the given name in document order.
func (m *Metadata) Values(name string) []string {
	var values []string
	for _, entry := range m.AppData {
		if strings.EqualFold(entry.Name, name) {
			values = append(values, entry.Value)
		}
	}
	return values
}

// TitleMetadata returns the metadata block of the title asset.
func (d *Document) TitleMetadata() *Metadata {
	return &d.Asset.Metadata
}

// MovieAsset returns the movie sub-asset when present.
func (d *Document) MovieAsset() *MediaAsset {
	return d.assetByClass(ClassMovie)
}

// PreviewAsset returns the preview sub-asset when present.
func (d *Document) PreviewAsset() *MediaAsset {
	return d.assetByClass(ClassPreview)
}

func (d *Document) assetByClass(class string) *MediaAsset {
	for i := range d.Asset.Assets {
		if strings.EqualFold(d.Asset.Assets[i].Metadata.AMS.AssetClass, class) {
			return &d.Asset.Assets[i]
		}
	}
	return nil
}

// ImageAssets returns every sub-asset that is neither movie nor preview.
func (d *Document) ImageAssets() []*MediaAsset {
	var images []*MediaAsset
	for i := range d.Asset.Assets {
		class := strings.ToLower(d.Asset.Assets[i].Metadata.AMS.AssetClass)
		if class == ClassMovie || class == ClassPreview {
			continue
		}
		images = append(images, &d.Asset.Assets[i])
	}
	return images
}

// HasMediaContent reports whether a movie sub-asset with physical content is
// present; such packages are full ingests, never metadata updates.
func (d *Document) HasMediaContent() bool {
	movie := d.MovieAsset()
	return movie != nil && movie.Content != nil && strings.TrimSpace(movie.Content.Value) != ""
}

// HasPreviewContent reports whether the package declares its own preview file.
func (d *Document) HasPreviewContent() bool {
	preview := d.PreviewAsset()
	return preview != nil && preview.Content != nil && strings.TrimSpace(preview.Content.Value) != ""
}

// VersionMajor returns the title asset's major version.
func (d *Document) VersionMajor() int {
	return d.Asset.Metadata.AMS.VersionMajor
}

// VersionMinor returns the title asset's minor version.
func (d *Document) VersionMinor() int {
	return d.Asset.Metadata.AMS.VersionMinor
}

// PAID returns the title asset's package asset identifier.
func (d *Document) PAID() string {
	return strings.TrimSpace(d.Asset.Metadata.AMS.AssetID)
}

// SetVersionMinor writes the minor version onto the package header, the title
// asset, and every sub-asset so a generated update stays internally
// consistent.
func (d *Document) SetVersionMinor(minor int) {
	d.Metadata.AMS.VersionMinor = minor
	d.Asset.Metadata.AMS.VersionMinor = minor
	for i := range d.Asset.Assets {
		d.Asset.Assets[i].Metadata.AMS.VersionMinor = minor
	}
}

// SetVersionMajor writes the major version onto every metadata block.
func (d *Document) SetVersionMajor(major int) {
	d.Metadata.AMS.VersionMajor = major
	d.Asset.Metadata.AMS.VersionMajor = major
	for i := range d.Asset.Assets {
		d.Asset.Assets[i].Metadata.AMS.VersionMajor = major
	}
}

// SetAssetID rewrites the asset identifier on every metadata block, keeping
// the per-class prefix of each sub-asset intact when present.
func (d *Document) SetAssetID(paid string) {
	d.Metadata.AMS.AssetID = paid
	d.Asset.Metadata.AMS.AssetID = paid
	for i := range d.Asset.Assets {
		sub := &d.Asset.Assets[i].Metadata.AMS
		if len(sub.AssetID) > 4 && len(paid) > 4 {
			sub.AssetID = sub.AssetID[:4] + paid[4:]
		} else {
			sub.AssetID = paid
		}
	}
}
