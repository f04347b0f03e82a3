package tracking

import (
	"fmt"
	"strings"
	"time"
)

// Tier names one of the three update-tracking feeds.
type Tier string

const (
	TierMapping Tier = "mapping"
	TierLayer1  Tier = "layer1"
	TierLayer2  Tier = "layer2"
)

// Tiers returns every tier in sweep order.
func Tiers() []Tier {
	return []Tier{TierMapping, TierLayer1, TierLayer2}
}

func (t Tier) table() (string, error) {
	switch t {
	case TierMapping:
		return "mapping_tracking", nil
	case TierLayer1:
		return "layer1_tracking", nil
	case TierLayer2:
		return "layer2_tracking", nil
	default:
		return "", fmt.Errorf("unknown tracking tier %q", string(t))
	}
}

// Row is a per-asset tracking record within one tier. The three tier tables
// share a column set so sweep and claim logic stay uniform. Mapping and
// layer1 rows key on the program tms/root ids; layer2 rows additionally carry
// the series connector id and series root id, written once the series record
// has been fetched, because series update feeds identify programs by
// connector rather than by the episode's tms id.
type Row struct {
	ID                 int64
	Tier               Tier
	ProviderID         string
	PAID               string
	TMSID              string
	RootID             string
	ConnectorID        string
	SeriesID           string
	UpdateID           int64
	UpdateDate         time.Time
	NextUpdateID       int64
	MaxUpdateID        int64
	UpdatesChecked     bool
	RequiresEnrichment bool
	IngestUUID         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Watermarks is the single-row cursor state shared by the sweep loop.
type Watermarks struct {
	Mapping     int64
	Layer1      int64
	Layer2      int64
	InOperation bool
	UpdatedAt   time.Time
}

// For returns the cursor for the given tier.
func (w Watermarks) For(tier Tier) int64 {
	switch tier {
	case TierMapping:
		return w.Mapping
	case TierLayer1:
		return w.Layer1
	case TierLayer2:
		return w.Layer2
	default:
		return 0
	}
}

// Mapping is a provider mapping row linking an asset to provider program ids.
type Mapping struct {
	ID              int64
	OnAPIProviderID string
	PAID            string
	TMSID           string
	RootID          string
	Status          string
	LinksJSON       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StatusMapped is the provider mapping status accepted by the pipeline.
const StatusMapped = "Mapped"

// ImageRef names one enriched image on an asset.
type ImageRef struct {
	Qualifier string
	Path      string
}

// EncodeImageRefs renders image references in the stored wire form:
// "qualifier: assets/file" entries joined by commas.
func EncodeImageRefs(refs []ImageRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.Qualifier) == "" || strings.TrimSpace(ref.Path) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.TrimSpace(ref.Qualifier), strings.TrimSpace(ref.Path)))
	}
	return strings.Join(parts, ", ")
}

// DecodeImageRefs parses the stored image list form. Malformed entries are
// skipped rather than failing the whole list.
func DecodeImageRefs(encoded string) []ImageRef {
	var refs []ImageRef
	for _, part := range strings.Split(encoded, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, ":")
		if idx <= 0 {
			continue
		}
		qualifier := strings.TrimSpace(part[:idx])
		path := strings.TrimSpace(part[idx+1:])
		if qualifier == "" || path == "" {
			continue
		}
		refs = append(refs, ImageRef{Qualifier: qualifier, Path: path})
	}
	return refs
}

// Document is the stored enriched ADI state of an asset.
type Document struct {
	PAID        string
	EnrichedXML string
	UpdateXML   string
	EnrichedAt  time.Time
	UpdatedAt   time.Time
}

// LookupEntry caches raw provider payloads per asset.
type LookupEntry struct {
	OnAPIProviderID string
	MappingData     string
	Layer1Data      string
	Layer2Data      string
	UpdatedAt       time.Time
}
