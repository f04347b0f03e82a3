package compare

import (
	"encoding/json"
	"strings"

	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

// MappingChanged reports whether the provider mapping drifted from the stored
// record: the TMS and root ids, plus the provider id, paid, and pid link
// values all have to agree. Only mappings in the accepted status are
// considered; an unmapped fresh record never reports change.
func MappingChanged(stored *tracking.Mapping, fresh *gracenote.ProgramMapping) bool {
	if stored == nil || !gracenote.IsMapped(fresh) {
		return false
	}
	if !strings.EqualFold(stored.TMSID, gracenote.MappingID(fresh, gracenote.IDTypeTMS)) {
		return true
	}
	if !strings.EqualFold(stored.RootID, gracenote.MappingID(fresh, gracenote.IDTypeRoot)) {
		return true
	}
	if !strings.EqualFold(stored.PAID, gracenote.MappingLink(fresh, gracenote.LinkTypePAID)) {
		return true
	}

	var storedLinks []gracenote.TypedValue
	if stored.LinksJSON != "" {
		if err := json.Unmarshal([]byte(stored.LinksJSON), &storedLinks); err != nil {
			return true
		}
	}
	for _, linkType := range []string{gracenote.LinkTypeProviderID, gracenote.LinkTypePID} {
		if !strings.EqualFold(linkValue(storedLinks, linkType), gracenote.MappingLink(fresh, linkType)) {
			return true
		}
	}
	return false
}

func linkValue(links []gracenote.TypedValue, linkType string) string {
	for _, link := range links {
		if strings.EqualFold(link.Type, linkType) {
			return link.Value
		}
	}
	return ""
}
