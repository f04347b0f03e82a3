package compare_test

import (
	"testing"

	"adiengine/internal/compare"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/tracking"
)

func storedMapping() *tracking.Mapping {
	return &tracking.Mapping{
		OnAPIProviderID: "p0001TITL0000000000000001",
		PAID:            "TITL0000000000000001",
		TMSID:           "MV000000010000",
		RootID:          "9000001",
		Status:          tracking.StatusMapped,
		LinksJSON:       `[{"type":"providerId","value":"p0001"},{"type":"pid","value":"PID1"}]`,
	}
}

func freshMapping() *gracenote.ProgramMapping {
	return &gracenote.ProgramMapping{
		Status: "Mapped",
		IDs: []gracenote.TypedValue{
			{Type: "TMSId", Value: "MV000000010000"},
			{Type: "rootId", Value: "9000001"},
		},
		Links: []gracenote.TypedValue{
			{Type: "providerId", Value: "p0001"},
			{Type: "paid", Value: "TITL0000000000000001"},
			{Type: "pid", Value: "PID1"},
		},
	}
}

func TestMappingChanged(t *testing.T) {
	if compare.MappingChanged(storedMapping(), freshMapping()) {
		t.Fatal("identical mapping reported as changed")
	}

	fresh := freshMapping()
	fresh.IDs[0].Value = "MV000000099999"
	if !compare.MappingChanged(storedMapping(), fresh) {
		t.Fatal("tms id drift must be detected")
	}

	fresh = freshMapping()
	fresh.Links[2].Value = "PID2"
	if !compare.MappingChanged(storedMapping(), fresh) {
		t.Fatal("pid link drift must be detected")
	}

	fresh = freshMapping()
	fresh.Status = "Unmapped"
	if compare.MappingChanged(storedMapping(), fresh) {
		t.Fatal("unaccepted mapping never reports change")
	}

	if compare.MappingChanged(nil, freshMapping()) {
		t.Fatal("missing stored record never reports change")
	}

	broken := storedMapping()
	broken.LinksJSON = "{not json"
	if !compare.MappingChanged(broken, freshMapping()) {
		t.Fatal("unreadable stored links must force a refresh")
	}
}
