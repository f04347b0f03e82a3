package ingest_test

import (
	"context"
	"path/filepath"
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/ingest"
	"adiengine/internal/logging"
	"adiengine/internal/queue"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/testsupport"
	"adiengine/internal/tracking"
)

type stubEnrichProvider struct {
	layer1 *gracenote.Program
	layer2 *gracenote.Program
}

func (p *stubEnrichProvider) GetLayer1Program(context.Context, string) (*gracenote.Program, string, error) {
	if p.layer1 == nil {
		return nil, "", gracenote.ErrNotFound
	}
	return p.layer1, `{"tier":"layer1"}`, nil
}

func (p *stubEnrichProvider) GetLayer2Program(context.Context, string) (*gracenote.Program, string, error) {
	if p.layer2 == nil {
		return nil, "", gracenote.ErrNotFound
	}
	return p.layer2, `{"tier":"layer2"}`, nil
}

func (p *stubEnrichProvider) DownloadImage(context.Context, string) ([]byte, error) {
	return nil, gracenote.ErrNotFound
}

func TestEnrichStoresSeriesIdentityAndCachesLookups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Enrichment.DownloadImages = false
	tracker := testsupport.MustOpenTracking(t, cfg)
	ctx := context.Background()

	paid := "TITL0000000000000031"
	onapiID := "p0001" + paid
	if err := tracker.SaveMapping(ctx, &tracking.Mapping{
		OnAPIProviderID: onapiID,
		PAID:            paid,
		TMSID:           "EP000000060001",
		RootID:          "9000006",
		Status:          tracking.StatusMapped,
	}); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}
	// The mapping stage seeds the series row with the episode's own ids.
	if err := tracker.Save(ctx, &tracking.Row{
		Tier:   tracking.TierLayer2,
		PAID:   paid,
		TMSID:  "EP000000060001",
		RootID: "9000006",
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	doc := testsupport.NewDocument(paid, "p0001", "Example Episode")
	workDir := t.TempDir()
	adiPath := filepath.Join(workDir, "ADI.XML")
	if err := adi.Save(doc, adiPath); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	provider := &stubEnrichProvider{
		layer1: &gracenote.Program{
			TMSID:       "EP000000060001",
			RootID:      "9000006",
			ConnectorID: "SH000000060000",
			Titles:      []gracenote.Title{{Value: "Example Episode"}},
		},
		layer2: &gracenote.Program{
			TMSID:       "SH000000060000",
			RootID:      "9100006",
			ConnectorID: "SH000000060000",
			SeriesID:    "987654",
			UpdateID:    77,
			Titles:      []gracenote.Title{{Value: "Example Show"}},
		},
	}

	stage := ingest.NewEnrichStage(cfg, tracker, provider, logging.NewNop())
	item := &queue.Item{
		PAID:            paid,
		ProviderID:      "p0001",
		OnAPIProviderID: onapiID,
		WorkDir:         workDir,
		AdiPath:         adiPath,
	}
	if err := stage.Execute(ctx, item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	row, err := tracker.RowByPAID(ctx, tracking.TierLayer2, paid)
	if err != nil {
		t.Fatalf("RowByPAID failed: %v", err)
	}
	if row == nil {
		t.Fatal("series tracking row missing")
	}
	if row.ConnectorID != "SH000000060000" || row.RootID != "9100006" {
		t.Fatalf("series identity not stored: connector=%q root=%q", row.ConnectorID, row.RootID)
	}
	if row.TMSID != "SH000000060000" || row.SeriesID != "987654" {
		t.Fatalf("series ids not stored: tms=%q series=%q", row.TMSID, row.SeriesID)
	}
	if row.UpdateID != 77 {
		t.Fatalf("row update id = %d, want the series record's 77", row.UpdateID)
	}
	if !row.UpdatesChecked || row.RequiresEnrichment {
		t.Fatalf("reseeded row flags = checked:%v enrich:%v", row.UpdatesChecked, row.RequiresEnrichment)
	}

	entry, err := tracker.LookupData(ctx, onapiID)
	if err != nil {
		t.Fatalf("LookupData failed: %v", err)
	}
	if entry == nil || entry.Layer1Data == "" || entry.Layer2Data == "" {
		t.Fatal("layer payloads must be cached during enrichment")
	}
}
