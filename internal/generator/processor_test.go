package generator_test

import (
	"context"
	"testing"

	"adiengine/internal/adi"
	"adiengine/internal/generator"
	"adiengine/internal/logging"
	"adiengine/internal/testsupport"
	"adiengine/internal/tracking"
)

func storeEnrichedDoc(t *testing.T, store *tracking.Store, paid string) {
	t.Helper()
	doc := testsupport.NewDocument(paid, "p0001", "Example Title", testsupport.WithVersion(1, 1))
	payload, err := adi.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := store.SaveEnrichedDocument(context.Background(), paid, string(payload)); err != nil {
		t.Fatalf("SaveEnrichedDocument failed: %v", err)
	}
}

func TestRunClearsFlagWhenProviderDroppedRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenTracking(t, cfg)
	ctx := context.Background()

	rows := []*tracking.Row{
		{
			Tier:               tracking.TierLayer1,
			PAID:               "TITL0000000000000011",
			TMSID:              "MV000000110000",
			RootID:             "9000011",
			RequiresEnrichment: true,
		},
		{
			Tier:               tracking.TierLayer2,
			PAID:               "TITL0000000000000012",
			TMSID:              "SH000000120000",
			RootID:             "9100012",
			ConnectorID:        "SH000000120000",
			RequiresEnrichment: true,
		},
	}
	for _, row := range rows {
		storeEnrichedDoc(t, store, row.PAID)
		if err := store.Save(ctx, row); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	// The zero-value provider answers every lookup with not-found: the
	// record no longer exists upstream, which is a no-change, not an error.
	processor := generator.NewProcessor(cfg, store, &fakeProvider{}, logging.NewNop(), nil)
	generated, err := processor.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if generated != 0 {
		t.Fatalf("generated = %d, want no packages for dropped records", generated)
	}

	for _, tier := range []tracking.Tier{tracking.TierLayer1, tracking.TierLayer2} {
		flagged, err := store.RowsRequiringEnrichment(ctx, tier)
		if err != nil {
			t.Fatalf("RowsRequiringEnrichment failed: %v", err)
		}
		if len(flagged) != 0 {
			t.Fatalf("%s rows still flagged = %d, want the flag cleared", tier, len(flagged))
		}
	}
}

func TestRunClearsFlagForAssetWithoutSeriesIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenTracking(t, cfg)
	ctx := context.Background()

	// A movie's layer2 row never gets a series identity, so there is no
	// series record to compare against.
	row := &tracking.Row{
		Tier:               tracking.TierLayer2,
		PAID:               "TITL0000000000000013",
		TMSID:              "MV000000130000",
		RootID:             "9000013",
		RequiresEnrichment: true,
	}
	storeEnrichedDoc(t, store, row.PAID)
	if err := store.Save(ctx, row); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	processor := generator.NewProcessor(cfg, store, &fakeProvider{}, logging.NewNop(), nil)
	if _, err := processor.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	flagged, err := store.RowsRequiringEnrichment(ctx, tracking.TierLayer2)
	if err != nil {
		t.Fatalf("RowsRequiringEnrichment failed: %v", err)
	}
	if len(flagged) != 0 {
		t.Fatal("row without a series identity must have its flag cleared")
	}
}
