package daemon

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"adiengine/internal/config"
	"adiengine/internal/generator"
	"adiengine/internal/ingest"
	"adiengine/internal/metrics"
	"adiengine/internal/notifications"
	"adiengine/internal/queue"
	"adiengine/internal/services/gracenote"
	"adiengine/internal/sweep"
	"adiengine/internal/tracking"
	"adiengine/internal/workflow"
)

// Bootstrap opens both stores, wires the full processing graph, and returns
// a ready-to-start daemon. The caller owns Close.
func Bootstrap(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	tracker, err := tracking.Open(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := gracenote.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		gracenote.WithTimeout(time.Duration(cfg.Provider.RequestTimeout)*time.Second),
	)
	bundle := metrics.New(prometheus.DefaultRegisterer)
	notifier := notifications.NewService(cfg)

	sweeper := sweep.New(tracker, client, logger, bundle, cfg.Provider.MappingsPageLimit, cfg.Provider.LayerPageLimit)
	processor := generator.NewProcessor(cfg, tracker, client, logger, bundle)

	manager := workflow.NewManager(cfg, store, tracker, logger, notifier, bundle, sweeper, processor)
	manager.ConfigureStages(workflow.StageSet{
		Importer:  ingest.NewImportStage(cfg, store, tracker, logger),
		Mapper:    ingest.NewMapStage(cfg, tracker, client, logger),
		Enricher:  ingest.NewEnrichStage(cfg, tracker, client, logger),
		Packager:  ingest.NewPackageStage(cfg, logger),
		Deliverer: ingest.NewDeliverStage(cfg, tracker, logger),
	})

	d, err := New(cfg, store, tracker, logger, manager)
	if err != nil {
		store.Close()
		tracker.Close()
		return nil, err
	}
	return d, nil
}
