package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"adiengine/internal/config"
	"adiengine/internal/generator"
	"adiengine/internal/logging"
	"adiengine/internal/metrics"
	"adiengine/internal/notifications"
	"adiengine/internal/queue"
	"adiengine/internal/stage"
	"adiengine/internal/sweep"
	"adiengine/internal/tracking"
)

// StageSet bundles the concrete ingest stage handlers the manager
// orchestrates.
type StageSet struct {
	Importer  stage.Handler
	Mapper    stage.Handler
	Enricher  stage.Handler
	Packager  stage.Handler
	Deliverer stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates the ingest lane and the tracker lane over one shared
// database.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	tracking *tracking.Store
	logger   *slog.Logger
	notifier notifications.Service
	metrics  *metrics.Metrics

	sweeper   *sweep.Sweeper
	processor *generator.Processor
	heartbeat *HeartbeatMonitor

	pollInterval time.Duration

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	statusOrder  []queue.Status

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastItem    *queue.Item
	lastCleanup time.Time
}

// NewManager constructs a workflow manager. Sweeper and processor may be nil
// when the tracker lane is disabled.
func NewManager(
	cfg *config.Config,
	store *queue.Store,
	tracker *tracking.Store,
	logger *slog.Logger,
	notifier notifications.Service,
	m *metrics.Metrics,
	sweeper *sweep.Sweeper,
	processor *generator.Processor,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		tracking: tracker,
		logger:   logger,
		notifier: notifier,
		metrics:  m,
		sweeper:  sweeper,
		processor: processor,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
	}
}

// ConfigureStages registers the concrete stage handlers the ingest lane will
// run, in pipeline order.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage
	add := func(name string, handler stage.Handler, start, processing, done queue.Status) {
		if handler == nil {
			return
		}
		stages = append(stages, pipelineStage{
			name:             name,
			handler:          handler,
			startStatus:      start,
			processingStatus: processing,
			doneStatus:       done,
		})
	}
	add("import", set.Importer, queue.StatusPending, queue.StatusImporting, queue.StatusImported)
	add("map", set.Mapper, queue.StatusImported, queue.StatusMapping, queue.StatusMapped)
	add("enrich", set.Enricher, queue.StatusMapped, queue.StatusEnriching, queue.StatusEnriched)
	add("package", set.Packager, queue.StatusEnriched, queue.StatusPackaging, queue.StatusPackaged)
	add("deliver", set.Deliverer, queue.StatusPackaged, queue.StatusDelivering, queue.StatusCompleted)

	byStart := make(map[queue.Status]pipelineStage, len(stages))
	order := make([]queue.Status, 0, len(stages))
	for _, stg := range stages {
		byStart[stg.startStatus] = stg
		order = append(order, stg.startStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = byStart
	m.statusOrder = order
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// LastError returns the most recent lane error, for status displays.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	copied := *item
	m.lastItem = &copied
	m.mu.Unlock()
}

// LastItem returns a copy of the most recently touched queue item.
func (m *Manager) LastItem() *queue.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastItem == nil {
		return nil
	}
	copied := *m.lastItem
	return &copied
}
