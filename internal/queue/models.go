package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusImporting   Status = "importing"
	StatusImported    Status = "imported"
	StatusMapping     Status = "mapping"
	StatusMapped      Status = "mapped"
	StatusEnriching   Status = "enriching"
	StatusEnriched    Status = "enriched"
	StatusPackaging   Status = "packaging"
	StatusPackaged    Status = "packaged"
	StatusDelivering  Status = "delivering"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusRejected    Status = "rejected"
	StatusFailedToMap Status = "failed_to_map"
)

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusImporting,
	StatusImported,
	StatusMapping,
	StatusMapped,
	StatusEnriching,
	StatusEnriched,
	StatusPackaging,
	StatusPackaged,
	StatusDelivering,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
	StatusFailedToMap,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusImporting:  {},
	StatusMapping:    {},
	StatusEnriching:  {},
	StatusPackaging:  {},
	StatusDelivering: {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusImporting, to: StatusPending},
	{from: StatusMapping, to: StatusImported},
	{from: StatusEnriching, to: StatusMapped},
	{from: StatusPackaging, to: StatusEnriched},
	{from: StatusDelivering, to: StatusPackaged},
}

func processingRollbackTransitions() []statusTransition {
	return stageRollbackTransitions
}

// IsValidStatus reports whether the supplied status is known to the queue.
func IsValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// IsProcessing reports whether the status marks an in-flight stage.
func IsProcessing(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// TerminalStatuses returns the statuses no lane will pick up again.
func TerminalStatuses() []Status {
	return []Status{StatusCompleted, StatusFailed, StatusRejected}
}

// Item models a metadata package traveling through the ingest pipeline.
type Item struct {
	ID              int64
	IngestID        string
	PackagePath     string
	PackageName     string
	PAID            string
	ProviderID      string
	OnAPIProviderID string
	Title           string
	Status          Status
	IsUpdate        bool
	IsAdult         bool
	IsUltraHD       bool
	IsTVOD          bool
	VersionMajor    int
	VersionMinor    int
	WorkDir         string
	AdiPath         string
	DeliveryPath    string
	ProgressStage   string
	ProgressMessage string
	ProgressPercent float64
	ErrorMessage    string
	FirstSeenAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// SetFailed marks the item failed with the supplied message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = strings.TrimSpace(message)
	i.LastHeartbeat = nil
}

// SetProgress updates the progress fields in one call.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = strings.TrimSpace(stage)
	i.ProgressMessage = strings.TrimSpace(message)
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	i.ProgressPercent = percent
}

// Label returns a human-facing identifier for logs and notifications.
func (i *Item) Label() string {
	if paid := strings.TrimSpace(i.PAID); paid != "" {
		return paid
	}
	if name := strings.TrimSpace(i.PackageName); name != "" {
		return name
	}
	return "unknown package"
}

// Stats summarizes queue composition for status displays and metrics.
type Stats struct {
	Total     int
	ByStatus  map[Status]int
	Waiting   int
	Completed int
	Failed    int
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
