package daemon

import (
	"time"

	"adiengine/internal/queue"
	"adiengine/internal/workflow"
)

type statusResponse struct {
	Running      bool         `json:"running"`
	QueueDBPath  string       `json:"queueDbPath"`
	LockFilePath string       `json:"lockFilePath"`
	Workflow     workflowView `json:"workflow"`
}

type workflowView struct {
	Running     bool              `json:"running"`
	LastError   string            `json:"lastError,omitempty"`
	LastItem    *queueItemView    `json:"lastItem,omitempty"`
	QueueStats  map[string]int    `json:"queueStats"`
	StageHealth []stageHealthView `json:"stageHealth"`
	Watermarks  map[string]int64  `json:"watermarks,omitempty"`
}

type stageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type healthResponse struct {
	Ready  bool              `json:"ready"`
	Stages []stageHealthView `json:"stages"`
}

type queueItemView struct {
	ID              int64      `json:"id"`
	PAID            string     `json:"paid,omitempty"`
	ProviderID      string     `json:"providerId,omitempty"`
	Title           string     `json:"title,omitempty"`
	PackageName     string     `json:"packageName,omitempty"`
	Status          string     `json:"status"`
	IsUpdate        bool       `json:"isUpdate"`
	IsTVOD          bool       `json:"isTvod"`
	VersionMajor    int        `json:"versionMajor"`
	VersionMinor    int        `json:"versionMinor"`
	ProgressStage   string     `json:"progressStage,omitempty"`
	ProgressMessage string     `json:"progressMessage,omitempty"`
	ProgressPercent float64    `json:"progressPercent"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastHeartbeat   *time.Time `json:"lastHeartbeat,omitempty"`
}

type queueListResponse struct {
	Items []queueItemView `json:"items"`
}

type queueItemResponse struct {
	Item queueItemView `json:"item"`
}

func fromQueueItem(item *queue.Item) queueItemView {
	return queueItemView{
		ID:              item.ID,
		PAID:            item.PAID,
		ProviderID:      item.ProviderID,
		Title:           item.Title,
		PackageName:     item.PackageName,
		Status:          string(item.Status),
		IsUpdate:        item.IsUpdate,
		IsTVOD:          item.IsTVOD,
		VersionMajor:    item.VersionMajor,
		VersionMinor:    item.VersionMinor,
		ProgressStage:   item.ProgressStage,
		ProgressMessage: item.ProgressMessage,
		ProgressPercent: item.ProgressPercent,
		ErrorMessage:    item.ErrorMessage,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
		LastHeartbeat:   item.LastHeartbeat,
	}
}

func fromStatusSummary(summary workflow.StatusSummary) workflowView {
	view := workflowView{
		Running:    summary.Running,
		LastError:  summary.LastError,
		Watermarks: summary.Watermarks,
	}
	view.QueueStats = make(map[string]int, len(summary.QueueStats.ByStatus))
	for status, count := range summary.QueueStats.ByStatus {
		view.QueueStats[string(status)] = count
	}
	for _, check := range summary.StageHealth {
		view.StageHealth = append(view.StageHealth, stageHealthView{
			Name:   check.Name,
			Ready:  check.Ready,
			Detail: check.Detail,
		})
	}
	if summary.LastItem != nil {
		item := fromQueueItem(summary.LastItem)
		view.LastItem = &item
	}
	return view
}
