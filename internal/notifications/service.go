package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"adiengine/internal/config"
)

const userAgent = "ADIEngine/0.1.0"

// Event names a notification category.
type Event string

const (
	EventIngestCompleted Event = "ingest_completed"
	EventIngestRejected  Event = "ingest_rejected"
	EventUpdateGenerated Event = "update_generated"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event-specific details. Well-known keys: "paid", "title",
// "package", "reason", "context", and "error" (an error value).
type Payload map[string]any

// Service is the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dedup := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventIngestCompleted: cfg.Notifications.Ingest,
			EventIngestRejected:  cfg.Notifications.Ingest,
			EventUpdateGenerated: cfg.Notifications.Updates,
			EventError:           cfg.Notifications.Errors,
			EventTest:            true,
		},
		dedupWindow: dedup,
		lastSent:    make(map[string]time.Time),
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	enabled     map[Event]bool
	dedupWindow time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg := render(event, payload)
	if n.suppressed(event, msg.body) {
		return nil
	}
	return n.send(ctx, msg)
}

// suppressed drops a repeat of the same message inside the dedup window,
// keeping alert storms from a looping failure down to one push.
func (n *ntfyService) suppressed(event Event, body string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := string(event) + "\x00" + body
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if sent, ok := n.lastSent[key]; ok && now.Sub(sent) < n.dedupWindow {
		return true
	}
	n.lastSent[key] = now
	return false
}

func render(event Event, payload Payload) message {
	paid := stringValue(payload, "paid")
	title := stringValue(payload, "title")
	label := paid
	if title != "" {
		label = fmt.Sprintf("%s (%s)", title, paid)
	}

	switch event {
	case EventIngestCompleted:
		return message{
			title: "ADI Engine - Package Delivered",
			body:  fmt.Sprintf("Delivered: %s", label),
			tags:  []string{"adiengine", "ingest", "completed"},
		}
	case EventIngestRejected:
		body := fmt.Sprintf("Rejected: %s", label)
		if reason := stringValue(payload, "reason"); reason != "" {
			body = fmt.Sprintf("%s\nReason: %s", body, reason)
		}
		return message{
			title: "ADI Engine - Package Rejected",
			body:  body,
			tags:  []string{"adiengine", "ingest", "rejected"},
		}
	case EventUpdateGenerated:
		body := fmt.Sprintf("Update generated: %s", label)
		if pkg := stringValue(payload, "package"); pkg != "" {
			body = fmt.Sprintf("%s\nPackage: %s", body, pkg)
		}
		return message{
			title: "ADI Engine - Update Generated",
			body:  body,
			tags:  []string{"adiengine", "update", "generated"},
		}
	case EventTest:
		return message{
			title:    "ADI Engine - Test",
			body:     "Notification system test",
			tags:     []string{"adiengine", "test"},
			priority: "low",
		}
	default:
		var builder strings.Builder
		builder.WriteString("Error")
		if contextLabel := stringValue(payload, "context"); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		if err, ok := payload["error"].(error); ok && err != nil {
			builder.WriteString(strings.TrimSpace(err.Error()))
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "ADI Engine - Error",
			body:     builder.String(),
			tags:     []string{"adiengine", "error", "alert"},
			priority: "high",
		}
	}
}

func stringValue(payload Payload, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
