package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"adiengine/internal/config"
	"adiengine/internal/notifications"
)

func testConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	svc := notifications.NewService(testConfig(""))
	if err := svc.Publish(context.Background(), notifications.EventError, nil); err != nil {
		t.Fatalf("noop Publish failed: %v", err)
	}
}

func TestPublishSendsNtfyRequest(t *testing.T) {
	var gotTitle, gotPriority string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	err := svc.Publish(context.Background(), notifications.EventIngestCompleted, notifications.Payload{
		"paid":  "TITL0000000000000001",
		"title": "Example Movie",
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if gotTitle != "ADI Engine - Package Delivered" {
		t.Fatalf("Title header = %q", gotTitle)
	}
	if gotPriority != "" {
		t.Fatalf("Priority header = %q, want none for ingest events", gotPriority)
	}
	want := "Delivered: Example Movie (TITL0000000000000001)"
	if string(gotBody) != want {
		t.Fatalf("body = %q, want %q", string(gotBody), want)
	}
}

func TestPublishDedupWindow(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Notifications.DedupWindowSeconds = 600
	svc := notifications.NewService(cfg)

	payload := notifications.Payload{"paid": "TITL0000000000000002"}
	for i := 0; i < 3; i++ {
		if err := svc.Publish(context.Background(), notifications.EventIngestCompleted, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("sent %d requests, want repeats inside the window suppressed", got)
	}

	other := notifications.Payload{"paid": "TITL0000000000000003"}
	if err := svc.Publish(context.Background(), notifications.EventIngestCompleted, other); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Fatalf("sent %d requests, want a different body to pass", got)
	}
}

func TestPublishRespectsCategoryToggles(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Notifications.Updates = false
	svc := notifications.NewService(cfg)

	if err := svc.Publish(context.Background(), notifications.EventUpdateGenerated, nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if requests.Load() != 0 {
		t.Fatal("disabled category must not send")
	}

	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if requests.Load() != 1 {
		t.Fatal("test events are always enabled")
	}
}

func TestPublishSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
