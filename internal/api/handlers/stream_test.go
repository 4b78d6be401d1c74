package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/testutil"
)

// readEvent returns the event name and data of the next SSE message,
// skipping comments
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("stream closed: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("GET %s: %v", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		cancel()
		t.Fatalf("stream status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	r := bufio.NewReader(resp.Body)
	if ev, _ := readEvent(t, r); ev != "connected" {
		t.Fatalf("first event = %q, want connected", ev)
	}
	return r, func() {
		cancel()
		resp.Body.Close()
	}
}

func waitForClients(t *testing.T, hub *EventHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStream_DeliversEvents(t *testing.T) {
	log := testutil.NewTestLogger()
	hub := NewEventHub(log)
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(NewStreamHandler(hub, log).Stream))
	defer srv.Close()

	r, closeStream := openStream(t, srv.URL)
	defer closeStream()
	waitForClients(t, hub, 1)

	hub.Publish(alert.Event{
		Type:  alert.EventCreated,
		Alert: &alert.Alert{ID: 12, Type: "fire", Severity: alert.SeverityCritical, Title: "Fire"},
		At:    time.Now(),
	})

	ev, data := readEvent(t, r)
	if ev != "alert" {
		t.Fatalf("event = %q, want alert", ev)
	}
	var got alert.Event
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.Type != alert.EventCreated || got.Alert.ID != 12 {
		t.Errorf("event = %+v", got)
	}
}

func TestStream_SeverityFilter(t *testing.T) {
	log := testutil.NewTestLogger()
	hub := NewEventHub(log)
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(NewStreamHandler(hub, log).Stream))
	defer srv.Close()

	r, closeStream := openStream(t, srv.URL+"?severity=critical")
	defer closeStream()
	waitForClients(t, hub, 1)

	hub.Publish(alert.Event{Type: alert.EventCreated, Alert: &alert.Alert{ID: 1, Severity: alert.SeverityLow}})
	hub.Publish(alert.Event{Type: alert.EventCreated, Alert: &alert.Alert{ID: 2, Severity: alert.SeverityCritical}})

	_, data := readEvent(t, r)
	var got alert.Event
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.Alert.ID != 2 {
		t.Errorf("first delivered alert = %d, want 2", got.Alert.ID)
	}
}

func TestStream_InvalidSeverity(t *testing.T) {
	log := testutil.NewTestLogger()
	hub := NewEventHub(log)
	defer hub.Close()

	rec := httptest.NewRecorder()
	NewStreamHandler(hub, log).Stream(rec, httptest.NewRequest(http.MethodGet, "/?severity=extreme", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEventHub_CloseDisconnects(t *testing.T) {
	log := testutil.NewTestLogger()
	hub := NewEventHub(log)
	srv := httptest.NewServer(http.HandlerFunc(NewStreamHandler(hub, log).Stream))
	defer srv.Close()

	r, closeStream := openStream(t, srv.URL)
	defer closeStream()
	waitForClients(t, hub, 1)

	hub.Close()
	waitForClients(t, hub, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := r.ReadString('\n'); err != nil {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream stayed open after Close")
	}

	// publishing after close must not block
	hub.Publish(alert.Event{Type: alert.EventDeleted, Alert: &alert.Alert{ID: 1}})
}
