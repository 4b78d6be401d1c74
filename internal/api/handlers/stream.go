package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-mahalle/watchpost/internal/api/middleware"
	"github.com/pratik-mahalle/watchpost/internal/domain/alert"
	"github.com/pratik-mahalle/watchpost/internal/pkg/errors"
	"github.com/pratik-mahalle/watchpost/internal/pkg/logger"
	"github.com/pratik-mahalle/watchpost/internal/pkg/utils"
)

const (
	clientBuffer      = 64
	heartbeatInterval = 25 * time.Second
)

// EventHub fans alert events out to connected stream clients. It implements
// alert.Publisher.
type EventHub struct {
	clients    map[string]*streamClient
	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan alert.Event
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	logger     *logger.Logger
}

type streamClient struct {
	id       string
	actorID  int64
	severity *alert.Severity
	messages chan []byte
}

// NewEventHub creates a hub and starts its dispatch loop
func NewEventHub(log *logger.Logger) *EventHub {
	h := &EventHub{
		clients:    make(map[string]*streamClient),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan alert.Event, clientBuffer),
		done:       make(chan struct{}),
		logger:     log.Component("stream"),
	}
	go h.run()
	return h
}

// Publish queues an event. Events are dropped when the hub is saturated
// or closed.
func (h *EventHub) Publish(e alert.Event) {
	select {
	case h.broadcast <- e:
	case <-h.done:
	default:
		h.logger.WithFields(map[string]interface{}{"event": e.Type}).Warn("Event hub saturated, dropping event")
	}
}

// Clients returns the number of connected clients
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the dispatch loop
func (h *EventHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *EventHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.logger.WithFields(map[string]interface{}{
				"client_id": c.id,
				"actor_id":  c.actorID,
			}).Info("Stream client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.messages)
				h.logger.WithFields(map[string]interface{}{
					"client_id": c.id,
				}).Info("Stream client disconnected")
			}
			h.mu.Unlock()

		case e := <-h.broadcast:
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.ErrorWithErr(err, "Failed to encode alert event")
				continue
			}
			h.mu.RLock()
			for _, c := range h.clients {
				if !c.wants(e) {
					continue
				}
				select {
				case c.messages <- data:
				default:
					// slow client, skip
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.messages)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (c *streamClient) wants(e alert.Event) bool {
	if c.severity == nil || e.Type == alert.EventDeleted {
		return true
	}
	return e.Alert != nil && e.Alert.Severity == *c.severity
}

// StreamHandler serves alert events as server-sent events
type StreamHandler struct {
	hub    *EventHub
	logger *logger.Logger
}

// NewStreamHandler creates a stream handler
func NewStreamHandler(hub *EventHub, log *logger.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: log}
}

// Stream holds the connection open and writes one SSE message per alert
// event. ?severity= narrows the stream.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	client := &streamClient{
		id:       uuid.NewString(),
		messages: make(chan []byte, clientBuffer),
	}
	client.actorID, _ = middleware.GetActorID(r)
	if s := r.URL.Query().Get("severity"); s != "" {
		sev := alert.Severity(s)
		if !sev.Valid() {
			utils.WriteError(w, errors.BadRequest(fmt.Sprintf("unknown severity %q", s)))
			return
		}
		client.severity = &sev
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		utils.WriteError(w, errors.ServiceUnavailable("event stream is shutting down"))
		return
	}
	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	// the stream outlives the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q}\n\n", client.id)
	if err := rc.Flush(); err != nil {
		h.logger.WarnWithErr(err, "Streaming unsupported by response writer")
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case msg, ok := <-client.messages:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: alert\ndata: %s\n\n", msg); err != nil {
				return
			}
			_ = rc.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
