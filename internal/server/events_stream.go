package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/events"
)

// EventsStreamHandler streams planner events to clients as Server-Sent Events
type EventsStreamHandler struct {
	manager   *events.Manager
	heartbeat time.Duration
	buffer    int
	log       zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(manager *events.Manager, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		manager:   manager,
		heartbeat: 30 * time.Second,
		buffer:    100,
		log:       log.With().Str("component", "events_stream").Logger(),
	}
}

// streamFilter narrows a stream by event type and planning period
type streamFilter struct {
	types    map[events.EventType]bool
	periodID int64
}

func parseStreamFilter(r *http.Request) (streamFilter, error) {
	var f streamFilter
	if raw := r.URL.Query().Get("types"); raw != "" {
		f.types = make(map[events.EventType]bool)
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.types[events.EventType(t)] = true
			}
		}
	}
	if raw := r.URL.Query().Get("period_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("invalid period_id %q", raw)
		}
		f.periodID = id
	}
	return f, nil
}

// matches drops events of other types and, when a period is set, events of other
// periods. Payloads without a period always pass the period check.
func (f streamFilter) matches(e events.Event) bool {
	if f.types != nil && !f.types[e.Type] {
		return false
	}
	if f.periodID == 0 {
		return true
	}
	scoped, ok := e.Data.(events.PeriodScoped)
	return !ok || scoped.PeriodID() == f.periodID
}

// ServeHTTP handles GET /api/events/stream.
// ?types=OPTIMIZATION_COMPLETED,PROJECT_UNDER_STAFFED and ?period_id=3 narrow the stream.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	filter, err := parseStreamFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Buffered so a slow client never blocks an optimization run
	queue := make(chan events.Event, h.buffer)
	unsubscribe := h.manager.Subscribe(func(e events.Event) {
		if !filter.matches(e) {
			return
		}
		select {
		case queue <- e:
		default:
			h.log.Warn().Str("event_type", string(e.Type)).Msg("Stream queue full, dropping event")
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.log.Info().
		Int("types", len(filter.types)).
		Int64("period_id", filter.periodID).
		Msg("Client connected to event stream")

	var seq int64
	send := func(name string, payload map[string]interface{}) {
		seq++
		fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, name, h.encode(payload))
		flusher.Flush()
	}

	send("connected", map[string]interface{}{"type": "connected", "message": "Connected to event stream"})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Int64("sent", seq).Msg("Client disconnected from event stream")
			return

		case e := <-queue:
			send(strings.ToLower(string(e.Type)), map[string]interface{}{
				"type":      string(e.Type),
				"module":    e.Module,
				"timestamp": e.Timestamp.Format(time.RFC3339),
				"data":      e.Data,
			})

		case now := <-heartbeat.C:
			send("heartbeat", map[string]interface{}{"type": "heartbeat", "timestamp": now.Format(time.RFC3339)})
		}
	}
}

func (h *EventsStreamHandler) encode(payload map[string]interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
