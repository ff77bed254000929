// Package events provides event management functionality.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is an emitted event with its typed payload
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// Listener receives every emitted event synchronously
type Listener func(Event)

type subscription struct {
	id       int
	listener Listener
}

// Manager handles event emission and logging
type Manager struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    int
	log       zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log: log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a listener for all events and returns a func that removes it
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, subscription{id: id, listener: l})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.listeners {
			if sub.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Emit logs the event and hands it to every listener
func (m *Manager) Emit(module string, data EventData) {
	if m == nil || data == nil {
		return
	}
	event := Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		m.log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to encode event")
	} else {
		m.log.Info().
			Str("event_type", string(event.Type)).
			Str("module", module).
			RawJSON("event", eventJSON).
			Msg("Event emitted")
	}

	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, sub := range m.listeners {
		listeners = append(listeners, sub.listener)
	}
	m.mu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	if err == nil {
		return
	}
	m.Emit(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}
