package services

import (
	"sync"
	"time"
)

const (
	EventTaskCreated        = "task.created"
	EventTaskUpdated        = "task.updated"
	EventTaskStatusChanged  = "task.status_changed"
	EventTaskDeleted        = "task.deleted"
	EventAssignmentsChanged = "task.assignments_changed"
	EventAssignmentsPartial = "task.assignments_partial"
)

// TaskEvent is pushed to connected browsers whenever a task or its
// assignments change through taskdesk.
type TaskEvent struct {
	Type      string    `json:"type"`
	TaskID    int64     `json:"task_id"`
	ProjectID int64     `json:"project_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	At        time.Time `json:"at"`
}

// EventHub manages SSE client connections and event broadcasting
type EventHub struct {
	clients map[string]chan TaskEvent
	mu      sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]chan TaskEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *EventHub) Subscribe(clientID string) <-chan TaskEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan TaskEvent, 100)
	h.clients[clientID] = ch
	return ch
}

// Unsubscribe removes a client from the hub
func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish broadcasts an event to all connected clients. A nil hub drops it.
func (h *EventHub) Publish(event TaskEvent) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		// Non-blocking send - drop event if client buffer is full
		select {
		case ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var (
	globalEventHub *EventHub
	eventHubOnce   sync.Once
)

// GetEventHub returns the process-wide hub
func GetEventHub() *EventHub {
	eventHubOnce.Do(func() {
		globalEventHub = NewEventHub()
	})
	return globalEventHub
}
