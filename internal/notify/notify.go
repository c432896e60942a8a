// Package notify pushes pipeline progress events to per-user
// subscribers. Delivery is fire-and-forget: a slow or absent subscriber
// never blocks the pipeline.
package notify

import (
	"sync"
	"time"
)

// Event names emitted by the ingestion pipeline.
const (
	EventUploadStarted      = "upload:started"
	EventSeparatorDetected  = "separator:detected"
	EventMappingDetected    = "mapping:detected"
	EventProcessingProgress = "processing:progress"
	EventUploadCompleted    = "upload:completed"
	EventUploadFailed       = "upload:failed"
)

// Message is one delivered event.
type Message struct {
	UserID    string         `json:"userId"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier is the progress sink consumed by the pipeline.
type Notifier interface {
	Notify(userID, event string, payload map[string]any)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Notify(string, string, map[string]any) {}

// subscriberBuffer bounds each subscriber channel; events beyond it
// are dropped rather than blocking the sender.
const subscriberBuffer = 64

// Hub is an in-process Notifier fanning events out to per-user
// subscriber channels.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan Message]struct{})}
}

// Subscribe registers a channel for one user's events. The returned
// cancel func unregisters and closes it.
func (h *Hub) Subscribe(userID string) (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Message]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[userID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Notify delivers an event to every subscriber of userID, dropping it
// for subscribers whose buffer is full.
func (h *Hub) Notify(userID, event string, payload map[string]any) {
	msg := Message{
		UserID:    userID,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers[userID] {
		select {
		case ch <- msg:
		default:
		}
	}
}
