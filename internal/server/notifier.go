package server

import "sync"

// EventType classifies a pushed update.
type EventType string

const (
	EventExternalChange EventType = "external-change"
	EventConflict       EventType = "conflict"
	EventSaved          EventType = "saved"
	EventError          EventType = "error"
)

// Event is one update pushed to connected clients.
type Event struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// Notifier broadcasts events to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// NewNotifier creates a new Notifier instance.
func NewNotifier() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives pushed events.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 16)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Broadcast sends an event to all listeners.
// Non-blocking: if a listener's channel is full, the event is skipped.
func (n *Notifier) Broadcast(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
			// Channel full, skip (listener will catch up on next broadcast)
		}
	}
}
