// Package broadcast fans committed group order mutations out to every
// connected subscriber of the order's room. A room is one group order code.
//
// Delivery is at-most-once per subscriber: a subscriber that falls behind its
// channel buffer loses the event and is expected to resync by fetching the
// authoritative snapshot and resubscribing. Within one room events arrive in
// commit order because the engine publishes while still holding the room's
// write lock.
package broadcast

import (
	"sync"

	"github.com/opentab/grouporder/internal/models"
)

// EventKind classifies one committed mutation.
type EventKind string

const (
	EventParticipantJoined EventKind = "participant-joined"
	EventParticipantLeft   EventKind = "participant-left"
	EventItemAdded         EventKind = "item-added"
	EventItemUpdated       EventKind = "item-updated"
	EventItemRemoved       EventKind = "item-removed"
	EventParticipantReady  EventKind = "participant-ready"
	EventSplitTypeChanged  EventKind = "split-type-changed"
	EventOrderLocked       EventKind = "order-locked"
	EventOrderUnlocked     EventKind = "order-unlocked"
	EventOrderPlaced       EventKind = "order-placed"
	EventOrderCancelled    EventKind = "order-cancelled"
)

// Event is one committed mutation, carrying the full post-mutation snapshot
// and, where the mutation affects amounts owed, the current splits.
type Event struct {
	Kind       EventKind          `json:"event"`
	GroupOrder *models.GroupOrder `json:"groupOrder"`
	Splits     []models.Split     `json:"splits,omitempty"`
}

// subscriberBuffer is the per-subscriber channel capacity. A full buffer
// drops the event rather than blocking the publishing mutation.
const subscriberBuffer = 16

// Hub is an in-process room-scoped publish/subscribe broker.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a new subscriber for the room and returns its event
// channel plus a cancel function. The channel is closed by cancel or when the
// room itself closes.
func (h *Hub) Subscribe(code string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.rooms[code]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.rooms[code] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.rooms[code]; ok {
				if _, present := subs[ch]; present {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(h.rooms, code)
				}
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber of the room.
// Subscribers with full buffers are skipped.
func (h *Hub) Publish(code string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.rooms[code] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop and let it resync on reconnect.
		}
	}
}

// CloseRoom disconnects every subscriber of the room. Called when the order
// reaches a terminal status.
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.rooms[code] {
		close(ch)
	}
	delete(h.rooms, code)
}

// Subscribers returns the current subscriber count for the room.
func (h *Hub) Subscribers(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}
