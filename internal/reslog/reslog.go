// Package reslog streams per-reservation log lines to SSE subscribers:
// a channel of messages fanned out to per-subscriber channels, keyed by
// reservation id instead of a single process-wide instance, since every
// reservation owns its own independently-streamed log.
package reslog

import (
	"sync"

	"github.com/google/uuid"
)

// Message is one published log line, matching the persisted LogEntry
// shape closely enough that handlers can render it directly over SSE
// without a second database round trip.
type Message struct {
	ReservationID uint
	Timestamp     string
	Text          string
}

// Hub fans out published messages to per-reservation subscriber channels.
// It holds no message history: a subscriber only sees lines published
// after it subscribes.
type Hub struct {
	mu   sync.Mutex
	subs map[uint]map[uuid.UUID]chan Message
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[uuid.UUID]chan Message)}
}

// Publish sends msg to every current subscriber of reservationID. A slow
// subscriber whose channel is full misses msg silently (non-blocking
// send; the subscriber itself stays registered) rather than
// backpressuring the publisher, since the log is a best-effort live view;
// the database row is the durable record.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[msg.ReservationID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a new listener for reservationID and returns its
// channel plus an unsubscribe func the caller must defer.
func (h *Hub) Subscribe(reservationID uint) (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New()
	ch := make(chan Message, 32)
	if h.subs[reservationID] == nil {
		h.subs[reservationID] = make(map[uuid.UUID]chan Message)
	}
	h.subs[reservationID][id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[reservationID], id)
		close(ch)
	}
}
