// Package notifications delivers post change events to connected feed observers.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"feedhub/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	hubName      = "feed"
	maxObservers = 10000
)

var (
	ErrHubClosed       = errors.New("hub is shutting down")
	ErrConnectionLimit = errors.New("server connection limit reached")
)

// Hub tracks every connected feed observer on this instance.
type Hub struct {
	mu        sync.RWMutex
	observers map[*Observer]struct{}
	closed    bool
	log       observability.ObserverLog
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		observers: make(map[*Observer]struct{}),
		log:       observability.NewObserverLog(hubName),
	}
}

// Join admits a websocket session. userID is zero for anonymous observers.
func (h *Hub) Join(userID uint, conn *websocket.Conn) (*Observer, error) {
	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		return nil, ErrHubClosed
	case len(h.observers) >= maxObservers:
		h.mu.Unlock()
		return nil, ErrConnectionLimit
	}
	o := newObserver(h, conn, userID)
	h.observers[o] = struct{}{}
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.log.Joined(context.Background(), o.ID, userID)
	return o, nil
}

// Leave removes o and closes its outbox. Calling it again is a no-op.
func (h *Hub) Leave(o *Observer) {
	h.mu.Lock()
	_, present := h.observers[o]
	if present {
		delete(h.observers, o)
		close(o.outbox)
	}
	h.mu.Unlock()

	if present {
		observability.WebSocketConnectionsTotal.Dec()
		h.log.Left(context.Background(), o.ID, "disconnected")
	}
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Fanout offers msg to every observer and returns how many accepted it.
// The read lock keeps Leave from closing an outbox mid-send.
func (h *Hub) Fanout(msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	accepted := 0
	for o := range h.observers {
		if o.offer(msg) {
			accepted++
		}
	}
	return accepted
}

// Shutdown closes every outbox, which makes each session send a going-away
// frame, and refuses new observers from then on.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	observers := h.observers
	h.observers = make(map[*Observer]struct{})
	h.mu.Unlock()

	for o := range observers {
		close(o.outbox)
		observability.WebSocketConnectionsTotal.Dec()
	}
	h.log.Lifecycle(ctx, "shutdown", slog.Int("closed_observers", len(observers)))
	return nil
}
