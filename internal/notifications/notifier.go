package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"feedhub/internal/observability"
)

const (
	publishQueueSize = 256
	publishTimeout   = 5 * time.Second
)

// Event is the message observers receive when a post changes. Post carries the full
// post for create and update, and only the post id for delete.
type Event struct {
	Action string `json:"action"`
	Post   any    `json:"post"`
}

// PostNotifier broadcasts post changes. Without a transport events go straight to the
// local hub. With one, events are published in order by a single pump and reach the
// hub through the subscription, so every instance delivers each event exactly once.
type PostNotifier struct {
	hub       *Hub
	transport Transport

	queue  chan []byte
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPostNotifier wires hub to transport. transport may be nil for single-instance deployments.
func NewPostNotifier(ctx context.Context, hub *Hub, transport Transport) (*PostNotifier, error) {
	n := &PostNotifier{hub: hub, transport: transport}
	if transport == nil {
		return n, nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := transport.Subscribe(ctx, func(payload []byte) { hub.Fanout(payload) }); err != nil {
		cancel()
		return nil, err
	}

	n.cancel = cancel
	n.queue = make(chan []byte, publishQueueSize)
	n.wg.Add(1)
	go n.pump(ctx)
	return n, nil
}

// Broadcast encodes {action, post} and hands it off without blocking. Failures are
// counted and logged, never returned.
func (n *PostNotifier) Broadcast(ctx context.Context, action string, payload any) {
	data, err := json.Marshal(Event{Action: action, Post: payload})
	if err != nil {
		observability.PostEventsPublished.WithLabelValues(action, "encode_error").Inc()
		observability.LogAsyncError(ctx, "notifier.encode", err, slog.String("action", action))
		return
	}

	if n.queue == nil {
		n.hub.Fanout(data)
		observability.PostEventsPublished.WithLabelValues(action, "local").Inc()
		return
	}

	select {
	case n.queue <- data:
	default:
		// The transport is stalled; local observers still get the event.
		n.hub.Fanout(data)
		observability.PostEventsPublished.WithLabelValues(action, "queue_full").Inc()
	}
}

func (n *PostNotifier) pump(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-n.queue:
			n.publish(ctx, data)
		}
	}
}

func (n *PostNotifier) publish(ctx context.Context, data []byte) {
	action := actionOf(data)
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.transport.Publish(pctx, data); err != nil {
		n.hub.Fanout(data)
		observability.PostEventsPublished.WithLabelValues(action, "fallback").Inc()
		observability.LogAsyncError(ctx, "notifier.publish", err, slog.String("action", action))
		return
	}
	observability.PostEventsPublished.WithLabelValues(action, "published").Inc()
}

// Close stops the pump and the subscription and closes the transport.
func (n *PostNotifier) Close() error {
	var err error
	n.once.Do(func() {
		if n.cancel != nil {
			n.cancel()
			n.wg.Wait()
		}
		if n.transport != nil {
			err = n.transport.Close()
		}
	})
	return err
}

func actionOf(data []byte) string {
	var e struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(data, &e)
	return e.Action
}
