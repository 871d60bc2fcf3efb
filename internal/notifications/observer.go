package notifications

import (
	"log/slog"
	"time"

	"feedhub/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Observers only listen. Any frame larger than this ends the session.
	maxInboundFrame = 4096

	outboxSize = 64
)

// Observer is one websocket session watching the feed.
type Observer struct {
	ID string
	// UserID is zero for anonymous observers.
	UserID uint

	hub  *Hub
	conn *websocket.Conn // nil in tests
	// outbox is closed by the hub when the observer leaves.
	outbox chan []byte
}

func newObserver(hub *Hub, conn *websocket.Conn, userID uint) *Observer {
	return &Observer{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
	}
}

// Serve pumps events to the peer until either side goes away. It blocks for
// the lifetime of the session and leaves the hub on return.
func (o *Observer) Serve() {
	go o.writeLoop()
	o.readLoop()
}

// readLoop keeps the read deadline fresh via pongs and detects disconnects.
func (o *Observer) readLoop() {
	defer func() {
		o.hub.Leave(o)
		_ = o.conn.Close()
	}()

	o.conn.SetReadLimit(maxInboundFrame)
	_ = o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := o.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			observability.Log.Debug("feed observer read failed",
				slog.String("client_id", o.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
}

func (o *Observer) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = o.conn.Close()
	}()

	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		select {
		case msg, open := <-o.outbox:
			if !open {
				kind, data = websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
			} else {
				data = msg
			}
		case <-ping.C:
			kind = websocket.PingMessage
		}

		_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := o.conn.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}

// offer queues msg without blocking. A full outbox drops the message so one
// slow reader never holds up the others. Callers must hold the hub lock.
func (o *Observer) offer(msg []byte) bool {
	select {
	case o.outbox <- msg:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(hubName, "full").Inc()
		return false
	}
}
