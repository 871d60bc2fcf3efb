// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Log is used by work that outlives a request: feed observers, transport
// subscribers and image cleanups. SetLogger points it at the request logger.
var Log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger replaces Log. Call it during startup, before any goroutine logs.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Log = l
	}
}

// ObserverLog records feed observers joining and leaving one hub.
type ObserverLog struct {
	hub string
}

// NewObserverLog returns an ObserverLog tagging records with hub.
func NewObserverLog(hub string) ObserverLog {
	return ObserverLog{hub: hub}
}

// Joined records a new observer. Anonymous observers have userID 0.
func (l ObserverLog) Joined(ctx context.Context, clientID string, userID uint) {
	Log.InfoContext(ctx, "feed observer joined",
		slog.String("hub", l.hub),
		slog.String("client_id", clientID),
		slog.Bool("anonymous", userID == 0),
		slog.Uint64("observer_user_id", uint64(userID)),
	)
}

// Left records an observer going away.
func (l ObserverLog) Left(ctx context.Context, clientID, reason string) {
	Log.InfoContext(ctx, "feed observer left",
		slog.String("hub", l.hub),
		slog.String("client_id", clientID),
		slog.String("reason", reason),
	)
}

// Lifecycle records hub-wide events such as shutdown.
func (l ObserverLog) Lifecycle(ctx context.Context, event string, attrs ...slog.Attr) {
	Log.LogAttrs(ctx, slog.LevelInfo, "feed hub "+event, append([]slog.Attr{slog.String("hub", l.hub)}, attrs...)...)
}

// LogAsyncError records a failed fire-and-forget operation. The caller never sees it.
func LogAsyncError(ctx context.Context, operation string, err error, attrs ...slog.Attr) {
	Log.LogAttrs(ctx, slog.LevelError, "async operation failed",
		append([]slog.Attr{
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		}, attrs...)...)
}
