package obs

import (
	"context"
	"time"

	"github.com/bstardust/photo-meta/internal/logger"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID returns a copy of ctx carrying id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id stored in ctx, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time starts timing op. Call the returned func with a pointer to the
// operation's error, usually from a defer.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	entry := logger.WithRequest(RequestID(ctx)).WithField("op", name)

	return func(errp *error) {
		e := entry.WithField("dur_ms", time.Since(start).Milliseconds())

		if errp != nil && *errp != nil {
			e.WithError(*errp).Warn("operation failed")
			return
		}
		e.Debug("operation finished")
	}
}
