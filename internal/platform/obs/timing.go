package obs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type ctxKey string

const TickIDKey ctxKey = "tick_id"

// WithTickID tags ctx so every timed call in the tick logs the same id.
func WithTickID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TickIDKey, id)
}

func TickID(ctx context.Context) string {
	id, _ := ctx.Value(TickIDKey).(string)
	return id
}

// Time logs the duration of op when the returned func is called,
// including the error pointed to by errp if any.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	tickID := TickID(ctx)

	return func(errp *error) {
		entry := log.WithFields(log.Fields{
			"tick_id": tickID,
			"op":      name,
			"dur_ms":  time.Since(start).Milliseconds(),
		})

		if errp != nil && *errp != nil {
			entry.WithError(*errp).Debug("call failed")
			return
		}
		entry.Debug("call done")
	}
}
