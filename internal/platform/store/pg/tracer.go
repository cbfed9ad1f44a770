package pg

import (
	"context"
	"time"

	"provenance/internal/platform/logger"
)

// QueryEvent is one executed statement as seen by the adapter
type QueryEvent struct {
	SQL  string
	Args int
	Dur  time.Duration
	Err  error
	Slow bool
}

// QueryTracer receives query events; nil disables tracing
type QueryTracer func(ctx context.Context, ev QueryEvent)

// Tracer returns a QueryTracer that logs statements through log.
// Slow statements and failures are warned, the rest is debug noise
func Tracer(log logger.Logger) QueryTracer {
	return func(_ context.Context, ev QueryEvent) {
		switch {
		case ev.Err != nil:
			log.Warn().Err(ev.Err).Str("sql", ev.SQL).Int("args", ev.Args).Dur("dur", ev.Dur).Msg("query failed")
		case ev.Slow:
			log.Warn().Str("sql", ev.SQL).Int("args", ev.Args).Dur("dur", ev.Dur).Msg("slow query")
		default:
			log.Debug().Str("sql", ev.SQL).Int("args", ev.Args).Dur("dur", ev.Dur).Msg("query")
		}
	}
}
