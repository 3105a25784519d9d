package pg

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer is told about every statement the store runs
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

type logTracer struct{ log logger.Logger }

// Tracer logs statements under component=pg whatever the root level is
// only the argument count is logged, never the values, so addresses and proofs stay out
func Tracer(root logger.Logger) QueryTracer {
	return logTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

func (t logTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	evt := t.log.Info()
	if ev.Slow || ev.Err != nil {
		evt = t.log.Warn()
	}
	evt.Ctx(ctx).
		Str("sql", strings.Join(strings.Fields(ev.SQL), " ")).
		Int("args", len(ev.Args)).
		Float64("elapsed_ms", float64(ev.Elapsed.Microseconds())/1000).
		Bool("slow", ev.Slow).
		Err(ev.Err).
		Msg("pg query")
}
