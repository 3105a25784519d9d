package repo

import (
	"context"

	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// EventsTable is the ClickHouse table step events land in
const EventsTable = "execution_events"

const eventsSchema = `
CREATE TABLE IF NOT EXISTS execution_events (
	proof_hash String,
	address    LowCardinality(String),
	step       LowCardinality(String),
	outcome    LowCardinality(String),
	tx         String,
	cause      String,
	at         DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (address, proof_hash, at)
`

// CHEvents appends step events to ClickHouse
type CHEvents struct{ ch store.Clickhouse }

// NewCHEvents returns a sink over ch
func NewCHEvents(ch store.Clickhouse) *CHEvents { return &CHEvents{ch: ch} }

// Init creates the events table
func (s *CHEvents) Init(ctx context.Context) error {
	return s.ch.Exec(ctx, eventsSchema)
}

// Emit inserts one row in table column order
func (s *CHEvents) Emit(ctx context.Context, ev dom.StepEvent) error {
	tx := ""
	if ev.Tx != nil {
		tx = ev.Tx.Hex()
	}
	return s.ch.Insert(ctx, EventsTable, [][]any{{
		ev.Proof.Hex(), ev.Address.Hex(), string(ev.Step), string(ev.Outcome), tx, ev.Cause, ev.At.UTC(),
	}})
}

// LogEvents writes step events to the structured log only
type LogEvents struct{ log *logger.Logger }

// NewLogEvents returns a sink that logs under the execution component
func NewLogEvents() *LogEvents { return &LogEvents{log: logger.Named("execution-events")} }

// Emit logs ev at debug, failures at warn
func (s *LogEvents) Emit(_ context.Context, ev dom.StepEvent) error {
	e := s.log.Debug()
	if ev.Outcome == dom.OutcomeFailed {
		e = s.log.Warn()
	}
	e = e.Str("proof_hash", ev.Proof.Hex()).
		Str("address", ev.Address.Hex()).
		Str("step", string(ev.Step)).
		Str("outcome", string(ev.Outcome))
	if ev.Tx != nil {
		e = e.Str("tx", ev.Tx.Hex())
	}
	if ev.Cause != "" {
		e = e.Str("cause", ev.Cause)
	}
	e.Time("at", ev.At).Msg("execution step")
	return nil
}
