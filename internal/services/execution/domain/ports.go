package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CheckpointStore persists execution progress
type CheckpointStore interface {
	// Create inserts cp unless a checkpoint for the proof exists; created is false on replay
	Create(ctx context.Context, cp Checkpoint) (created bool, err error)
	Save(ctx context.Context, cp Checkpoint) error
	Get(ctx context.Context, proof common.Hash) (Checkpoint, error)

	// Lease claims up to limit resumable checkpoints for worker
	// running checkpoints untouched for staleAfter are treated as stalled
	Lease(ctx context.Context, worker string, limit int, leaseFor, staleAfter time.Duration) ([]Checkpoint, error)
	// Release drops the lease and schedules the next attempt
	Release(ctx context.Context, proof common.Hash, nextAttemptAt time.Time) error
}

// EventSink receives step events
type EventSink interface {
	Emit(ctx context.Context, ev StepEvent) error
}

// Settler is told when a resumed execution lands its score or badge
type Settler interface {
	Settle(ctx context.Context, res Result) error
}

// ExecutorPort runs executions for the submission boundary
type ExecutorPort interface {
	Execute(ctx context.Context, req Request) Result
	Resume(ctx context.Context, cp Checkpoint) Result
}

// WorkerPort is the resumer run loop
type WorkerPort interface {
	Run(ctx context.Context) error
}
