// Package repo provides checkpoint persistence and step event sinks for execution
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/repokit"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/store"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS execution_checkpoints (
	proof_hash       TEXT PRIMARY KEY,
	address          TEXT        NOT NULL,
	delta            BIGINT      NOT NULL,
	prev_score       BIGINT      NOT NULL DEFAULT 0,
	new_score        BIGINT      NOT NULL DEFAULT 0,
	step             TEXT        NOT NULL,
	status           TEXT        NOT NULL,
	badge_tier       SMALLINT    NOT NULL DEFAULT 0,
	badge_uri        TEXT        NOT NULL DEFAULT '',
	registry_tx      TEXT,
	score_tx         TEXT,
	badge_tx         TEXT,
	pending_op       TEXT,
	pending_tx       TEXT,
	pending_raw      BYTEA,
	failed_step      TEXT        NOT NULL DEFAULT '',
	cause            TEXT        NOT NULL DEFAULT '',
	retry_safe       BOOLEAN     NOT NULL DEFAULT FALSE,
	attempts         INTEGER     NOT NULL DEFAULT 0,
	next_attempt_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	leased_by        TEXT,
	lease_expires_at TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS execution_checkpoints_resumable
	ON execution_checkpoints (next_attempt_at)
	WHERE status IN ('stalled', 'running');

CREATE INDEX IF NOT EXISTS execution_checkpoints_address
	ON execution_checkpoints (address);
`

const columns = `proof_hash, address, delta, prev_score, new_score, step, status,
	badge_tier, badge_uri, registry_tx, score_tx, badge_tx,
	pending_op, pending_tx, pending_raw, failed_step, cause, retry_safe,
	attempts, next_attempt_at, created_at, updated_at`

type (
	// PG is the Postgres checkpoint store
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres checkpoint store
func NewPG() repokit.Binder[dom.CheckpointStore] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) dom.CheckpointStore { return &queries{q: q} }

// Init creates the checkpoint table and indexes
func Init(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "init execution_checkpoints")
}

// Create inserts cp; an existing row for the proof is left untouched
func (r *queries) Create(ctx context.Context, cp dom.Checkpoint) (bool, error) {
	const sql = `
		INSERT INTO execution_checkpoints (
			proof_hash, address, delta, prev_score, new_score, step, status, retry_safe
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (proof_hash) DO NOTHING
	`
	tag, err := r.q.Exec(ctx, sql,
		cp.Proof.Hex(), cp.Address.Hex(), int64(cp.Delta), int64(cp.PrevScore), int64(cp.NewScore),
		string(cp.Step), string(cp.Status), cp.RetrySafe,
	)
	if err != nil {
		return false, perr.FromPostgres(err, "create checkpoint")
	}
	return tag.RowsAffected() == 1, nil
}

// Save writes every progress column of cp; lease columns are not touched
func (r *queries) Save(ctx context.Context, cp dom.Checkpoint) error {
	const sql = `
		UPDATE execution_checkpoints
		   SET prev_score  = $2,
		       new_score   = $3,
		       step        = $4,
		       status      = $5,
		       badge_tier  = $6,
		       badge_uri   = $7,
		       registry_tx = $8,
		       score_tx    = $9,
		       badge_tx    = $10,
		       pending_op  = $11,
		       pending_tx  = $12,
		       pending_raw = $13,
		       failed_step = $14,
		       cause       = $15,
		       retry_safe  = $16,
		       updated_at  = now()
		 WHERE proof_hash = $1
	`
	var pOp, pTx *string
	var pRaw []byte
	if cp.Pending != nil {
		op, tx := string(cp.Pending.Op), cp.Pending.Tx.Hex()
		pOp, pTx, pRaw = &op, &tx, cp.Pending.Raw
	}
	err := store.ExecOne(ctx, r.q, sql,
		cp.Proof.Hex(), int64(cp.PrevScore), int64(cp.NewScore), string(cp.Step), string(cp.Status),
		int16(cp.BadgeTier), cp.BadgeURI,
		hexPtr(cp.RegistryTx), hexPtr(cp.ScoreTx), hexPtr(cp.BadgeTx),
		pOp, pTx, pRaw,
		string(cp.FailedStep), cp.Cause, cp.RetrySafe,
	)
	return notFoundOr(err, cp.Proof, "save checkpoint")
}

// Get loads the checkpoint for proof
func (r *queries) Get(ctx context.Context, proof common.Hash) (dom.Checkpoint, error) {
	sql := `SELECT ` + columns + ` FROM execution_checkpoints WHERE proof_hash = $1`
	cp, err := store.One(ctx, r.q, scanCheckpoint, sql, proof.Hex())
	if err != nil {
		return dom.Checkpoint{}, notFoundOr(err, proof, "get checkpoint")
	}
	return cp, nil
}

// Lease claims resumable checkpoints with FOR UPDATE SKIP LOCKED
func (r *queries) Lease(
	ctx context.Context,
	worker string,
	limit int,
	leaseFor, staleAfter time.Duration,
) ([]dom.Checkpoint, error) {
	if worker == "" {
		worker = uuid.NewString()
	}
	sql := `
		WITH ready AS (
			SELECT proof_hash
			  FROM execution_checkpoints
			 WHERE (leased_by IS NULL OR lease_expires_at < now())
			   AND next_attempt_at <= now()
			   AND (
			        (status = 'stalled' AND retry_safe)
			     OR (status = 'running' AND updated_at < now() - make_interval(secs => $4))
			   )
			 ORDER BY next_attempt_at ASC
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED
		), upd AS (
			UPDATE execution_checkpoints c
			   SET leased_by        = $2,
			       lease_expires_at = now() + make_interval(secs => $3),
			       updated_at       = now()
			 WHERE c.proof_hash IN (SELECT proof_hash FROM ready)
			RETURNING c.*
		)
		SELECT ` + columns + ` FROM upd`

	out, err := store.Many(ctx, r.q, scanCheckpoint, sql, limit, worker, leaseFor.Seconds(), staleAfter.Seconds())
	if err != nil {
		return nil, perr.FromPostgres(err, "lease checkpoints")
	}
	return out, nil
}

// Release clears the lease and schedules the next attempt
func (r *queries) Release(ctx context.Context, proof common.Hash, nextAttemptAt time.Time) error {
	const sql = `
		UPDATE execution_checkpoints
		   SET attempts         = attempts + 1,
		       next_attempt_at  = $2,
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       updated_at       = now()
		 WHERE proof_hash = $1
	`
	return notFoundOr(store.ExecOne(ctx, r.q, sql, proof.Hex(), nextAttemptAt), proof, "release checkpoint")
}

func scanCheckpoint(s store.Row) (dom.Checkpoint, error) {
	var (
		cp                        dom.Checkpoint
		proof, addr, step, status string
		delta, prev, next         int64
		badgeTier                 int16
		registry, score, badgeTx  *string
		pOp, pTx                  *string
		pRaw                      []byte
		failedStep                string
	)
	if err := s.Scan(
		&proof, &addr, &delta, &prev, &next, &step, &status,
		&badgeTier, &cp.BadgeURI, &registry, &score, &badgeTx,
		&pOp, &pTx, &pRaw, &failedStep, &cp.Cause, &cp.RetrySafe,
		&cp.Attempts, &cp.NextAttemptAt, &cp.CreatedAt, &cp.UpdatedAt,
	); err != nil {
		return dom.Checkpoint{}, err
	}
	cp.Proof = common.HexToHash(proof)
	cp.Address = common.HexToAddress(addr)
	cp.Delta, cp.PrevScore, cp.NewScore = uint64(delta), uint64(prev), uint64(next)
	cp.Step, cp.Status, cp.FailedStep = dom.Step(step), dom.Status(status), dom.Step(failedStep)
	cp.BadgeTier = tier.Tier(badgeTier)
	cp.RegistryTx, cp.ScoreTx, cp.BadgeTx = hashPtr(registry), hashPtr(score), hashPtr(badgeTx)
	if pOp != nil && pTx != nil {
		cp.Pending = &ledger.Pending{Op: ledger.Op(*pOp), Tx: common.HexToHash(*pTx), Raw: pRaw}
	}
	return cp, nil
}

func notFoundOr(err error, proof common.Hash, msg string) error {
	if errors.Is(err, perr.ErrNotFound) {
		return perr.NotFoundf("checkpoint %s not found", proof.Hex())
	}
	return perr.FromPostgres(err, msg)
}

func hexPtr(h *common.Hash) *string {
	if h == nil {
		return nil
	}
	s := h.Hex()
	return &s
}

func hashPtr(s *string) *common.Hash {
	if s == nil || *s == "" {
		return nil
	}
	h := common.HexToHash(*s)
	return &h
}
