// Package repo provides postgres access for contributions and tier states
package repo

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	"github.com/ditsyandrea22/celo-identity/internal/modkit/repokit"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/services/submission"
)

// Repo is the contributions store: the submission sink plus the read side
type Repo interface {
	submission.Sink
	TierState(ctx context.Context, addr common.Address) (tier.State, error)
	ListByAddress(ctx context.Context, addr common.Address, limit, offset int) ([]contrib.Record, int, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS contributions (
	id                TEXT PRIMARY KEY,
	proof_hash        TEXT        NOT NULL UNIQUE,
	address           TEXT        NOT NULL,
	github_handle     TEXT        NOT NULL,
	contribution_type TEXT        NOT NULL,
	score             INTEGER     NOT NULL DEFAULT 0,
	status            TEXT        NOT NULL,
	on_chain_tx       TEXT,
	reason            TEXT        NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS contributions_address_created
	ON contributions (address, created_at DESC);

CREATE TABLE IF NOT EXISTS tier_states (
	address          TEXT PRIMARY KEY,
	current_tier     SMALLINT    NOT NULL DEFAULT 0,
	cumulative_score BIGINT      NOT NULL DEFAULT 0,
	tier_achieved_at JSONB       NOT NULL DEFAULT '{}'::jsonb,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type (
	// PG implements Repo using Postgres
	PG struct{}

	queries struct{ q repokit.Queryer }
)

// NewPG creates a new Postgres repository binder
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind binds a Postgres queryer to the Repo implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Init creates the contributions and tier_states tables
func Init(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, schema)
	return perr.FromPostgres(err, "init contributions")
}

// Record upserts by proof hash; verified rows are left as they are
func (r *queries) Record(ctx context.Context, rec contrib.Record) error {
	const sql = `
insert into contributions (id, proof_hash, address, github_handle, contribution_type, score, status, on_chain_tx, reason)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
on conflict (proof_hash) do update
set github_handle = excluded.github_handle,
	contribution_type = excluded.contribution_type,
	score = excluded.score,
	status = excluded.status,
	on_chain_tx = excluded.on_chain_tx,
	reason = excluded.reason,
	updated_at = now()
where contributions.status <> 'verified'
`
	_, err := r.q.Exec(ctx, sql,
		rec.ID, rec.Proof.Hex(), rec.Address.Hex(), rec.Handle, string(rec.Type), rec.Score,
		string(rec.Status), hexPtr(rec.OnChainTx), rec.Reason,
	)
	return perr.FromPostgresWithField(err, "record contribution")
}

// Settle moves a record to its final status; verified rows and unknown proofs are ignored
func (r *queries) Settle(ctx context.Context, proof common.Hash, st contrib.Status, tx *common.Hash, reason string) error {
	const sql = `
update contributions
set status = $2,
	on_chain_tx = coalesce($3, on_chain_tx),
	reason = $4,
	updated_at = now()
where proof_hash = $1 and status <> 'verified'
`
	_, err := r.q.Exec(ctx, sql, proof.Hex(), string(st), hexPtr(tx), reason)
	return perr.FromPostgres(err, "settle contribution")
}

// ApplyTier folds u into the stored state in one statement
// cumulative and tier take the max; existing milestone timestamps win
func (r *queries) ApplyTier(ctx context.Context, u tier.Update) (tier.State, error) {
	achieved, err := json.Marshal(u.State.AchievedAt)
	if err != nil {
		return tier.State{}, perr.Wrap(err, perr.ErrorCodeJSON, "encode tier milestones")
	}
	if u.State.AchievedAt == nil {
		achieved = []byte("{}")
	}
	const sql = `
insert into tier_states (address, current_tier, cumulative_score, tier_achieved_at)
values ($1, $2, $3, $4::jsonb)
on conflict (address) do update
set current_tier = greatest(tier_states.current_tier, excluded.current_tier),
	cumulative_score = greatest(tier_states.cumulative_score, excluded.cumulative_score),
	tier_achieved_at = excluded.tier_achieved_at || tier_states.tier_achieved_at,
	updated_at = now()
returning address, current_tier, cumulative_score, tier_achieved_at
`
	st, err := scanState(r.q.QueryRow(ctx, sql,
		u.Address.Hex(), int16(u.State.Tier), int64(u.State.Cumulative), string(achieved),
	))
	if err != nil {
		return tier.State{}, perr.FromPostgres(err, "apply tier update")
	}
	return st, nil
}

// TierState loads the stored state; an unknown address is Unranked with score 0
func (r *queries) TierState(ctx context.Context, addr common.Address) (tier.State, error) {
	const sql = `
select address, current_tier, cumulative_score, tier_achieved_at
from tier_states
where address = $1
`
	st, err := scanState(r.q.QueryRow(ctx, sql, addr.Hex()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, stdsql.ErrNoRows) {
			return tier.State{Address: addr}, nil
		}
		return tier.State{}, perr.FromPostgres(err, "get tier state")
	}
	return st, nil
}

// ListByAddress pages through records newest first and reports the total
func (r *queries) ListByAddress(ctx context.Context, addr common.Address, limit, offset int) ([]contrib.Record, int, error) {
	const sql = `
select id, proof_hash, address, github_handle, contribution_type, score, status, on_chain_tx, reason,
	count(*) over () as total
from contributions
where address = $1
order by created_at desc, id
limit $2 offset $3
`
	rows, err := r.q.Query(ctx, sql, addr.Hex(), limit, offset)
	if err != nil {
		return nil, 0, perr.FromPostgres(err, "list contributions")
	}
	defer rows.Close()

	var (
		out   []contrib.Record
		total int
	)
	for rows.Next() {
		var (
			rec                 contrib.Record
			proof, address, typ string
			status              string
			tx                  *string
		)
		if err := rows.Scan(
			&rec.ID, &proof, &address, &rec.Handle, &typ, &rec.Score, &status, &tx, &rec.Reason, &total,
		); err != nil {
			return nil, 0, perr.FromPostgres(err, "scan contribution")
		}
		rec.Proof = common.HexToHash(proof)
		rec.Address = common.HexToAddress(address)
		rec.Type, rec.Status = contrib.Type(typ), contrib.Status(status)
		rec.OnChainTx = hashPtr(tx)
		out = append(out, rec)
	}
	return out, total, perr.FromPostgres(rows.Err(), "list contributions")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(s scanner) (tier.State, error) {
	var (
		addr     string
		current  int16
		score    int64
		achieved []byte
	)
	if err := s.Scan(&addr, &current, &score, &achieved); err != nil {
		return tier.State{}, err
	}
	st := tier.State{
		Address:    common.HexToAddress(addr),
		Tier:       tier.Tier(current),
		Cumulative: uint64(score),
	}
	if len(achieved) > 0 {
		var m map[tier.Tier]time.Time
		if err := json.Unmarshal(achieved, &m); err != nil {
			return tier.State{}, err
		}
		if len(m) > 0 {
			st.AchievedAt = m
		}
	}
	return st, nil
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
