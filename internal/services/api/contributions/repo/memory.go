package repo

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
)

// Memory is the in-process Repo used when Postgres is disabled
type Memory struct {
	mu      sync.Mutex
	seq     int
	records map[common.Hash]memRecord
	tiers   map[common.Address]tier.State
}

type memRecord struct {
	contrib.Record
	seq int
}

var _ Repo = (*Memory)(nil)

// NewMemory returns an empty store
func NewMemory() *Memory {
	return &Memory{
		records: map[common.Hash]memRecord{},
		tiers:   map[common.Address]tier.State{},
	}
}

// Record upserts by proof hash; verified rows are left as they are
func (m *Memory) Record(_ context.Context, rec contrib.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[rec.Proof]
	if ok {
		if cur.Status == contrib.StatusVerified {
			return nil
		}
		rec.ID = cur.ID
		m.records[rec.Proof] = memRecord{Record: rec, seq: cur.seq}
		return nil
	}
	m.seq++
	m.records[rec.Proof] = memRecord{Record: rec, seq: m.seq}
	return nil
}

// Settle moves a record to its final status; verified rows and unknown proofs are ignored
func (m *Memory) Settle(_ context.Context, proof common.Hash, st contrib.Status, tx *common.Hash, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.records[proof]
	if !ok || cur.Status == contrib.StatusVerified {
		return nil
	}
	cur.Status, cur.Reason = st, reason
	if tx != nil {
		cur.OnChainTx = tx
	}
	m.records[proof] = cur
	return nil
}

// ApplyTier folds u into the stored state
func (m *Memory) ApplyTier(_ context.Context, u tier.Update) (tier.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tiers[u.Address]
	if !ok {
		cur = tier.State{Address: u.Address}
	}
	next := tier.State{
		Address:    u.Address,
		Tier:       max(cur.Tier, u.State.Tier),
		Cumulative: max(cur.Cumulative, u.State.Cumulative),
	}
	if len(cur.AchievedAt)+len(u.State.AchievedAt) > 0 {
		next.AchievedAt = make(map[tier.Tier]time.Time, len(u.State.AchievedAt))
		maps.Copy(next.AchievedAt, u.State.AchievedAt)
		maps.Copy(next.AchievedAt, cur.AchievedAt)
	}
	m.tiers[u.Address] = next
	return next, nil
}

// TierState returns the stored state; an unknown address is Unranked with score 0
func (m *Memory) TierState(_ context.Context, addr common.Address) (tier.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.tiers[addr]; ok {
		return st, nil
	}
	return tier.State{Address: addr}, nil
}

// ListByAddress pages through records newest first
func (m *Memory) ListByAddress(_ context.Context, addr common.Address, limit, offset int) ([]contrib.Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []memRecord
	for _, r := range m.records {
		if r.Address == addr {
			all = append(all, r)
		}
	}
	slices.SortFunc(all, func(a, b memRecord) int { return b.seq - a.seq })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	out := make([]contrib.Record, 0, end-offset)
	for _, r := range all[offset:end] {
		out = append(out, r.Record)
	}
	return out, total, nil
}
