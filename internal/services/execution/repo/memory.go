package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// Memory is an in-process checkpoint store for tests and runs without Postgres
type Memory struct {
	mu     sync.Mutex
	now    func() time.Time
	rows   map[common.Hash]dom.Checkpoint
	leases map[common.Hash]time.Time
}

var _ dom.CheckpointStore = (*Memory)(nil)

// NewMemory returns an empty store
func NewMemory() *Memory {
	return &Memory{
		now:    time.Now,
		rows:   map[common.Hash]dom.Checkpoint{},
		leases: map[common.Hash]time.Time{},
	}
}

// Create inserts cp unless the proof is already present
func (m *Memory) Create(_ context.Context, cp dom.Checkpoint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[cp.Proof]; ok {
		return false, nil
	}
	now := m.now()
	cp.CreatedAt, cp.UpdatedAt, cp.NextAttemptAt = now, now, now
	m.rows[cp.Proof] = cp
	return true, nil
}

// Save overwrites progress columns and keeps bookkeeping fields
func (m *Memory) Save(_ context.Context, cp dom.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[cp.Proof]
	if !ok {
		return perr.NotFoundf("checkpoint %s not found", cp.Proof.Hex())
	}
	cp.Attempts, cp.NextAttemptAt, cp.CreatedAt = old.Attempts, old.NextAttemptAt, old.CreatedAt
	cp.UpdatedAt = m.now()
	m.rows[cp.Proof] = cp
	return nil
}

// Get returns the checkpoint for proof
func (m *Memory) Get(_ context.Context, proof common.Hash) (dom.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.rows[proof]
	if !ok {
		return dom.Checkpoint{}, perr.NotFoundf("checkpoint %s not found", proof.Hex())
	}
	return cp, nil
}

// Lease mirrors the Postgres lease rules
func (m *Memory) Lease(_ context.Context, _ string, limit int, leaseFor, staleAfter time.Duration) ([]dom.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	var ready []dom.Checkpoint
	for p, cp := range m.rows {
		if until, held := m.leases[p]; held && until.After(now) {
			continue
		}
		if cp.NextAttemptAt.After(now) {
			continue
		}
		stale := cp.Status == dom.StatusRunning && now.Sub(cp.UpdatedAt) > staleAfter
		if !cp.Resumable() && !stale {
			continue
		}
		ready = append(ready, cp)
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].NextAttemptAt.Before(ready[j].NextAttemptAt) })
	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	for _, cp := range ready {
		m.leases[cp.Proof] = now.Add(leaseFor)
	}
	return ready, nil
}

// Release drops the lease and bumps attempts
func (m *Memory) Release(_ context.Context, proof common.Hash, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.rows[proof]
	if !ok {
		return perr.NotFoundf("checkpoint %s not found", proof.Hex())
	}
	cp.Attempts++
	cp.NextAttemptAt = next
	m.rows[proof] = cp
	delete(m.leases, proof)
	return nil
}
