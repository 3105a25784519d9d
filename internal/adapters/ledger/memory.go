package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
)

// Fault makes the memory ledger fail an operation
// OnConfirm faults fire after the effect was applied, like a receipt that never arrives
type Fault struct {
	Op        Op
	OnConfirm bool
	Err       error
	Times     int
}

// Memory is an in-process ledger that enforces proof dedup and applies
// mutations immediately; it backs tests and LEDGER_MODE=memory
type Memory struct {
	mu     sync.Mutex
	nonce  uint64
	block  uint64
	proofs map[common.Hash]common.Address
	scores map[common.Address]uint64
	badges map[common.Address]map[string]Badge
	mined  map[common.Hash]Pending
	faults []Fault
	calls  map[Op]int
}

var _ Gateway = (*Memory)(nil)

// NewMemory returns an empty ledger
func NewMemory() *Memory {
	return &Memory{
		proofs: map[common.Hash]common.Address{},
		scores: map[common.Address]uint64{},
		badges: map[common.Address]map[string]Badge{},
		mined:  map[common.Hash]Pending{},
		calls:  map[Op]int{},
	}
}

// Inject queues a fault; Times <= 0 means once
func (m *Memory) Inject(f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Times <= 0 {
		f.Times = 1
	}
	if f.Err == nil {
		f.Err = errors.New("injected transport failure")
	}
	m.faults = append(m.faults, f)
}

// Calls reports how many submissions of op were attempted
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Badges lists the badges held by addr
func (m *Memory) Badges(addr common.Address) []Badge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Badge, 0, len(m.badges[addr]))
	for _, b := range m.badges[addr] {
		out = append(out, b)
	}
	return out
}

func (m *Memory) fault(op Op, onConfirm bool) error {
	for i := range m.faults {
		f := &m.faults[i]
		if f.Op != op || f.OnConfirm != onConfirm || f.Times == 0 {
			continue
		}
		f.Times--
		return classify(f.Err, op)
	}
	return nil
}

func (m *Memory) submit(op Op, apply func() error, args ...[]byte) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if err := m.fault(op, false); err != nil {
		return Pending{}, err
	}
	if err := apply(); err != nil {
		return Pending{}, err
	}
	m.nonce++
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(op))
	h.Write(binary.BigEndian.AppendUint64(nil, m.nonce))
	for _, a := range args {
		h.Write(a)
	}
	var tx common.Hash
	h.Sum(tx[:0])
	p := Pending{Op: op, Tx: tx}
	m.mined[tx] = p
	return p, nil
}

// RegisterProof records proof for addr; a reused proof is rejected
func (m *Memory) RegisterProof(_ context.Context, addr common.Address, proof common.Hash, delta uint64) (Pending, error) {
	return m.submit(OpRegister, func() error {
		if _, used := m.proofs[proof]; used {
			return perr.LedgerRejectedf(errors.New("execution reverted: proof already used"), "%s rejected", OpRegister)
		}
		m.proofs[proof] = addr
		return nil
	}, addr.Bytes(), proof.Bytes(), new(big.Int).SetUint64(delta).Bytes())
}

// IncreaseScore adds delta to addr's score
func (m *Memory) IncreaseScore(_ context.Context, addr common.Address, delta uint64) (Pending, error) {
	return m.submit(OpIncrease, func() error {
		m.scores[addr] += delta
		return nil
	}, addr.Bytes(), new(big.Int).SetUint64(delta).Bytes())
}

// MintBadge mints b to addr; a token id can only be minted once
func (m *Memory) MintBadge(_ context.Context, addr common.Address, b Badge) (Pending, error) {
	if b.TokenID == nil {
		return Pending{}, perr.LedgerRejectedf(errors.New("execution reverted: missing token id"), "%s rejected", OpMint)
	}
	key := b.TokenID.String()
	return m.submit(OpMint, func() error {
		for _, held := range m.badges {
			if _, dup := held[key]; dup {
				return perr.LedgerRejectedf(errors.New("execution reverted: token already minted"), "%s rejected", OpMint)
			}
		}
		if m.badges[addr] == nil {
			m.badges[addr] = map[string]Badge{}
		}
		m.badges[addr][key] = b
		return nil
	}, addr.Bytes(), b.TokenID.Bytes(), []byte(b.URI), []byte{b.Tier})
}

// Confirm returns the receipt of a mined tx
func (m *Memory) Confirm(_ context.Context, p Pending) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(p.Op, true); err != nil {
		return Receipt{}, err
	}
	if _, ok := m.mined[p.Tx]; !ok {
		return Receipt{}, perr.LedgerUnconfirmedf(errors.New("transaction not found"), "%s unconfirmed", p.Op)
	}
	m.block++
	return Receipt{Tx: p.Tx, Block: m.block}, nil
}

// ScoreOf reads addr's cumulative score
func (m *Memory) ScoreOf(_ context.Context, addr common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault(OpReadScore, false); err != nil {
		return 0, err
	}
	return m.scores[addr], nil
}

// BadgeBalance counts addr's badges
func (m *Memory) BadgeBalance(_ context.Context, addr common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.badges[addr])), nil
}

// IsProofUsed reports whether proof was registered
func (m *Memory) IsProofUsed(_ context.Context, proof common.Hash) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, used := m.proofs[proof]
	return used, nil
}
