// Package ledger is the typed gateway to the proof registry, reputation score and badge contracts
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Op names a ledger mutation
type Op string

// Mutations and reads the gateway performs
const (
	OpRegister  Op = "registerProof"
	OpIncrease  Op = "increaseScore"
	OpMint      Op = "mintBadge"
	OpReadScore Op = "getScore"
)

// Pending is a submitted, signed transaction that is not yet confirmed
// Raw holds the signed bytes so a rebroadcast is byte-identical
type Pending struct {
	Op  Op            `json:"op"`
	Tx  common.Hash   `json:"tx"`
	Raw hexutil.Bytes `json:"raw,omitempty"`
}

// Receipt is a confirmed transaction
type Receipt struct {
	Tx    common.Hash `json:"tx"`
	Block uint64      `json:"block"`
}

// Gateway is the ledger facade used by execution
//
// Errors are perr coded: ErrorCodeLedgerRejected for reverts, which must never be
// retried, and ErrorCodeLedgerUnconfirmed for timeouts, drops and transport failures
type Gateway interface {
	RegisterProof(ctx context.Context, addr common.Address, proof common.Hash, delta uint64) (Pending, error)
	IncreaseScore(ctx context.Context, addr common.Address, delta uint64) (Pending, error)
	MintBadge(ctx context.Context, addr common.Address, badge Badge) (Pending, error)
	Confirm(ctx context.Context, p Pending) (Receipt, error)

	ScoreOf(ctx context.Context, addr common.Address) (uint64, error)
	BadgeBalance(ctx context.Context, addr common.Address) (uint64, error)
	IsProofUsed(ctx context.Context, proof common.Hash) (bool, error)
}

// Badge is the mint payload for one tier badge
type Badge struct {
	TokenID *big.Int
	URI     string
	Tier    uint8
}
