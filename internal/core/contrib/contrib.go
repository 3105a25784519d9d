// Package contrib holds the contribution domain types shared by the scoring pipeline
package contrib

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Type is the declared kind of contribution
type Type string

// Contribution types, ordered from highest base score to lowest
const (
	MergedPR      Type = "MERGED_PR"
	IssueResolved Type = "ISSUE_RESOLVED"
	CodeReview    Type = "CODE_REVIEW"
	Documentation Type = "DOCUMENTATION"
	Commit        Type = "COMMIT"
)

var baseScores = map[Type]int{
	MergedPR:      10,
	IssueResolved: 8,
	CodeReview:    6,
	Documentation: 5,
	Commit:        3,
}

// Types lists every known contribution type
func Types() []Type {
	return []Type{MergedPR, IssueResolved, CodeReview, Documentation, Commit}
}

// ParseType accepts the canonical upper snake form, case-insensitively
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := baseScores[t]; !ok {
		return "", fmt.Errorf("unknown contribution type %q", s)
	}
	return t, nil
}

// BaseScore returns the fixed base points for t, 0 for unknown types
func (t Type) BaseScore() int { return baseScores[t] }

// MaxDelta is the hard cap of any single score delta for t
func (t Type) MaxDelta() int { return t.BaseScore() * 3 }

// Valid reports whether t is a known type
func (t Type) Valid() bool {
	_, ok := baseScores[t]
	return ok
}

// Claim is the raw submission payload; its canonical form is the proof preimage
type Claim struct {
	ProfileURL  string `json:"profile_url"`
	Address     string `json:"address"`
	Type        Type   `json:"contribution_type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	EvidenceURL string `json:"evidence_url,omitempty"`
}

// Status is the lifecycle of a stored contribution record
type Status string

// Record statuses
const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Record is the contribution row the pipeline emits for the store
type Record struct {
	ID        string         `json:"id"`
	Address   common.Address `json:"address"`
	Handle    string         `json:"github_handle"`
	Type      Type           `json:"contribution_type"`
	Score     int            `json:"score"`
	Status    Status         `json:"status"`
	Proof     common.Hash    `json:"proof_hash"`
	OnChainTx *common.Hash   `json:"on_chain_tx,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}
