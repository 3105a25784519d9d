// Package domain defines the execution state machine types and its ports
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/adapters/ledger"
	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
)

// Step is a state of the execution machine
type Step string

// Steps in execution order; Failed is terminal
const (
	StepScoring       Step = "Scoring"
	StepRegistering   Step = "Registering"
	StepScoreUpdating Step = "ScoreUpdating"
	StepBadgeChecking Step = "BadgeChecking"
	StepMinting       Step = "Minting"
	StepComplete      Step = "Complete"
	StepFailed        Step = "Failed"
)

// Status is the lifecycle of a persisted checkpoint
type Status string

// Checkpoint statuses
//
//	running  a run owns the checkpoint
//	stalled  a retry safe failure left the tail for the resumer
//	failed   terminal, nothing will touch it again
//	complete every step confirmed
const (
	StatusRunning  Status = "running"
	StatusStalled  Status = "stalled"
	StatusFailed   Status = "failed"
	StatusComplete Status = "complete"
)

// Request is one scored claim to execute
type Request struct {
	Claim   contrib.Claim
	Address common.Address
	Delta   uint64
}

// Checkpoint is the persisted progress of one execution, keyed by proof hash
// Step is the next step to run, or the step that failed
type Checkpoint struct {
	Proof     common.Hash    `json:"proof_hash"`
	Address   common.Address `json:"address"`
	Delta     uint64         `json:"delta"`
	PrevScore uint64         `json:"prev_score"`
	NewScore  uint64         `json:"new_score"`
	Step      Step           `json:"step"`
	Status    Status         `json:"status"`
	BadgeTier tier.Tier      `json:"badge_tier"`
	BadgeURI  string         `json:"badge_uri,omitempty"`

	RegistryTx *common.Hash    `json:"registry_tx,omitempty"`
	ScoreTx    *common.Hash    `json:"score_tx,omitempty"`
	BadgeTx    *common.Hash    `json:"badge_tx,omitempty"`
	Pending    *ledger.Pending `json:"pending,omitempty"`

	FailedStep Step   `json:"failed_step,omitempty"`
	Cause      string `json:"cause,omitempty"`
	RetrySafe  bool   `json:"retry_safe"`

	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Resumable reports whether the resumer may pick the checkpoint up
func (c Checkpoint) Resumable() bool {
	return c.Status == StatusStalled && c.RetrySafe
}

// Outcome labels a step event
type Outcome string

// Step outcomes
const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// StepEvent is the append only audit row for one transition
type StepEvent struct {
	Proof   common.Hash    `json:"proof_hash"`
	Address common.Address `json:"address"`
	Step    Step           `json:"step"`
	Outcome Outcome        `json:"outcome"`
	Tx      *common.Hash   `json:"tx,omitempty"`
	Cause   string         `json:"cause,omitempty"`
	At      time.Time      `json:"at"`
}

// Result is the outcome of Execute or Resume
//
// Success is true once the score increase confirmed, even if minting failed
// afterwards; Err then carries the mint failure
type Result struct {
	Success    bool           `json:"success"`
	Step       Step           `json:"step"`
	Proof      common.Hash    `json:"proof_hash"`
	Address    common.Address `json:"address"`
	Delta      uint64         `json:"delta"`
	RegistryTx *common.Hash   `json:"registry_tx,omitempty"`
	// RegistryTxUnknown marks a success whose proof was found already registered on resume
	RegistryTxUnknown bool         `json:"registry_tx_unknown,omitempty"`
	ScoreTx           *common.Hash `json:"score_tx,omitempty"`
	BadgeTx           *common.Hash `json:"badge_tx,omitempty"`
	Badge             tier.Tier    `json:"badge_tier,omitempty"`
	BadgeURI          string       `json:"badge_uri,omitempty"`
	PrevScore         uint64       `json:"prev_score"`
	NewScore          uint64       `json:"new_score"`
	RetrySafe         bool         `json:"retry_safe,omitempty"`
	Err               error        `json:"-"`
}

// Cause returns the failure message or empty
func (r Result) Cause() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// TierUpdate builds the store instruction for a landed score
// ok is false when the score increase has not confirmed
func (r Result) TierUpdate() (tier.Update, bool) {
	if r.ScoreTx == nil {
		return tier.Update{}, false
	}
	return tier.Update{
		Address:       r.Address,
		Delta:         r.Delta,
		NewCumulative: r.NewScore,
		Tier:          tier.Resolve(r.NewScore),
	}, true
}
