// Package domain holds DTOs for contributions http and service contracts
package domain

import (
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	execdom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// SubmitInput is a contribution claim as posted by the claimant
type SubmitInput struct {
	ProfileURL       string `json:"profile_url"       validate:"required,url,max=200" example:"https://github.com/octocat"`
	Address          string `json:"address"           validate:"required,max=42" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
	ContributionType string `json:"contribution_type" validate:"required,max=32" example:"MERGED_PR"`
	Title            string `json:"title,omitempty"        validate:"max=300" example:"add cUSD fee currency support"`
	Description      string `json:"description,omitempty"  validate:"max=4000"`
	EvidenceURL      string `json:"evidence_url,omitempty" validate:"omitempty,url,max=500" example:"https://github.com/celo-org/celo-monorepo/pull/1"` //nolint:lll
}

// Claim converts the input to the core claim
func (in SubmitInput) Claim() contrib.Claim {
	return contrib.Claim{
		ProfileURL:  in.ProfileURL,
		Address:     in.Address,
		Type:        contrib.Type(in.ContributionType),
		Title:       in.Title,
		Description: in.Description,
		EvidenceURL: in.EvidenceURL,
	}
}

// SubmitOutput is the outcome of an accepted submission
type SubmitOutput struct {
	Record            contrib.Record  `json:"record"`
	Opinion           contrib.Opinion `json:"opinion"`
	Delta             int             `json:"delta" example:"30"`
	OwnershipVerified bool            `json:"ownership_verified"`
	Execution         *execdom.Result `json:"execution,omitempty"`
	Tier              *tier.State     `json:"tier,omitempty"`
	Warning           string          `json:"warning,omitempty" example:"Minting: mintBadge unconfirmed"`
	Signal            *SignalOutput   `json:"signal,omitempty"`
}

// SignalOutput echoes the part of the activity signal the score was built on
type SignalOutput struct {
	Handle               string   `json:"handle" example:"octocat"`
	EcosystemRepoCount   int      `json:"ecosystem_repo_count" example:"2"`
	EcosystemCommitTotal int      `json:"ecosystem_commit_total" example:"14"`
	Specialties          []string `json:"specialties,omitempty"`
}

// Contributor is the stored tier state next to the authoritative on-chain view
type Contributor struct {
	Address         string               `json:"address" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
	Tier            string               `json:"tier" example:"BUILDER"`
	CumulativeScore uint64               `json:"cumulative_score" example:"120"`
	TierAchievedAt  map[string]time.Time `json:"tier_achieved_at,omitempty"`
	OnChainScore    *uint64              `json:"on_chain_score,omitempty" example:"120"`
	BadgeBalance    *uint64              `json:"badge_balance,omitempty" example:"1"`
	LedgerError     string               `json:"ledger_error,omitempty"`
}

// ListQuery pages through a contributor's records
type ListQuery struct {
	Limit  int
	Offset int
}

// ContributionPage is one page of records
type ContributionPage struct {
	Items  []contrib.Record
	Total  int
	Limit  int
	Offset int
}
