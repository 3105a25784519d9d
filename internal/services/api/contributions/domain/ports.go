package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ServicePort is the interface implemented by the contributions service
type ServicePort interface {
	Submit(ctx context.Context, in SubmitInput) (SubmitOutput, error)
	Contributor(ctx context.Context, address string) (Contributor, error)
	Contributions(ctx context.Context, address string, q ListQuery) (ContributionPage, error)
}

// LedgerReader is the read side of the ledger the contributor view needs
type LedgerReader interface {
	ScoreOf(ctx context.Context, addr common.Address) (uint64, error)
	BadgeBalance(ctx context.Context, addr common.Address) (uint64, error)
}
