package submission

import (
	"context"
	"errors"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
	execdom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"
)

// Settle delivers a landed execution to sink: the record turns verified and the tier update is applied
// it is idempotent, so the resumer may deliver the same result again
func Settle(ctx context.Context, sink Sink, res execdom.Result, now time.Time) (*tier.State, error) {
	u, ok := res.TierUpdate()
	if !ok {
		return nil, nil
	}
	u.State = tier.Merge(tier.State{Address: u.Address}, u.NewCumulative, now)
	if sink == nil {
		return &u.State, nil
	}

	ctx = context.WithoutCancel(ctx)
	var errs []error
	if err := sink.Settle(ctx, res.Proof, contrib.StatusVerified, res.ScoreTx, ""); err != nil {
		errs = append(errs, err)
	}
	state, err := sink.ApplyTier(ctx, u)
	if err != nil {
		return &u.State, errors.Join(append(errs, err)...)
	}
	return &state, errors.Join(errs...)
}

// Settler adapts a Sink to the resumer's settle port
type Settler struct {
	Sink Sink
	Now  func() time.Time
}

var _ execdom.Settler = Settler{}

// Settle implements execdom.Settler
func (s Settler) Settle(ctx context.Context, res execdom.Result) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	_, err := Settle(ctx, s.Sink, res, now())
	return err
}
