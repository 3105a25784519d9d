package ledger

import (
	"context"
	"time"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
)

// RetryPolicy bounds retries of transient transport failures
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultRetry is used when a zero policy is configured
var DefaultRetry = RetryPolicy{Attempts: 4, Base: 250 * time.Millisecond, Max: 5 * time.Second}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetry.Attempts
	}
	if p.Base <= 0 {
		p.Base = DefaultRetry.Base
	}
	if p.Max <= 0 {
		p.Max = DefaultRetry.Max
	}
	return p
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	return min(p.Base<<uint(min(attempt, 16)), p.Max)
}

type sleeper func(context.Context, time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retry runs fn until it succeeds, is rejected, or the attempts run out
// the returned error is always classified
func retry[T any](ctx context.Context, p RetryPolicy, sleep sleeper, op Op, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		var out T
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		err = classify(err, op)
		if perr.IsCode(err, perr.ErrorCodeLedgerRejected) || ctx.Err() != nil || attempt == p.Attempts-1 {
			break
		}
		if serr := sleep(ctx, p.backoff(attempt)); serr != nil {
			return zero, classify(serr, op)
		}
	}
	return zero, err
}
