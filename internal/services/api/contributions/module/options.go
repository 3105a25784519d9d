package module

import (
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
)

// Options are the contributions module settings
type Options struct {
	LedgerTimeout time.Duration
}

// FromConfig reads CONTRIBUTIONS_* settings under root
func FromConfig(root config.Conf) Options {
	c := root.Prefix("CONTRIBUTIONS_")
	return Options{
		LedgerTimeout: c.MayDuration("LEDGER_TIMEOUT", 10*time.Second),
	}
}
