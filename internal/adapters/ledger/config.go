package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

// Ledger backends
const (
	ModeMemory = "memory"
	ModeEVM    = "evm"
)

// Config selects and configures a backend
type Config struct {
	Mode string
	EVM  EVMConfig
}

// FromConfig reads LEDGER_* settings under root
func FromConfig(root config.Conf) Config {
	c := root.Prefix("LEDGER_")
	cfg := Config{Mode: strings.ToLower(c.MayEnum("MODE", ModeMemory, ModeMemory, ModeEVM))}
	if cfg.Mode != ModeEVM {
		return cfg
	}
	cfg.EVM = EVMConfig{
		RPCURL:         c.MustString("RPC_URL"),
		ChainID:        c.MayInt64("CHAIN_ID", 44787),
		PrivateKey:     c.MustSecret("PRIVATE_KEY"),
		ProofRegistry:  mustAddress(c, "PROOF_REGISTRY"),
		ScoreContract:  mustAddress(c, "REPUTATION_SCORE"),
		BadgeContract:  mustAddress(c, "REPUTATION_BADGE"),
		ConfirmTimeout: c.MayDuration("CONFIRM_TIMEOUT", 90*time.Second),
		Retry: RetryPolicy{
			Attempts: c.MayInt("RETRY_ATTEMPTS", DefaultRetry.Attempts),
			Base:     c.MayDuration("RETRY_BASE", DefaultRetry.Base),
			Max:      c.MayDuration("RETRY_MAX", DefaultRetry.Max),
		},
	}
	return cfg
}

func mustAddress(c config.Conf, key string) common.Address {
	v := c.MustString(key)
	if !common.IsHexAddress(v) {
		logger.Get().Panic().Str("key", key).Str("value", v).Msg("invalid address")
	}
	return common.HexToAddress(v)
}

// Open builds the configured gateway; the returned func releases it
func Open(ctx context.Context, cfg Config) (Gateway, func(), error) {
	switch cfg.Mode {
	case "", ModeMemory:
		return NewMemory(), func() {}, nil
	case ModeEVM:
		e, err := DialEVM(ctx, cfg.EVM)
		if err != nil {
			return nil, nil, err
		}
		return e, e.Close, nil
	}
	return nil, nil, perr.InvalidArgf("unknown ledger mode %q", cfg.Mode)
}
