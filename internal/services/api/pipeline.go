package api

import (
	"context"
	"time"

	gh "github.com/ditsyandrea22/celo-identity/internal/adapters/github"
	"github.com/ditsyandrea22/celo-identity/internal/adapters/oracle"
	"github.com/ditsyandrea22/celo-identity/internal/core/ecosystem"
	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
	"github.com/ditsyandrea22/celo-identity/internal/services/advisory"
	"github.com/ditsyandrea22/celo-identity/internal/services/signals"
)

// pipeline holds the scoring stages that sit in front of execution
type pipeline struct {
	extractor *signals.Extractor
	verifier  *advisory.Verifier
	oracleOn  bool
	profile   string
}

// buildPipeline reads GITHUB_*, ORACLE_* and ECOSYSTEM_* under root
// a missing oracle key is not an error; opinions then come from the fallback formula
func buildPipeline(ctx context.Context, root config.Conf, m *metrics.Manager) (pipeline, error) {
	ghCfg := root.Prefix("GITHUB_")
	client := gh.NewClient(gh.Options{
		BaseURL:    ghCfg.MayString("BASE_URL", ""),
		UserAgent:  ghCfg.MayString("USER_AGENT", ""),
		Timeout:    ghCfg.MayDuration("TIMEOUT", 0),
		TokensCSV:  ghCfg.MaySecret("TOKENS", ""),
		MaxRetries: ghCfg.MayInt("MAX_RETRIES", 0),
		RetryBase:  ghCfg.MayDuration("RETRY_BASE", 0),
		RPS:        ghCfg.MayFloat64("RPS", 0),
		Burst:      ghCfg.MayInt("BURST", 0),
		Metrics:    m,
	})

	profile, err := ecosystem.Load(root.MayString("ECOSYSTEM_PROFILE", ""), "ECOSYSTEM_")
	if err != nil {
		return pipeline{}, err
	}
	sigCfg := root.Prefix("SIGNALS_")
	extractor := signals.New(client, ecosystem.NewMatcher(profile), signals.Options{
		ProbeTimeout: sigCfg.MayDuration("PROBE_TIMEOUT", 2*time.Second),
		Concurrency:  sigCfg.MayInt("CONCURRENCY", 8),
		MaxRepos:     sigCfg.MayInt("MAX_REPOS", gh.MaxRepos),
		Metrics:      m,
	})

	out := pipeline{extractor: extractor, profile: profile.Name}

	orCfg := root.Prefix("ORACLE_")
	key := orCfg.MaySecret("API_KEY", "")
	if key == "" {
		logger.Named("api").Warn().Msg("no ORACLE_API_KEY; advisory opinions use the fallback formula")
		out.verifier = advisory.New(nil, m)
		return out, nil
	}
	o, err := oracle.New(ctx, oracle.Options{
		APIKey:  key,
		Model:   orCfg.MayString("MODEL", ""),
		BaseURL: orCfg.MayString("BASE_URL", ""),
		Timeout: orCfg.MayDuration("TIMEOUT", 10*time.Second),
	})
	if err != nil {
		return pipeline{}, err
	}
	out.verifier, out.oracleOn = advisory.New(o, m), true
	return out, nil
}
