// Package signals turns a contributor's public GitHub activity into an ActivitySignal
package signals

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	gh "github.com/ditsyandrea22/celo-identity/internal/adapters/github"
	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	"github.com/ditsyandrea22/celo-identity/internal/core/ecosystem"
	"github.com/ditsyandrea22/celo-identity/internal/core/identity"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
)

// Source is the identity source surface the extractor reads
type Source interface {
	User(ctx context.Context, login string) (gh.User, error)
	Repos(ctx context.Context, login string) ([]gh.Repo, error)
	CommitCount(ctx context.Context, owner, repo, author string) (int, error)
	FileContent(ctx context.Context, owner, repo, path string) ([]byte, bool, error)
}

// Options bounds the extraction fan-out
type Options struct {
	// ProbeTimeout bounds each file probe and commit count
	ProbeTimeout time.Duration
	// Concurrency caps repositories classified at once; each fetches its candidate files together
	Concurrency int
	// MaxRepos caps how many repositories are inspected
	MaxRepos int
	Metrics  *metrics.Manager
}

// Extractor derives activity signals; it keeps no state between calls
type Extractor struct {
	src   Source
	match *ecosystem.Matcher
	opts  Options
	log   logger.Logger
}

// New builds an Extractor
func New(src Source, match *ecosystem.Matcher, o Options) *Extractor {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.MaxRepos <= 0 || o.MaxRepos > gh.MaxRepos {
		o.MaxRepos = gh.MaxRepos
	}
	return &Extractor{src: src, match: match, opts: o, log: *logger.Named("signals")}
}

// Extract reads the profile at profileURL and classifies its repositories
func (x *Extractor) Extract(ctx context.Context, profileURL string) (contrib.ActivitySignal, error) {
	handle, err := identity.ParseProfileURL(profileURL)
	if err != nil {
		return contrib.ActivitySignal{}, err
	}
	log := x.log.With().Str("handle", handle).Logger()

	user, err := x.src.User(ctx, handle)
	if err != nil {
		return contrib.ActivitySignal{}, upstream(err, handle)
	}
	all, err := x.src.Repos(ctx, handle)
	if err != nil {
		return contrib.ActivitySignal{}, upstream(err, handle)
	}

	repos := ownRepos(all, x.opts.MaxRepos)
	found := x.classify(ctx, handle, repos)
	if err := ctx.Err(); err != nil {
		return contrib.ActivitySignal{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "signal extraction canceled")
	}

	sig := contrib.ActivitySignal{
		Handle:        user.Login,
		RepoCount:     max(user.PublicRepos, len(repos)),
		FollowerCount: user.Followers,
		Languages:     languages(repos),
	}
	if sig.Handle == "" {
		sig.Handle = handle
	}
	var matched []ecosystem.Repo
	for i, r := range repos {
		if !found[i].eco {
			continue
		}
		sig.EcosystemRepos = append(sig.EcosystemRepos, contrib.EcosystemRepo{
			Name:             r.FullName,
			URL:              r.HTMLURL,
			OwnedByTargetOrg: x.match.OwnedByOrg(r.Owner.Login),
			CommitCount:      found[i].commits,
			StarCount:        r.Stargazers,
			Language:         r.Language,
		})
		sig.EcosystemCommitTotal += found[i].commits
		matched = append(matched, view(r))
	}
	sig.Specialties = x.match.Specialties(matched)
	sig.DeclaredAddress, sig.AddressWellFormed = identity.BioAddress(user.Bio)

	log.Info().
		Int("repos", len(repos)).
		Int("ecosystem_repos", len(sig.EcosystemRepos)).
		Int("ecosystem_commits", sig.EcosystemCommitTotal).
		Bool("bio_address", sig.DeclaredAddress != nil).
		Msg("signal extracted")
	return sig, nil
}

type finding struct {
	eco     bool
	commits int
}

// classify fans out over repos; probe failures count as "not found" and never abort
func (x *Extractor) classify(ctx context.Context, handle string, repos []gh.Repo) []finding {
	out := make([]finding, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.opts.Concurrency)
	for i, r := range repos {
		g.Go(func() error {
			v := view(r)
			eco := x.match.FastMatch(v)
			if !eco && x.match.Probeable(v) {
				eco = x.scanFiles(gctx, r, x.match.ProbeFiles(v))
			}
			if !eco {
				return nil
			}
			out[i] = finding{eco: true, commits: x.commits(gctx, r, handle)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// scanFiles fetches r's candidate files together; the first marker hit cancels the rest
func (x *Extractor) scanFiles(ctx context.Context, r gh.Repo, files []string) bool {
	if len(files) == 0 || ctx.Err() != nil {
		return false
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			if x.scanFile(gctx, r, f) {
				return errMarkerFound
			}
			return nil
		})
	}
	return errors.Is(g.Wait(), errMarkerFound)
}

var errMarkerFound = errors.New("ecosystem marker found")

func (x *Extractor) scanFile(ctx context.Context, r gh.Repo, f string) bool {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, x.opts.ProbeTimeout)
	defer cancel()
	body, ok, err := x.src.FileContent(pctx, r.Owner.Login, r.Name, f)
	switch {
	case err != nil && ctx.Err() != nil:
		// canceled by a sibling hit or by the caller
		return false
	case err != nil:
		x.opts.Metrics.Probe("error", time.Since(start))
		x.log.Debug().Err(err).Str("repo", r.FullName).Str("file", f).Msg("probe failed")
		return false
	case ok && x.match.ContainsMarker(body):
		x.opts.Metrics.Probe("found", time.Since(start))
		return true
	default:
		x.opts.Metrics.Probe("missing", time.Since(start))
		return false
	}
}

func (x *Extractor) commits(ctx context.Context, r gh.Repo, handle string) int {
	cctx, cancel := context.WithTimeout(ctx, x.opts.ProbeTimeout)
	defer cancel()
	n, err := x.src.CommitCount(cctx, r.Owner.Login, r.Name, handle)
	if err != nil {
		x.log.Debug().Err(err).Str("repo", r.FullName).Msg("commit count failed")
		return 0
	}
	return n
}

// ownRepos drops forks, orders by stars desc then name asc, and caps the list
func ownRepos(all []gh.Repo, limit int) []gh.Repo {
	out := make([]gh.Repo, 0, len(all))
	for _, r := range all {
		if !r.Fork {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b gh.Repo) int {
		if c := cmp.Compare(b.Stargazers, a.Stargazers); c != 0 {
			return c
		}
		return cmp.Compare(a.FullName, b.FullName)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func languages(repos []gh.Repo) []string {
	var out []string
	for _, r := range repos {
		if r.Language != "" && !slices.Contains(out, r.Language) {
			out = append(out, r.Language)
		}
	}
	slices.Sort(out)
	return out
}

func view(r gh.Repo) ecosystem.Repo {
	return ecosystem.Repo{
		Owner:       r.Owner.Login,
		Name:        r.Name,
		Description: r.Description,
		Topics:      r.Topics,
		Language:    r.Language,
	}
}

// upstream maps identity source failures: 404 is a missing profile, the rest is unavailability
func upstream(err error, handle string) error {
	if gh.IsNotFound(err) {
		return perr.WithField(perr.NotFoundf("github profile %q not found", handle), "profile_url")
	}
	if perr.IsCode(err, perr.ErrorCodeUnavailable) {
		return err
	}
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "identity source unavailable")
}
