// Package github is the identity source: a paced GitHub REST v3 client
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
	"github.com/ditsyandrea22/celo-identity/internal/platform/metrics"
)

const (
	baseURLDefault   = "https://api.github.com"
	defaultTimeout   = 10 * time.Second
	defaultUA        = "celoid-signals"
	defaultMaxRetry  = 3
	defaultRetryBase = 500 * time.Millisecond
	defaultRPS       = 10
	defaultBurst     = 20
	maxBackoff       = 30 * time.Second

	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw+json"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Comma separated tokens; empty means tokenless, which has a very low quota
	TokensCSV string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// Client side pacing shared by every call on this client
	RPS   float64
	Burst int

	Metrics *metrics.Manager
}

// Client is a minimal GitHub REST client with token rotation and pacing
type Client struct {
	http    *http.Client
	opts    Options
	tokens  []string
	cur     atomic.Int32
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RPS <= 0 {
		o.RPS = defaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	var toks []string
	for t := range strings.SplitSeq(o.TokensCSV, ",") {
		if t = strings.TrimSpace(t); t != "" {
			toks = append(toks, t)
		}
	}
	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		tokens:  toks,
		limiter: rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		log:     *logger.Named("github"),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

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

// getToken returns the next token in a round robin rotation
func (c *Client) getToken() string {
	n := int(c.cur.Add(1))
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[n%len(c.tokens)]
}

// Do issues a GET-style request with auth, pacing, retries and rate limit handling
// 2xx responses are returned open; anything else comes back as *StatusError
func (c *Client) Do(ctx context.Context, endpoint, method, path, accept string) (*http.Response, error) {
	url := c.opts.BaseURL + path
	if accept == "" {
		accept = acceptJSON
	}
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github pacing")
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if tok := c.getToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			c.opts.Metrics.IdentityRequest(endpoint, 0)
			if ctx.Err() != nil || !c.shouldRetry(attempt) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s failed", endpoint)
			}
			back := c.backoff(attempt)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempt).Msg("github transport error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s canceled", endpoint)
			}
			continue
		}
		c.opts.Metrics.IdentityRequest(endpoint, resp.StatusCode)

		rem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Int("retry_after_s", retryAfter).
			Msg("github http response")

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case isRateLimited(resp.StatusCode, rem, retryAfter):
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempt) {
				return nil, statusError(resp.StatusCode, "", perr.Newf(perr.ErrorCodeTooManyRequests, "github rate limited"))
			}
			// Retry-After and X-RateLimit-Reset win over our own backoff
			wait := computeWait(rem, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = c.backoff(attempt)
			}
			wait = min(wait, maxBackoff)
			c.log.Warn().Dur("sleep", wait).Msg("github rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s canceled", endpoint)
			}
		case resp.StatusCode >= 500:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempt) {
				return nil, statusError(resp.StatusCode, "", perr.Newf(perr.ErrorCodeUnavailable, "github transient server error %d", resp.StatusCode))
			}
			back := c.backoff(attempt)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempt).Msg("github transient error retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github %s canceled", endpoint)
			}
		default:
			// read a small tail for diagnostics then return
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, statusError(resp.StatusCode, string(body), nil)
		}
	}
}

func statusError(status int, body string, cause error) *StatusError {
	if cause == nil {
		code := perr.ErrorCodeUnknown
		switch status {
		case http.StatusNotFound:
			code = perr.ErrorCodeNotFound
		case http.StatusUnauthorized:
			code = perr.ErrorCodeUnauthorized
		case http.StatusForbidden:
			code = perr.ErrorCodeForbidden
		}
		cause = perr.New(code, fmt.Sprintf("github unexpected status %d", status))
	}
	return &StatusError{Status: status, Body: body, Err: cause}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(min(attempt, 16))
	return min(d, maxBackoff)
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}
