// Package oracle asks a Gemini model for an advisory opinion on a contributor's activity
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	"github.com/ditsyandrea22/celo-identity/internal/platform/logger"
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 20 * time.Second
)

// Options configures the Gemini oracle
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// generator is the single model call the oracle needs
type generator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

// Oracle produces advisory opinions from a language model
type Oracle struct {
	gen     generator
	model   string
	timeout time.Duration
	log     logger.Logger
}

// New connects a Gemini client; an empty API key is an error, callers treat it as "no oracle"
func New(ctx context.Context, o Options) (*Oracle, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "oracle api key is required")
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	cfg := &genai.ClientConfig{APIKey: o.APIKey, Backend: genai.BackendGeminiAPI}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "create genai client")
	}
	return newOracle(&genaiGenerator{client: client, model: o.Model}, o), nil
}

func newOracle(g generator, o Options) *Oracle {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	return &Oracle{gen: g, model: o.Model, timeout: o.Timeout, log: *logger.Named("oracle")}
}

// Assess returns the model's opinion on sig
// transport failures and unusable output are errors; the caller owns the fallback
func (o *Oracle) Assess(ctx context.Context, sig contrib.ActivitySignal) (contrib.Opinion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	prompt, err := Prompt(sig)
	if err != nil {
		return contrib.Opinion{}, err
	}
	start := time.Now()
	text, err := o.gen.generate(ctx, prompt)
	if err != nil {
		return contrib.Opinion{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "oracle generate")
	}
	op, err := Parse(text)
	if err != nil {
		o.log.Warn().Err(err).Str("handle", sig.Handle).Int("bytes", len(text)).Msg("oracle output unusable")
		return contrib.Opinion{}, err
	}
	o.log.Debug().
		Str("handle", sig.Handle).
		Str("model", o.model).
		Dur("latency", time.Since(start)).
		Str("recommendation", string(op.Recommendation)).
		Msg("oracle opinion")
	return op, nil
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"authentic":      {Type: genai.TypeBoolean},
		"authenticity":   {Type: genai.TypeNumber, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](100)},
		"impactScore":    {Type: genai.TypeNumber, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](100)},
		"qualityScore":   {Type: genai.TypeNumber, Minimum: genai.Ptr[float64](0), Maximum: genai.Ptr[float64](100)},
		"recommendation": {Type: genai.TypeString, Enum: []string{"accept", "review", "reject"}},
		"rationale":      {Type: genai.TypeString},
	},
	Required: []string{"authenticity", "impactScore", "qualityScore", "recommendation"},
}

// Prompt renders the assessment request for sig
func Prompt(sig contrib.ActivitySignal) (string, error) {
	facts, err := json.MarshalIndent(struct {
		Handle      string                  `json:"handle"`
		Repos       int                     `json:"public_repos"`
		Followers   int                     `json:"followers"`
		Languages   []string                `json:"languages"`
		Specialties []string                `json:"specialties"`
		Ecosystem   []contrib.EcosystemRepo `json:"ecosystem_repos"`
		CommitTotal int                     `json:"ecosystem_commit_total"`
		BioAddress  bool                    `json:"bio_declares_address"`
		WellFormed  bool                    `json:"bio_address_checksum_ok"`
	}{
		Handle:      sig.Handle,
		Repos:       sig.RepoCount,
		Followers:   sig.FollowerCount,
		Languages:   sig.Languages,
		Specialties: sig.Specialties,
		Ecosystem:   sig.EcosystemRepos,
		CommitTotal: sig.EcosystemCommitTotal,
		BioAddress:  sig.DeclaredAddress != nil,
		WellFormed:  sig.AddressWellFormed,
	}, "", "  ")
	if err != nil {
		return "", perr.JSONErrf("marshal signal: %v", err)
	}
	var b strings.Builder
	b.WriteString("You review open source contributions to the Celo ecosystem.\n")
	b.WriteString("Judge whether this GitHub account shows authentic, meaningful work on Celo projects.\n")
	b.WriteString("Score authenticity, impact and quality from 0 to 100 and recommend accept, review or reject.\n")
	b.WriteString("Reply with JSON only: {\"authentic\": bool, \"authenticity\": number, \"impactScore\": number, ")
	b.WriteString("\"qualityScore\": number, \"recommendation\": string, \"rationale\": string}.\n\n")
	fmt.Fprintf(&b, "Activity:\n%s\n", facts)
	return b.String(), nil
}

type wireOpinion struct {
	Authentic      *bool    `json:"authentic"`
	Authenticity   *float64 `json:"authenticity"`
	Impact         *float64 `json:"impactScore"`
	Quality        *float64 `json:"qualityScore"`
	Recommendation string   `json:"recommendation"`
	Rationale      string   `json:"rationale"`
}

// Parse turns model output into a clamped opinion
// a missing authentic flag is true only when authenticity is at least 50
func Parse(text string) (contrib.Opinion, error) {
	raw := stripFence(text)
	var w wireOpinion
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return contrib.Opinion{}, perr.Wrapf(err, perr.ErrorCodeJSON, "oracle output is not json")
	}
	if w.Authenticity == nil || w.Impact == nil || w.Quality == nil {
		return contrib.Opinion{}, perr.JSONErrf("oracle output is missing scores")
	}
	op := contrib.Opinion{
		Authenticity:   *w.Authenticity,
		Impact:         *w.Impact,
		Quality:        *w.Quality,
		Recommendation: contrib.ParseRecommendation(w.Recommendation),
		Rationale:      strings.TrimSpace(w.Rationale),
		Source:         contrib.SourceOracle,
	}.Clamp()
	if w.Authentic != nil {
		op.Authentic = *w.Authentic
	} else {
		op.Authentic = op.Authenticity >= 50
	}
	return op, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
