package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
	kit "github.com/ditsyandrea22/celo-identity/internal/platform/testkit"
)

type fakeGen struct {
	text   string
	err    error
	prompt string
	wait   time.Duration
}

func (f *fakeGen) generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.wait > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.wait):
		}
	}
	return f.text, f.err
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want contrib.Opinion
	}{
		{
			name: "plain",
			in:   `{"authentic":true,"authenticity":95,"impactScore":80,"qualityScore":70,"recommendation":"accept","rationale":" solid "}`,
			want: contrib.Opinion{Authentic: true, Authenticity: 95, Impact: 80, Quality: 70, Recommendation: contrib.Accept, Rationale: "solid"},
		},
		{
			name: "clamped and unknown recommendation",
			in:   `{"authentic":false,"authenticity":140,"impactScore":-3,"qualityScore":55.5,"recommendation":"maybe"}`,
			want: contrib.Opinion{Authentic: false, Authenticity: 100, Impact: 0, Quality: 55.5, Recommendation: contrib.Review},
		},
		{
			name: "missing authentic high",
			in:   "```json\n{\"authenticity\":50,\"impactScore\":10,\"qualityScore\":10,\"recommendation\":\"REJECT\"}\n```",
			want: contrib.Opinion{Authentic: true, Authenticity: 50, Impact: 10, Quality: 10, Recommendation: contrib.Reject},
		},
		{
			name: "missing authentic low",
			in:   `{"authenticity":49.9,"impactScore":10,"qualityScore":10,"recommendation":"review"}`,
			want: contrib.Opinion{Authentic: false, Authenticity: 49.9, Impact: 10, Quality: 10, Recommendation: contrib.Review},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Parse(c.in)
			if err != nil {
				t.Fatal(err)
			}
			c.want.Source = contrib.SourceOracle
			if got != c.want {
				t.Fatalf("Parse = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestParseRejectsUnusableOutput(t *testing.T) {
	for _, in := range []string{"", "I think they are great", `{"authenticity":90}`, `[1,2]`} {
		if _, err := Parse(in); !perr.IsCode(err, perr.ErrorCodeJSON) {
			t.Fatalf("Parse(%q) err = %v", in, err)
		}
	}
}

func TestAssess(t *testing.T) {
	g := &fakeGen{text: `{"authentic":true,"authenticity":90,"impactScore":60,"qualityScore":60,"recommendation":"accept"}`}
	o := newOracle(g, Options{})
	op, err := o.Assess(context.Background(), contrib.ActivitySignal{
		Handle:               "alice",
		EcosystemCommitTotal: 12,
		EcosystemRepos:       []contrib.EcosystemRepo{{Name: "celo-org/docs", CommitCount: 12}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if op.Recommendation != contrib.Accept || op.Source != contrib.SourceOracle {
		t.Fatalf("opinion = %+v", op)
	}
	kit.MustContain(t, g.prompt, `"handle": "alice"`)
	kit.MustContain(t, g.prompt, "celo-org/docs")
}

func TestAssessTransportErrorIsUnavailable(t *testing.T) {
	o := newOracle(&fakeGen{err: errors.New("connection reset")}, Options{})
	_, err := o.Assess(context.Background(), contrib.ActivitySignal{Handle: "alice"})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssessTimesOut(t *testing.T) {
	o := newOracle(&fakeGen{wait: time.Second}, Options{Timeout: 20 * time.Millisecond})
	_, err := o.Assess(context.Background(), contrib.ActivitySignal{Handle: "alice"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
