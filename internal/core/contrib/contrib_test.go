package contrib

import (
	"math"
	"testing"
)

func TestBaseScores(t *testing.T) {
	want := map[Type]int{MergedPR: 10, IssueResolved: 8, CodeReview: 6, Documentation: 5, Commit: 3}
	for _, ty := range Types() {
		if ty.BaseScore() != want[ty] || ty.MaxDelta() != want[ty]*3 {
			t.Fatalf("%s base=%d max=%d", ty, ty.BaseScore(), ty.MaxDelta())
		}
	}
	if Type("GIFT").BaseScore() != 0 || Type("GIFT").Valid() {
		t.Fatalf("unknown type must score 0")
	}
}

func TestParseType(t *testing.T) {
	if ty, err := ParseType(" merged_pr "); err != nil || ty != MergedPR {
		t.Fatalf("ParseType = %q, %v", ty, err)
	}
	if _, err := ParseType("STAR"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseRecommendation(t *testing.T) {
	cases := map[string]Recommendation{
		"accept":  Accept,
		"REJECT":  Reject,
		" review": Review,
		"maybe":   Review,
		"":        Review,
	}
	for in, want := range cases {
		if got := ParseRecommendation(in); got != want {
			t.Fatalf("ParseRecommendation(%q) = %q", in, got)
		}
	}
}

func TestOpinionClampAndFinal(t *testing.T) {
	o := Opinion{Impact: 180, Quality: -4, Authenticity: math.NaN()}.Clamp()
	if o.Impact != 100 || o.Quality != 0 || o.Authenticity != 0 {
		t.Fatalf("clamp = %+v", o)
	}
	o = Opinion{Impact: 80, Quality: 70, Authenticity: 95}
	if got := o.Final(); math.Abs(got-83) > 1e-9 {
		t.Fatalf("Final = %v", got)
	}
}

func TestAvgRepoStars(t *testing.T) {
	if (ActivitySignal{}).AvgRepoStars() != 0 {
		t.Fatalf("empty avg must be 0")
	}
	s := ActivitySignal{EcosystemRepos: []EcosystemRepo{{StarCount: 3}, {StarCount: 6}}}
	if s.AvgRepoStars() != 4.5 {
		t.Fatalf("avg = %v", s.AvgRepoStars())
	}
}
