package contrib

import (
	"math"
	"strings"
)

// Recommendation is the advisory verdict
type Recommendation string

// Recommendations
const (
	Accept Recommendation = "accept"
	Review Recommendation = "review"
	Reject Recommendation = "reject"
)

// ParseRecommendation maps free text to a recommendation; anything unknown is review
func ParseRecommendation(s string) Recommendation {
	switch Recommendation(strings.ToLower(strings.TrimSpace(s))) {
	case Accept:
		return Accept
	case Reject:
		return Reject
	default:
		return Review
	}
}

// Source records which path produced an opinion
type Source string

// Opinion sources
const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
	SourcePolicy   Source = "policy"
)

// Opinion is the advisory verdict on a signal; numeric fields are in [0,100]
type Opinion struct {
	Authentic      bool           `json:"authentic"`
	Authenticity   float64        `json:"authenticity"`
	Impact         float64        `json:"impact_score"`
	Quality        float64        `json:"quality_score"`
	Recommendation Recommendation `json:"recommendation"`
	Rationale      string         `json:"rationale,omitempty"`
	Source         Source         `json:"source"`
}

// Final is the weighted score .3 impact + .3 quality + .4 authenticity
func (o Opinion) Final() float64 {
	return 0.3*o.Impact + 0.3*o.Quality + 0.4*o.Authenticity
}

// Clamp bounds every numeric field to [0,100]; NaN maps to 0
func (o Opinion) Clamp() Opinion {
	o.Authenticity = Clamp100(o.Authenticity)
	o.Impact = Clamp100(o.Impact)
	o.Quality = Clamp100(o.Quality)
	return o
}

// Clamp100 bounds v to [0,100]
func Clamp100(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
