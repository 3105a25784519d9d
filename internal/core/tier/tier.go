// Package tier maps cumulative scores to reputation tiers
package tier

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Tier is a reputation level; the numeric value is the on-chain badge tier
type Tier uint8

// Tiers in ascending order
const (
	Unranked Tier = iota
	Builder
	Contributor
	Leader
)

// Thresholds are the minimum cumulative scores per tier
var thresholds = [...]struct {
	tier Tier
	min  uint64
}{
	{Leader, 700},
	{Contributor, 300},
	{Builder, 100},
}

// Ranked lists the tiers that carry a badge, ascending
func Ranked() []Tier { return []Tier{Builder, Contributor, Leader} }

// Threshold returns the minimum score for t, 0 for Unranked
func Threshold(t Tier) uint64 {
	for _, th := range thresholds {
		if th.tier == t {
			return th.min
		}
	}
	return 0
}

// Resolve returns the highest tier whose threshold score reaches
func Resolve(score uint64) Tier {
	for _, th := range thresholds {
		if score >= th.min {
			return th.tier
		}
	}
	return Unranked
}

// Crossed reports the highest tier newly reached when moving from old to new
func Crossed(old, new uint64) (Tier, bool) {
	from, to := Resolve(old), Resolve(new)
	if to > from {
		return to, true
	}
	return Unranked, false
}

func (t Tier) String() string {
	switch t {
	case Builder:
		return "BUILDER"
	case Contributor:
		return "CONTRIBUTOR"
	case Leader:
		return "LEADER"
	case Unranked:
		return "UNRANKED"
	}
	return fmt.Sprintf("TIER(%d)", uint8(t))
}

// Parse is the inverse of String
func Parse(s string) (Tier, error) {
	for t := Unranked; t <= Leader; t++ {
		if strings.EqualFold(strings.TrimSpace(s), t.String()) {
			return t, nil
		}
	}
	return Unranked, fmt.Errorf("unknown tier %q", s)
}

// MarshalText renders the tier name
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a tier name
func (t *Tier) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// State is a contributor's monotonic tier record
type State struct {
	Address    common.Address     `json:"address"`
	Tier       Tier               `json:"current_tier"`
	Cumulative uint64             `json:"cumulative_score"`
	AchievedAt map[Tier]time.Time `json:"tier_achieved_at,omitempty"`
}

// Merge folds a new cumulative score into s without mutating it
// cumulative and tier never decrease; a milestone keeps its first timestamp
func Merge(s State, cumulative uint64, now time.Time) State {
	out := State{
		Address:    s.Address,
		Cumulative: max(s.Cumulative, cumulative),
		AchievedAt: make(map[Tier]time.Time, len(s.AchievedAt)+1),
	}
	for t, at := range s.AchievedAt {
		out.AchievedAt[t] = at
	}
	out.Tier = max(s.Tier, Resolve(out.Cumulative))
	for _, t := range Ranked() {
		if t > out.Tier {
			break
		}
		if _, ok := out.AchievedAt[t]; !ok {
			out.AchievedAt[t] = now.UTC()
		}
	}
	return out
}

// Update is the instruction handed to the store once a score delta landed
type Update struct {
	Address       common.Address `json:"address"`
	Delta         uint64         `json:"delta"`
	NewCumulative uint64         `json:"new_cumulative"`
	Tier          Tier           `json:"tier"`
	State         State          `json:"state"`
}

// Apply merges the update into the stored state s
func (u Update) Apply(s State, now time.Time) State {
	if s.Address == (common.Address{}) {
		s.Address = u.Address
	}
	return Merge(s, u.NewCumulative, now)
}
