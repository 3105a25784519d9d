package ecosystem

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Repo is the slice of repository metadata the matcher looks at
type Repo struct {
	Owner       string
	Name        string
	Description string
	Topics      []string
	Language    string
}

// Matcher answers ecosystem questions against a folded copy of a Profile
// it is safe for concurrent use
type Matcher struct {
	profile     Profile
	keywords    []string
	orgs        map[string]bool
	languages   map[string]bool
	markers     []string
	specialties map[string][]string
}

// fold is the unicode case fold used for every comparison
func fold(s string) string { return cases.Fold().String(strings.TrimSpace(s)) }

// NewMatcher folds every list in p once
func NewMatcher(p Profile) *Matcher {
	m := &Matcher{
		profile:     p,
		orgs:        map[string]bool{},
		languages:   map[string]bool{},
		specialties: map[string][]string{},
	}
	for _, k := range p.Keywords {
		m.keywords = append(m.keywords, fold(k))
	}
	for _, o := range p.Orgs {
		m.orgs[fold(o)] = true
	}
	for _, l := range p.Languages {
		m.languages[fold(l)] = true
	}
	for _, mk := range p.Markers {
		m.markers = append(m.markers, fold(mk))
	}
	for label, kws := range p.Specialties {
		for _, k := range kws {
			m.specialties[label] = append(m.specialties[label], fold(k))
		}
	}
	return m
}

// Profile returns the profile the matcher was built from
func (m *Matcher) Profile() Profile { return m.profile }

// OwnedByOrg reports whether owner is one of the ecosystem organizations
func (m *Matcher) OwnedByOrg(owner string) bool { return m.orgs[fold(owner)] }

// FastMatch reports a keyword or org hit on repo metadata without any network access
func (m *Matcher) FastMatch(r Repo) bool {
	if m.OwnedByOrg(r.Owner) {
		return true
	}
	return len(m.hits(r, m.keywords)) > 0
}

// Probeable reports whether r's primary language is on the slow path allow-list
func (m *Matcher) Probeable(r Repo) bool {
	return r.Language != "" && m.languages[fold(r.Language)]
}

// ProbeFiles returns the candidate files for r's language, capped at MaxProbes
func (m *Matcher) ProbeFiles(r Repo) []string {
	files := m.profile.ProbeFiles[strings.ToLower(r.Language)]
	if n := m.profile.MaxProbes; n >= 0 && len(files) > n {
		files = files[:n]
	}
	return files
}

// ContainsMarker reports whether body references the ecosystem
func (m *Matcher) ContainsMarker(body []byte) bool {
	text := fold(string(body))
	for _, mk := range m.markers {
		if mk != "" && strings.Contains(text, mk) {
			return true
		}
	}
	return false
}

// Specialties returns the sorted specialty labels implied by repos
func (m *Matcher) Specialties(repos []Repo) []string {
	var out []string
	for label, kws := range m.specialties {
		for _, r := range repos {
			if len(m.hits(r, kws)) > 0 || slices.Contains(kws, fold(r.Language)) {
				out = append(out, label)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}

// hits returns the needles found in r's name, description or topics
func (m *Matcher) hits(r Repo, needles []string) []string {
	hay := []string{fold(r.Name), fold(r.Description)}
	for _, t := range r.Topics {
		hay = append(hay, fold(t))
	}
	var found []string
	for _, n := range needles {
		if n == "" {
			continue
		}
		for _, h := range hay {
			if strings.Contains(h, n) {
				found = append(found, n)
				break
			}
		}
	}
	return found
}
