package contrib

import "github.com/ethereum/go-ethereum/common"

// EcosystemRepo is a repository confirmed to target the ecosystem
type EcosystemRepo struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	OwnedByTargetOrg bool   `json:"owned_by_target_org"`
	CommitCount      int    `json:"commit_count"`
	StarCount        int    `json:"star_count"`
	Language         string `json:"language,omitempty"`
}

// ActivitySignal is the per submission view of a contributor's public activity
// it is derived fresh for every submission and never persisted
type ActivitySignal struct {
	Handle               string          `json:"handle"`
	RepoCount            int             `json:"repo_count"`
	FollowerCount        int             `json:"follower_count"`
	Languages            []string        `json:"languages"`
	Specialties          []string        `json:"specialties"`
	EcosystemRepos       []EcosystemRepo `json:"ecosystem_repos"`
	EcosystemCommitTotal int             `json:"ecosystem_commit_total"`
	DeclaredAddress      *common.Address `json:"declared_address,omitempty"`
	AddressWellFormed    bool            `json:"address_well_formed"`
}

// AvgRepoStars is the mean star count over ecosystem repos, 0 when there are none
func (s ActivitySignal) AvgRepoStars() float64 {
	if len(s.EcosystemRepos) == 0 {
		return 0
	}
	total := 0
	for _, r := range s.EcosystemRepos {
		total += r.StarCount
	}
	return float64(total) / float64(len(s.EcosystemRepos))
}
