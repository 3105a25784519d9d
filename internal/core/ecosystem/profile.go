// Package ecosystem describes what makes a repository relevant to the target ecosystem
package ecosystem

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Profile is the keyword, organization and probe configuration for one ecosystem
type Profile struct {
	Name string `koanf:"name"`

	// Keywords match repo name, description and topics
	Keywords []string `koanf:"keywords"`

	// Orgs are github owners whose repos always count
	Orgs []string `koanf:"orgs"`

	// Languages allow-list for the content probe slow path
	Languages []string `koanf:"languages"`

	// ProbeFiles lists candidate files per primary language, at most MaxProbes are fetched
	ProbeFiles map[string][]string `koanf:"probe_files"`

	// Markers are substrings that confirm a probed file references the ecosystem
	Markers []string `koanf:"markers"`

	// Specialties maps a specialty label to the keywords that imply it
	Specialties map[string][]string `koanf:"specialties"`

	MaxProbes int `koanf:"max_probes"`
}

// Default is the compiled-in Celo profile
func Default() Profile {
	return Profile{
		Name: "celo",
		Keywords: []string{
			"celo", "celo-sdk", "contractkit", "celo-composer", "minipay", "valora",
			"cusd", "ceur", "mento", "celocli",
		},
		Orgs: []string{"celo-org", "celo-tools", "mento-protocol", "valora-inc", "celo-academy"},
		Languages: []string{
			"JavaScript", "TypeScript", "Solidity", "Go", "Rust", "Python",
		},
		ProbeFiles: map[string][]string{
			"javascript": {"package.json", "hardhat.config.js"},
			"typescript": {"package.json", "hardhat.config.ts"},
			"solidity":   {"hardhat.config.js", "foundry.toml"},
			"go":         {"go.mod"},
			"rust":       {"Cargo.toml"},
			"python":     {"requirements.txt", "pyproject.toml"},
		},
		Markers: []string{
			"@celo/", "celo-org", "celo-sdk", "contractkit", "alfajores", "forno.celo.org", "celo",
		},
		Specialties: map[string][]string{
			"smart-contracts": {"solidity", "contract", "hardhat", "foundry", "evm"},
			"defi":            {"defi", "swap", "lending", "mento", "stablecoin", "cusd", "ceur"},
			"mobile":          {"mobile", "android", "ios", "react-native", "minipay", "valora"},
			"tooling":         {"sdk", "cli", "tool", "composer", "contractkit", "celocli"},
		},
		MaxProbes: 2,
	}
}

// Load layers defaults, an optional YAML file at path, then env under prefix
// env keys map like ECOSYSTEM_MAX_PROBES -> max_probes, list values are comma separated
func Load(path, prefix string) (Profile, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Profile{}, fmt.Errorf("ecosystem profile: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Profile{}, fmt.Errorf("ecosystem profile %s: %w", path, err)
		}
	}

	if prefix != "" {
		lp := strings.ToLower(prefix)
		envProvider := env.Provider(prefix, ".", func(s string) string {
			return strings.TrimPrefix(strings.ToLower(s), lp)
		})
		if err := k.Load(envProvider, nil); err != nil {
			return Profile{}, fmt.Errorf("ecosystem env: %w", err)
		}
	}

	p := Default()
	if err := k.UnmarshalWithConf("", &p, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Profile{}, fmt.Errorf("ecosystem unmarshal: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate rejects profiles that could never match anything
func (p Profile) Validate() error {
	if len(p.Keywords) == 0 && len(p.Orgs) == 0 {
		return fmt.Errorf("ecosystem profile %q: needs keywords or orgs", p.Name)
	}
	if p.MaxProbes < 0 {
		return fmt.Errorf("ecosystem profile %q: max_probes must be >= 0", p.Name)
	}
	return nil
}
