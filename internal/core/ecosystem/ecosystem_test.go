package ecosystem

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestFastMatch(t *testing.T) {
	m := NewMatcher(Default())
	cases := []struct {
		name string
		repo Repo
		want bool
	}{
		{"org owned", Repo{Owner: "Celo-Org", Name: "docs"}, true},
		{"keyword in name", Repo{Owner: "me", Name: "my-CELO-dapp"}, true},
		{"keyword in description", Repo{Owner: "me", Name: "wallet", Description: "Built on MiniPay"}, true},
		{"keyword in topic", Repo{Owner: "me", Name: "x", Topics: []string{"cusd"}}, true},
		{"unrelated", Repo{Owner: "me", Name: "dotfiles", Description: "vim config"}, false},
	}
	for _, c := range cases {
		if got := m.FastMatch(c.repo); got != c.want {
			t.Fatalf("%s: FastMatch = %v", c.name, got)
		}
	}
}

func TestProbeSelection(t *testing.T) {
	m := NewMatcher(Default())
	if !m.Probeable(Repo{Language: "typescript"}) || m.Probeable(Repo{Language: "Haskell"}) || m.Probeable(Repo{}) {
		t.Fatalf("language allow-list mismatch")
	}
	got := m.ProbeFiles(Repo{Language: "Python"})
	if !slices.Equal(got, []string{"requirements.txt", "pyproject.toml"}) {
		t.Fatalf("ProbeFiles = %v", got)
	}

	p := Default()
	p.MaxProbes = 1
	if got := NewMatcher(p).ProbeFiles(Repo{Language: "JavaScript"}); !slices.Equal(got, []string{"package.json"}) {
		t.Fatalf("capped ProbeFiles = %v", got)
	}
}

func TestContainsMarker(t *testing.T) {
	m := NewMatcher(Default())
	if !m.ContainsMarker([]byte(`{"dependencies":{"@Celo/contractkit":"^5"}}`)) {
		t.Fatalf("marker not found")
	}
	if m.ContainsMarker([]byte(`module example.com/thing`)) {
		t.Fatalf("false positive")
	}
}

func TestSpecialties(t *testing.T) {
	m := NewMatcher(Default())
	got := m.Specialties([]Repo{
		{Name: "mento-swap", Language: "Solidity"},
		{Name: "valora-plugin", Description: "react-native module"},
	})
	if !slices.Equal(got, []string{"defi", "mobile", "smart-contracts"}) {
		t.Fatalf("Specialties = %v", got)
	}
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eco.yaml")
	yml := "name: celo-testnet\nkeywords: [alfajores]\nmax_probes: 1\nprobe_files:\n  go: [go.mod, go.sum]\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ECOSYSTEM_ORGS", "celo-org,my-org")

	p, err := Load(path, "ECOSYSTEM_")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "celo-testnet" || !slices.Equal(p.Keywords, []string{"alfajores"}) || p.MaxProbes != 1 {
		t.Fatalf("file layer = %+v", p)
	}
	if !slices.Equal(p.Orgs, []string{"celo-org", "my-org"}) {
		t.Fatalf("env layer orgs = %v", p.Orgs)
	}
	if len(p.Markers) == 0 || len(p.Languages) != 6 {
		t.Fatalf("defaults lost: %+v", p)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatalf("missing file should fail")
	}
	p := Default()
	p.Keywords, p.Orgs = nil, nil
	if p.Validate() == nil {
		t.Fatalf("empty profile should not validate")
	}
}
