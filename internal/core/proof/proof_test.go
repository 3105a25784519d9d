package proof

import (
	"testing"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
)

func TestKeccakEmptyVector(t *testing.T) {
	want := "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := Keccak().Hex(); got != want {
		t.Fatalf("Keccak() = %s", got)
	}
	if Keccak([]byte("ab")) != Keccak([]byte("a"), []byte("b")) {
		t.Fatalf("parts should hash as a concatenation")
	}
}

func TestCanonicalSortsKeys(t *testing.T) {
	c := contrib.Claim{
		ProfileURL: "https://github.com/alice",
		Address:    "0xabc",
		Type:       contrib.Commit,
	}
	b, err := Canonical(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"address":"0xabc","contribution_type":"COMMIT","profile_url":"https://github.com/alice"}`
	if string(b) != want {
		t.Fatalf("canonical = %s", b)
	}
}

func TestHashIsStablePerPayload(t *testing.T) {
	c := contrib.Claim{
		ProfileURL:  "https://github.com/alice",
		Address:     "0x52908400098527886E0F7030069857D2E4169EE7",
		Type:        contrib.MergedPR,
		Title:       "Add cUSD fee currency",
		EvidenceURL: "https://github.com/celo-org/celo-monorepo/pull/1",
	}
	h1, err := Hash(c)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := Hash(c)
	if h1 != h2 {
		t.Fatalf("replayed payload must hash identically")
	}

	c.Title = "Add cUSD fee currency."
	h3, _ := Hash(c)
	if h3 == h1 {
		t.Fatalf("edited payload must hash differently")
	}
}
