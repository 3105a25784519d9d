package identity

import (
	"strings"
	"testing"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
)

// EIP-55 reference vector
const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func TestParseProfileURL(t *testing.T) {
	ok := map[string]string{
		"https://github.com/octocat":       "octocat",
		"http://github.com/octo-cat/":      "octo-cat",
		" https://github.com/a ":           "a",
		"https://github.com/" + repeat(39): repeat(39),
	}
	for in, want := range ok {
		got, err := ParseProfileURL(in)
		if err != nil || got != want {
			t.Fatalf("ParseProfileURL(%q) = %q, %v", in, got, err)
		}
	}

	bad := []string{
		"",
		"github.com/octocat",
		"https://gitlab.com/octocat",
		"https://github.com/octocat/repo",
		"https://github.com/-octo",
		"https://github.com/octo-",
		"https://github.com/oc--to",
		"https://github.com/" + repeat(40),
		"https://github.com/octo_cat",
		"ftp://github.com/octocat",
	}
	for _, in := range bad {
		_, err := ParseProfileURL(in)
		if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("ParseProfileURL(%q) err = %v", in, err)
		}
		if perr.WireFrom(err).Field != "profile_url" {
			t.Fatalf("field not set for %q", in)
		}
	}
}

func repeat(n int) string { return strings.Repeat("a", n) }

func TestParseAddress(t *testing.T) {
	for _, in := range []string{checksummed, strings.ToLower(checksummed), "0x" + strings.ToUpper(checksummed[2:])} {
		a, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%q) = %v", in, err)
		}
		if a.Hex() != checksummed {
			t.Fatalf("canonical = %s", a.Hex())
		}
	}

	broken := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD" // last digit case flipped
	for _, in := range []string{"", "0x12", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", broken, checksummed + "00"} {
		if _, err := ParseAddress(in); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("ParseAddress(%q) err = %v", in, err)
		}
	}
}

func TestBioAddress(t *testing.T) {
	addr, ok := BioAddress("celo dev | wallet " + checksummed + " | gm")
	if addr == nil || !ok || addr.Hex() != checksummed {
		t.Fatalf("addr=%v ok=%v", addr, ok)
	}

	addr, ok = BioAddress("first 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD then " + checksummed)
	if addr == nil || ok {
		t.Fatalf("first match has a bad checksum, want wellFormed=false, got addr=%v ok=%v", addr, ok)
	}
	if addr.Hex() != checksummed {
		t.Fatalf("address still canonicalized, got %s", addr.Hex())
	}

	txHash := "0x" + strings.Repeat("ab", 32)
	if addr, ok := BioAddress("deployed in " + txHash); addr != nil || ok {
		t.Fatalf("tx hash read as an address: %v %v", addr, ok)
	}
	addr, ok = BioAddress("deployed in " + txHash + ", wallet " + checksummed)
	if addr == nil || !ok || addr.Hex() != checksummed {
		t.Fatalf("address after a tx hash: addr=%v ok=%v", addr, ok)
	}

	if addr, ok := BioAddress("no wallet here"); addr != nil || ok {
		t.Fatalf("expected nothing, got %v %v", addr, ok)
	}
}

func TestEqualIgnoresCase(t *testing.T) {
	if !Equal(checksummed, strings.ToLower(checksummed)) {
		t.Fatalf("case must not matter")
	}
	lower, _ := ParseAddress(strings.ToLower(checksummed))
	mixed, _ := ParseAddress(checksummed)
	if lower != mixed {
		t.Fatalf("parsed addresses must be equal")
	}
	if Equal(checksummed, "0x0000000000000000000000000000000000000000") {
		t.Fatalf("different addresses compared equal")
	}
}
