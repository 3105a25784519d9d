// Package identity parses contributor identities: profile links, handles and ledger addresses
package identity

import (
	"regexp"
	"strings"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	handleRe     = regexp.MustCompile(`^[A-Za-z0-9](?:-?[A-Za-z0-9]){0,38}$`)
	profileURLRe = regexp.MustCompile(`^https?://github\.com/([^/?#]+)/?$`)
	bioAddrRe    = regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`)
	addrRe       = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ParseProfileURL extracts the github handle from http(s)://github.com/<handle>[/]
func ParseProfileURL(raw string) (string, error) {
	m := profileURLRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", perr.WithField(perr.InvalidArgf("invalid profile url: expected https://github.com/<handle>"), "profile_url")
	}
	if !ValidHandle(m[1]) {
		return "", perr.WithField(perr.InvalidArgf("invalid github handle %q", m[1]), "profile_url")
	}
	return m[1], nil
}

// ValidHandle reports whether h follows github's login grammar
func ValidHandle(h string) bool { return handleRe.MatchString(h) }

// ParseAddress accepts a 0x-prefixed 20 byte hex address in any case
// mixed-case input must carry a valid EIP-55 checksum
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !addrRe.MatchString(s) {
		return common.Address{}, perr.WithField(perr.InvalidArgf("invalid address %q", s), "address")
	}
	a, ok := checksum(s)
	if !ok {
		return common.Address{}, perr.WithField(perr.InvalidArgf("address %q fails EIP-55 checksum", s), "address")
	}
	return a, nil
}

// BioAddress returns the first standalone address embedded in bio; longer hex runs such as tx hashes are skipped
// wellFormed is false when the mixed-case form fails its checksum; the address is still returned
func BioAddress(bio string) (addr *common.Address, wellFormed bool) {
	m := bioAddrRe.FindString(bio)
	if m == "" {
		return nil, false
	}
	a, ok := checksum(m)
	return &a, ok
}

// Equal compares two address strings ignoring case
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// checksum canonicalizes s and reports whether its casing is acceptable
// all lower or all upper hex digits carry no checksum and are accepted
func checksum(s string) (common.Address, bool) {
	a := common.HexToAddress(s)
	digits := s[2:]
	if digits == strings.ToLower(digits) || digits == strings.ToUpper(digits) {
		return a, true
	}
	return a, a.Hex() == s
}
