// Package badge renders tier badge artifacts and derives their ledger identifiers
package badge

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/ditsyandrea22/celo-identity/internal/core/proof"
	"github.com/ditsyandrea22/celo-identity/internal/core/tier"
)

// Artifact is a rendered badge and its content address
type Artifact struct {
	Tier    tier.Tier
	SVG     []byte
	CID     cid.Cid
	URI     string
	TokenID *big.Int
}

type palette struct{ fill, accent string }

var palettes = map[tier.Tier]palette{
	tier.Builder:     {"#35D07F", "#0F5132"},
	tier.Contributor: {"#FBCC5C", "#6B4E00"},
	tier.Leader:      {"#BF97FF", "#3C1A78"},
}

// SVG renders the badge image for t; output is byte-identical for a tier
func SVG(t tier.Tier) ([]byte, error) {
	p, ok := palettes[t]
	if !ok {
		return nil, fmt.Errorf("no badge for tier %s", t)
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="320" height="320" viewBox="0 0 320 320">`)
	fmt.Fprintf(&b, `<circle cx="160" cy="160" r="150" fill="%s" stroke="%s" stroke-width="8"/>`, p.fill, p.accent)
	fmt.Fprintf(&b, `<text x="160" y="150" font-family="monospace" font-size="28" text-anchor="middle" fill="%s">CELO</text>`, p.accent)
	fmt.Fprintf(&b, `<text x="160" y="195" font-family="monospace" font-size="24" text-anchor="middle" fill="%s">%s</text>`, p.accent, t)
	fmt.Fprintf(&b, `<text x="160" y="230" font-family="monospace" font-size="14" text-anchor="middle" fill="%s">%d+</text>`, p.accent, tier.Threshold(t))
	b.WriteString(`</svg>`)
	return []byte(b.String()), nil
}

// CID content-addresses data as CIDv1 raw with a sha2-256 multihash
func CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// TokenID is keccak256(address || tier) read as a uint256
func TokenID(addr common.Address, t tier.Tier) *big.Int {
	h := proof.Keccak(addr.Bytes(), []byte{byte(t)})
	return new(big.Int).SetBytes(h[:])
}

// Build renders the badge for addr reaching t
func Build(addr common.Address, t tier.Tier) (Artifact, error) {
	svg, err := SVG(t)
	if err != nil {
		return Artifact{}, err
	}
	c, err := CID(svg)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Tier:    t,
		SVG:     svg,
		CID:     c,
		URI:     "ipfs://" + c.String(),
		TokenID: TokenID(addr, t),
	}, nil
}
