// Package proof derives the content hash that identifies a claim on the ledger
package proof

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/sha3"

	"github.com/ditsyandrea22/celo-identity/internal/core/contrib"
	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
)

// Canonical returns the RFC 8785 form of the claim
func Canonical(c contrib.Claim) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, perr.JSONErrf("marshal claim: %v", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "canonicalize claim")
	}
	return out, nil
}

// Hash is keccak256 over the canonical claim; equal payloads always collide
func Hash(c contrib.Claim) (common.Hash, error) {
	b, err := Canonical(c)
	if err != nil {
		return common.Hash{}, err
	}
	return Keccak(b), nil
}

// Keccak is the legacy Keccak-256 used by the EVM
func Keccak(parts ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}
