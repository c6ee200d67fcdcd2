// Package address converts between the human (base58) and canonical (raw)
// forms of account addresses.
package address

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"token-ledger/internal/domain"
)

// CanonicalSize is the decoded length of a valid address (an ed25519 public key).
const CanonicalSize = 32

// ErrInvalidAddress is returned for addresses that do not decode to CanonicalSize bytes.
var ErrInvalidAddress = errors.New("invalid address")

// Resolver converts addresses between their human and canonical forms.
type Resolver interface {
	Canonicalize(human domain.HumanAddr) (domain.CanonicalAddr, error)
	Humanize(canonical domain.CanonicalAddr) (domain.HumanAddr, error)
}

// Base58Resolver accepts base58-encoded 32 byte addresses (Bitcoin alphabet).
type Base58Resolver struct{}

// NewBase58Resolver creates a new base58 resolver.
func NewBase58Resolver() Base58Resolver {
	return Base58Resolver{}
}

// Compile-time interface check.
var _ Resolver = Base58Resolver{}

// Canonicalize decodes a human address.
func (Base58Resolver) Canonicalize(human domain.HumanAddr) (domain.CanonicalAddr, error) {
	if human == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(string(human))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, human, err)
	}
	if len(raw) != CanonicalSize {
		return nil, fmt.Errorf("%w: %s decodes to %d bytes", ErrInvalidAddress, human, len(raw))
	}
	return domain.CanonicalAddr(raw), nil
}

// Humanize encodes a canonical address.
func (Base58Resolver) Humanize(canonical domain.CanonicalAddr) (domain.HumanAddr, error) {
	if len(canonical) != CanonicalSize {
		return "", fmt.Errorf("%w: canonical address has %d bytes", ErrInvalidAddress, len(canonical))
	}
	return domain.HumanAddr(base58.Encode(canonical)), nil
}

// FromSeed derives a deterministic valid address from an arbitrary label.
// Used for fixtures and for the simulated contract address.
func FromSeed(label string) domain.HumanAddr {
	raw := make([]byte, CanonicalSize)
	copy(raw, label)
	for i := len(label); i < CanonicalSize; i++ {
		raw[i] = byte(i)
	}
	return domain.HumanAddr(base58.Encode(raw))
}
