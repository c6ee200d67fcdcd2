package domain

import "bytes"

// HumanAddr is the externally visible, encoded form of an account address.
type HumanAddr string

// String returns the address as a string.
func (h HumanAddr) String() string {
	return string(h)
}

// CanonicalAddr is the raw byte form of an address used in storage keys.
type CanonicalAddr []byte

// Equals reports whether both canonical addresses hold the same bytes.
func (c CanonicalAddr) Equals(other CanonicalAddr) bool {
	return bytes.Equal(c, other)
}
