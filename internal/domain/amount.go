package domain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"lukechampine.com/uint128"
)

// AmountSize is the encoded size of an Amount in bytes.
const AmountSize = 16

// Amount is an unsigned 128-bit token quantity.
// JSON form is a decimal string, e.g. "1000".
type Amount uint128.Uint128

// ZeroAmount is the additive identity.
var ZeroAmount = Amount(uint128.Zero)

// MaxAmount is the largest representable amount (2^128 - 1).
var MaxAmount = Amount(uint128.Max)

// NewAmount returns an Amount holding v.
func NewAmount(v uint64) Amount {
	return Amount(uint128.From64(v))
}

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(s string) (Amount, error) {
	v, err := uint128.FromString(s)
	if err != nil {
		return ZeroAmount, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount(v), nil
}

// AmountFromBytes decodes a 16-byte little-endian amount.
// A nil or empty slice decodes to zero.
func AmountFromBytes(b []byte) (Amount, error) {
	if len(b) == 0 {
		return ZeroAmount, nil
	}
	if len(b) != AmountSize {
		return ZeroAmount, fmt.Errorf("amount must be %d bytes, got %d", AmountSize, len(b))
	}
	return Amount(uint128.FromBytes(b)), nil
}

// AmountFromBig converts a non-negative big.Int that fits in 128 bits.
func AmountFromBig(v *big.Int) (Amount, error) {
	if v == nil {
		return ZeroAmount, nil
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return ZeroAmount, fmt.Errorf("amount %s out of range", v)
	}
	return Amount(uint128.FromBig(v)), nil
}

// Big returns the amount as a big.Int.
func (a Amount) Big() *big.Int {
	return a.u().Big()
}

func (a Amount) u() uint128.Uint128 {
	return uint128.Uint128(a)
}

// Bytes encodes the amount as 16 little-endian bytes.
func (a Amount) Bytes() []byte {
	b := make([]byte, AmountSize)
	a.u().PutBytes(b)
	return b
}

// CheckedAdd returns a+b, or false if the sum overflows 128 bits.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	sum := a.u().AddWrap(b.u())
	if sum.Cmp(a.u()) < 0 {
		return ZeroAmount, false
	}
	return Amount(sum), true
}

// CheckedSub returns a-b, or false if b > a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	if a.u().Cmp(b.u()) < 0 {
		return ZeroAmount, false
	}
	return Amount(a.u().Sub(b.u())), true
}

// SaturatingAdd returns a+b clamped to MaxAmount.
func (a Amount) SaturatingAdd(b Amount) Amount {
	sum, ok := a.CheckedAdd(b)
	if !ok {
		return MaxAmount
	}
	return sum
}

// SaturatingSub returns a-b clamped to zero.
func (a Amount) SaturatingSub(b Amount) Amount {
	diff, ok := a.CheckedSub(b)
	if !ok {
		return ZeroAmount
	}
	return diff
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.u().Cmp(b.u())
}

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool {
	return a.u().IsZero()
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.u().String()
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a Amount) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the YAML decoder.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
