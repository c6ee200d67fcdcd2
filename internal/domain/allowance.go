package domain

// ExpirationBasis selects which block field an allowance expiration is compared to.
type ExpirationBasis string

const (
	ExpirationByTime   ExpirationBasis = "time"
	ExpirationByHeight ExpirationBasis = "height"
)

// IsValid checks if the basis is a known value.
func (b ExpirationBasis) IsValid() bool {
	return b == ExpirationByTime || b == ExpirationByHeight
}

// Allowance is the amount a spender may move out of an owner's balance.
type Allowance struct {
	Amount     Amount  `json:"amount"`
	Expiration *uint64 `json:"expiration,omitempty"`
}

// IsExpiredAt reports whether the allowance has expired at the given block.
// An allowance without expiration never expires.
func (a Allowance) IsExpiredAt(block BlockInfo, basis ExpirationBasis) bool {
	if a.Expiration == nil {
		return false
	}
	current := block.Time
	if basis == ExpirationByHeight {
		current = block.Height
	}
	return current >= *a.Expiration
}
