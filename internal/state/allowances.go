package state

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// Allowances holds one delegated-spend record per (owner, spender).
type Allowances struct {
	kv storage.KVStore
}

// NewAllowances creates an allowance store over kv.
func NewAllowances(kv storage.KVStore) *Allowances {
	return &Allowances{kv: kv}
}

func allowanceKey(owner, spender domain.CanonicalAddr) []byte {
	return key(nsAllowances, lenPrefixed(owner), spender)
}

// Get returns the stored allowance, or a zero allowance without expiration.
func (a *Allowances) Get(ctx context.Context, owner, spender domain.CanonicalAddr) (domain.Allowance, error) {
	var allowance domain.Allowance
	if _, err := getJSON(ctx, a.kv, allowanceKey(owner, spender), &allowance); err != nil {
		return domain.Allowance{}, err
	}
	return allowance, nil
}

// Set overwrites the allowance.
func (a *Allowances) Set(ctx context.Context, owner, spender domain.CanonicalAddr, allowance domain.Allowance) error {
	return setJSON(ctx, a.kv, allowanceKey(owner, spender), allowance)
}
