package state

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// Balances holds per-account token balances. It performs no validation;
// arithmetic safety belongs to the caller.
type Balances struct {
	kv storage.KVStore
}

// NewBalances creates a balance store over kv.
func NewBalances(kv storage.KVStore) *Balances {
	return &Balances{kv: kv}
}

// Balance returns the balance of account. A missing account reads as zero.
func (b *Balances) Balance(ctx context.Context, account domain.CanonicalAddr) (domain.Amount, error) {
	return getAmount(ctx, b.kv, key(nsBalances, account))
}

// SetBalance overwrites the balance of account.
func (b *Balances) SetBalance(ctx context.Context, account domain.CanonicalAddr, v domain.Amount) error {
	return setAmount(ctx, b.kv, key(nsBalances, account), v)
}
