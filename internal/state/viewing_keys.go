package state

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// ViewingKeys stores the hash of each account's viewing key.
type ViewingKeys struct {
	kv storage.KVStore
}

// NewViewingKeys creates a viewing key store over kv.
func NewViewingKeys(kv storage.KVStore) *ViewingKeys {
	return &ViewingKeys{kv: kv}
}

// Hash returns the stored key hash, or nil if the account never set one.
func (v *ViewingKeys) Hash(ctx context.Context, account domain.CanonicalAddr) ([]byte, error) {
	return v.kv.Get(ctx, key(nsViewingKeys, account))
}

// SetHash overwrites the stored key hash.
func (v *ViewingKeys) SetHash(ctx context.Context, account domain.CanonicalAddr, hash []byte) error {
	return v.kv.Set(ctx, key(nsViewingKeys, account), hash)
}
