package state

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

var revokedMarker = []byte{1}

// RevokedPermits records permit names an account has revoked.
type RevokedPermits struct {
	kv storage.KVStore
}

// NewRevokedPermits creates a revoked permit store over kv.
func NewRevokedPermits(kv storage.KVStore) *RevokedPermits {
	return &RevokedPermits{kv: kv}
}

func permitKey(account domain.HumanAddr, name string) []byte {
	return key(nsRevokedPermits, lenPrefixed([]byte(account)), []byte(name))
}

// Revoke marks the permit name as revoked for account.
func (p *RevokedPermits) Revoke(ctx context.Context, account domain.HumanAddr, name string) error {
	return p.kv.Set(ctx, permitKey(account, name), revokedMarker)
}

// IsRevoked reports whether account revoked the permit name.
func (p *RevokedPermits) IsRevoked(ctx context.Context, account domain.HumanAddr, name string) (bool, error) {
	raw, err := p.kv.Get(ctx, permitKey(account, name))
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}
