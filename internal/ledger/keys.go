package ledger

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/viewingkey"
)

// CreateViewingKey derives a new key for the caller, stores its hash and returns it.
func (l *Ledger) CreateViewingKey(ctx context.Context, env domain.Env, entropy string) (viewingkey.Key, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return "", err
	}
	key, err := viewingkey.New(env, consts.PrngSeed, []byte(entropy))
	if err != nil {
		return "", err
	}
	if err := l.SetViewingKey(ctx, env, key); err != nil {
		return "", err
	}
	return key, nil
}

// SetViewingKey stores the hash of a caller-chosen key.
func (l *Ledger) SetViewingKey(ctx context.Context, env domain.Env, key viewingkey.Key) error {
	account, err := l.canonical(env.Sender)
	if err != nil {
		return err
	}
	return l.store.ViewingKeys.SetHash(ctx, account, key.Hash())
}

// RevokePermit marks a named permit of the caller as revoked.
func (l *Ledger) RevokePermit(ctx context.Context, env domain.Env, name string) error {
	if _, err := l.canonical(env.Sender); err != nil {
		return err
	}
	return l.store.Permits.Revoke(ctx, env.Sender, name)
}
