package state

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// Receivers maps a contract address to the code hash it registered for callbacks.
type Receivers struct {
	kv storage.KVStore
}

// NewReceivers creates a receiver registry over kv.
func NewReceivers(kv storage.KVStore) *Receivers {
	return &Receivers{kv: kv}
}

// CodeHash returns the registered code hash and whether one exists.
func (r *Receivers) CodeHash(ctx context.Context, addr domain.HumanAddr) (string, bool, error) {
	raw, err := r.kv.Get(ctx, key(nsReceivers, []byte(addr)))
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Register stores the code hash for addr, replacing any earlier one.
func (r *Receivers) Register(ctx context.Context, addr domain.HumanAddr, codeHash string) error {
	return r.kv.Set(ctx, key(nsReceivers, []byte(addr)), []byte(codeHash))
}
