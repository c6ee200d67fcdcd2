package state

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

func getAmount(ctx context.Context, kv storage.KVReader, k []byte) (domain.Amount, error) {
	raw, err := kv.Get(ctx, k)
	if err != nil {
		return domain.ZeroAmount, err
	}
	v, err := domain.AmountFromBytes(raw)
	if err != nil {
		return domain.ZeroAmount, fmt.Errorf("decode %q: %w", k, err)
	}
	return v, nil
}

func setAmount(ctx context.Context, kv storage.KVStore, k []byte, v domain.Amount) error {
	return kv.Set(ctx, k, v.Bytes())
}

func getU64(ctx context.Context, kv storage.KVReader, k []byte) (uint64, error) {
	raw, err := kv.Get(ctx, k)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("decode %q: want 8 bytes, got %d", k, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func setU64(ctx context.Context, kv storage.KVStore, k []byte, v uint64) error {
	return kv.Set(ctx, k, u64Bytes(v))
}

// getJSON decodes the value under k into v. Returns false if the key is absent.
func getJSON(ctx context.Context, kv storage.KVReader, k []byte, v any) (bool, error) {
	raw, err := kv.Get(ctx, k)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %q: %w", k, err)
	}
	return true, nil
}

func setJSON(ctx context.Context, kv storage.KVStore, k []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", k, err)
	}
	return kv.Set(ctx, k, raw)
}
