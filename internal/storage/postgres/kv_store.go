package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-ledger/internal/storage"
)

// maxCommitAttempts bounds retries of a batch that lost a serialization conflict.
const maxCommitAttempts = 3

// KVStore is a PostgreSQL implementation of storage.Backend.
// Uses a single table:
//   - ledger_kv: (key BYTEA PRIMARY KEY, value BYTEA)
type KVStore struct {
	pool *Pool
}

// NewKVStore creates a new PostgreSQL key-value store.
func NewKVStore(pool *Pool) *KVStore {
	return &KVStore{pool: pool}
}

// Compile-time interface check.
var _ storage.Backend = (*KVStore)(nil)

// Get returns the value stored under key, or (nil, nil) if absent.
func (s *KVStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, storage.ErrInvalidInput
	}

	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM ledger_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get key: %w", err)
	}
	return value, nil
}

// WriteBatch applies all writes in one serializable transaction.
func (s *KVStore) WriteBatch(ctx context.Context, writes []storage.Write) error {
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if len(w.Key) == 0 {
			return storage.ErrInvalidInput
		}
	}

	var err error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		err = s.writeBatchOnce(ctx, writes)
		if err == nil || !isSerializationError(err) {
			return err
		}
	}
	return fmt.Errorf("write batch after %d attempts: %w", maxCommitAttempts, err)
}

func (s *KVStore) writeBatchOnce(ctx context.Context, writes []storage.Write) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, w := range writes {
		if w.Delete {
			batch.Queue(`DELETE FROM ledger_kv WHERE key = $1`, w.Key)
			continue
		}
		batch.Queue(`
			INSERT INTO ledger_kv (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE
			SET value = EXCLUDED.value,
			    updated_at = NOW()
		`, w.Key, w.Value)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range writes {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("apply write %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
