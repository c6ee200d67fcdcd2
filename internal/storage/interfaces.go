package storage

import (
	"context"

	"token-ledger/internal/domain"
)

// KVReader reads raw values by key.
type KVReader interface {
	// Get returns the value stored under key, or (nil, nil) if the key is absent.
	Get(ctx context.Context, key []byte) ([]byte, error)
}

// KVStore is the read-write view the ledger operates on during one call.
type KVStore interface {
	KVReader

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key []byte) error
}

// Write is a single buffered mutation.
type Write struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Backend is a persistent key-value store that applies batches atomically.
type Backend interface {
	KVReader

	// WriteBatch applies all writes or none of them.
	WriteBatch(ctx context.Context, writes []Write) error
}

// TxArchive receives committed transaction records for offline analysis.
type TxArchive interface {
	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate id.
	InsertBulk(ctx context.Context, txs []*domain.RichTx) error

	// GetByID retrieves a record by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id uint64) (*domain.RichTx, error)

	// GetByBlockRange retrieves records with block height within [start, end] (inclusive), ordered by id ASC.
	GetByBlockRange(ctx context.Context, start, end uint64) ([]*domain.RichTx, error)
}
