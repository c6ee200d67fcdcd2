package memory

import (
	"context"
	"sort"
	"sync"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// TxArchive is an in-memory implementation of storage.TxArchive.
type TxArchive struct {
	mu   sync.RWMutex
	data map[uint64]*domain.RichTx // keyed by tx id
}

// NewTxArchive creates a new in-memory transaction archive.
func NewTxArchive() *TxArchive {
	return &TxArchive{
		data: make(map[uint64]*domain.RichTx),
	}
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (a *TxArchive) InsertBulk(_ context.Context, txs []*domain.RichTx) error {
	if len(txs) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Check for duplicates first (atomic: all or nothing)
	seen := make(map[uint64]struct{}, len(txs))
	for _, tx := range txs {
		if tx == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := a.data[tx.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[tx.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[tx.ID] = struct{}{}
	}

	for _, tx := range txs {
		txCopy := *tx
		a.data[tx.ID] = &txCopy
	}
	return nil
}

// GetByID retrieves a record by its id. Returns ErrNotFound if not exists.
func (a *TxArchive) GetByID(_ context.Context, id uint64) (*domain.RichTx, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tx, exists := a.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	txCopy := *tx
	return &txCopy, nil
}

// GetByBlockRange retrieves records with block height within [start, end] (inclusive).
func (a *TxArchive) GetByBlockRange(_ context.Context, start, end uint64) ([]*domain.RichTx, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []*domain.RichTx
	for _, tx := range a.data {
		if tx.BlockHeight >= start && tx.BlockHeight <= end {
			txCopy := *tx
			result = append(result, &txCopy)
		}
	}

	// Sort by id ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TxArchive = (*TxArchive)(nil)
