package state

import (
	"context"
	"fmt"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

var keyTxCount = key(nsConfig, []byte("tx_count"))

// History is the append-only transaction log with per-account indexes.
// Records are written once and never mutated.
type History struct {
	kv       storage.KVStore
	appended []domain.RichTx
}

// NewHistory creates a history log over kv.
func NewHistory(kv storage.KVStore) *History {
	return &History{kv: kv}
}

// NextID reserves the next global record id. Ids start at 1.
func (h *History) NextID(ctx context.Context) (uint64, error) {
	n, err := getU64(ctx, h.kv, keyTxCount)
	if err != nil {
		return 0, err
	}
	n++
	if err := setU64(ctx, h.kv, keyTxCount, n); err != nil {
		return 0, err
	}
	return n, nil
}

// StoreTx writes a rich record and indexes it for each distinct account.
func (h *History) StoreTx(ctx context.Context, tx domain.RichTx, accounts ...domain.CanonicalAddr) error {
	if err := setJSON(ctx, h.kv, key(nsTransactions, u64Bytes(tx.ID)), tx); err != nil {
		return err
	}
	for _, account := range distinct(accounts) {
		if err := h.appendIndex(ctx, nsAccountTxs, account, tx.ID); err != nil {
			return fmt.Errorf("index tx %d: %w", tx.ID, err)
		}
	}
	h.appended = append(h.appended, tx)
	return nil
}

// StoreTransfer writes a transfer record and indexes it for each distinct account.
func (h *History) StoreTransfer(ctx context.Context, tx domain.Tx, accounts ...domain.CanonicalAddr) error {
	if err := setJSON(ctx, h.kv, key(nsTransfers, u64Bytes(tx.ID)), tx); err != nil {
		return err
	}
	for _, account := range distinct(accounts) {
		if err := h.appendIndex(ctx, nsAccountTransfers, account, tx.ID); err != nil {
			return fmt.Errorf("index transfer %d: %w", tx.ID, err)
		}
	}
	return nil
}

// Appended returns the rich records stored through this handle, oldest first.
func (h *History) Appended() []domain.RichTx {
	out := make([]domain.RichTx, len(h.appended))
	copy(out, h.appended)
	return out
}

// Txs returns one page of an account's rich records, newest first, and the total count.
func (h *History) Txs(ctx context.Context, account domain.CanonicalAddr, page, pageSize uint32) ([]domain.RichTx, uint64, error) {
	ids, total, err := h.page(ctx, nsAccountTxs, account, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	txs := make([]domain.RichTx, 0, len(ids))
	for _, id := range ids {
		var tx domain.RichTx
		found, err := getJSON(ctx, h.kv, key(nsTransactions, u64Bytes(id)), &tx)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			return nil, 0, fmt.Errorf("tx %d: %w", id, storage.ErrNotFound)
		}
		txs = append(txs, tx)
	}
	return txs, total, nil
}

// Transfers returns one page of an account's transfer records, newest first, and the total count.
func (h *History) Transfers(ctx context.Context, account domain.CanonicalAddr, page, pageSize uint32) ([]domain.Tx, uint64, error) {
	ids, total, err := h.page(ctx, nsAccountTransfers, account, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	txs := make([]domain.Tx, 0, len(ids))
	for _, id := range ids {
		var tx domain.Tx
		found, err := getJSON(ctx, h.kv, key(nsTransfers, u64Bytes(id)), &tx)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			return nil, 0, fmt.Errorf("transfer %d: %w", id, storage.ErrNotFound)
		}
		txs = append(txs, tx)
	}
	return txs, total, nil
}

func indexLenKey(ns string, account domain.CanonicalAddr) []byte {
	return key(ns, lenPrefixed(account), []byte("len"))
}

func indexEntryKey(ns string, account domain.CanonicalAddr, i uint64) []byte {
	return key(ns, lenPrefixed(account), []byte("i"), u64Bytes(i))
}

func (h *History) appendIndex(ctx context.Context, ns string, account domain.CanonicalAddr, id uint64) error {
	n, err := getU64(ctx, h.kv, indexLenKey(ns, account))
	if err != nil {
		return err
	}
	if err := setU64(ctx, h.kv, indexEntryKey(ns, account, n), id); err != nil {
		return err
	}
	return setU64(ctx, h.kv, indexLenKey(ns, account), n+1)
}

// page walks the index from the newest entry, skipping page*pageSize entries.
func (h *History) page(ctx context.Context, ns string, account domain.CanonicalAddr, page, pageSize uint32) ([]uint64, uint64, error) {
	total, err := getU64(ctx, h.kv, indexLenKey(ns, account))
	if err != nil {
		return nil, 0, err
	}

	skip := uint64(page) * uint64(pageSize)
	if pageSize == 0 || skip >= total {
		return []uint64{}, total, nil
	}

	// newest entry is at total-1
	start := total - 1 - skip
	count := uint64(pageSize)
	if count > start+1 {
		count = start + 1
	}

	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := getU64(ctx, h.kv, indexEntryKey(ns, account, start-i))
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	return ids, total, nil
}

func distinct(accounts []domain.CanonicalAddr) []domain.CanonicalAddr {
	out := make([]domain.CanonicalAddr, 0, len(accounts))
	for _, a := range accounts {
		dup := false
		for _, seen := range out {
			if seen.Equals(a) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}
