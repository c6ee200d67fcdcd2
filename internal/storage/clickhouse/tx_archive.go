package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// TxArchive implements storage.TxArchive using ClickHouse.
// Rows land in ledger_txs, one per committed transaction id.
type TxArchive struct {
	conn *Conn
}

// NewTxArchive creates a new TxArchive.
func NewTxArchive(conn *Conn) *TxArchive {
	return &TxArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TxArchive = (*TxArchive)(nil)

const txColumns = `id, kind, from_addr, sender, recipient, minter, burner, owner,
	denom, amount, memo, block_time, block_height`

// InsertBulk adds multiple records. Fails entire batch on duplicate id.
func (a *TxArchive) InsertBulk(ctx context.Context, txs []*domain.RichTx) error {
	if len(txs) == 0 {
		return nil
	}

	seen := make(map[uint64]struct{}, len(txs))
	for _, tx := range txs {
		if tx == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[tx.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[tx.ID] = struct{}{}
	}

	for _, tx := range txs {
		exists, err := a.exists(ctx, tx.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := a.conn.PrepareBatch(ctx, `INSERT INTO ledger_txs (`+txColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, tx := range txs {
		act := tx.Action
		err = batch.Append(
			tx.ID, string(act.Kind),
			string(act.From), string(act.Sender), string(act.Recipient),
			string(act.Minter), string(act.Burner), string(act.Owner),
			tx.Coins.Denom, tx.Coins.Amount.Big(), tx.Memo,
			tx.BlockTime, tx.BlockHeight,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a record by id. Returns ErrNotFound if not exists.
func (a *TxArchive) GetByID(ctx context.Context, id uint64) (*domain.RichTx, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT `+txColumns+`
		FROM ledger_txs FINAL
		WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query by id: %w", err)
	}
	defer rows.Close()

	txs, err := scanTxs(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, storage.ErrNotFound
	}
	return txs[0], nil
}

// GetByBlockRange retrieves records with block height within [start, end] (inclusive), ordered by id ASC.
func (a *TxArchive) GetByBlockRange(ctx context.Context, start, end uint64) ([]*domain.RichTx, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT `+txColumns+`
		FROM ledger_txs FINAL
		WHERE block_height >= ? AND block_height <= ?
		ORDER BY id ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by block range: %w", err)
	}
	defer rows.Close()

	return scanTxs(rows)
}

func (a *TxArchive) exists(ctx context.Context, id uint64) (bool, error) {
	var count uint64
	if err := a.conn.QueryRow(ctx, `SELECT count(*) FROM ledger_txs WHERE id = ?`, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type txRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTxs(rows txRows) ([]*domain.RichTx, error) {
	var result []*domain.RichTx
	for rows.Next() {
		var (
			tx                                            domain.RichTx
			kind, from, sender, recipient, minter, burner string
			owner                                         string
			amount                                        big.Int
		)
		if err := rows.Scan(
			&tx.ID, &kind, &from, &sender, &recipient, &minter, &burner, &owner,
			&tx.Coins.Denom, &amount, &tx.Memo, &tx.BlockTime, &tx.BlockHeight,
		); err != nil {
			return nil, fmt.Errorf("scan tx: %w", err)
		}

		amt, err := domain.AmountFromBig(&amount)
		if err != nil {
			return nil, fmt.Errorf("decode amount of tx %d: %w", tx.ID, err)
		}
		tx.Coins.Amount = amt
		tx.Action = domain.TxAction{
			Kind:      domain.TxKind(kind),
			From:      domain.HumanAddr(from),
			Sender:    domain.HumanAddr(sender),
			Recipient: domain.HumanAddr(recipient),
			Minter:    domain.HumanAddr(minter),
			Burner:    domain.HumanAddr(burner),
			Owner:     domain.HumanAddr(owner),
		}
		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
