package ledger

import (
	"context"

	"token-ledger/internal/domain"
)

func (l *Ledger) recordTransfer(ctx context.Context, block domain.BlockInfo, owner, sender, receiver party, coins domain.Coin, memo *string) error {
	id, err := l.store.History.NextID(ctx)
	if err != nil {
		return err
	}

	rich := domain.RichTx{
		ID: id,
		Action: domain.TxAction{
			Kind:      domain.TxKindTransfer,
			From:      owner.human,
			Sender:    sender.human,
			Recipient: receiver.human,
		},
		Coins:       coins,
		Memo:        memo,
		BlockTime:   block.Time,
		BlockHeight: block.Height,
	}
	if err := l.store.History.StoreTx(ctx, rich, owner.canon, sender.canon, receiver.canon); err != nil {
		return err
	}

	transfer := domain.Tx{
		ID:          id,
		From:        owner.human,
		Sender:      sender.human,
		Receiver:    receiver.human,
		Coins:       coins,
		Memo:        memo,
		BlockTime:   block.Time,
		BlockHeight: block.Height,
	}
	return l.store.History.StoreTransfer(ctx, transfer, owner.canon, sender.canon, receiver.canon)
}

func (l *Ledger) recordMint(ctx context.Context, block domain.BlockInfo, minter, recipient party, coins domain.Coin, memo *string) error {
	return l.recordRich(ctx, block, domain.TxAction{
		Kind:      domain.TxKindMint,
		Minter:    minter.human,
		Recipient: recipient.human,
	}, coins, memo, recipient.canon, minter.canon)
}

func (l *Ledger) recordBurn(ctx context.Context, block domain.BlockInfo, burner, owner party, coins domain.Coin, memo *string) error {
	return l.recordRich(ctx, block, domain.TxAction{
		Kind:   domain.TxKindBurn,
		Burner: burner.human,
		Owner:  owner.human,
	}, coins, memo, owner.canon, burner.canon)
}

func (l *Ledger) recordRich(ctx context.Context, block domain.BlockInfo, action domain.TxAction, coins domain.Coin, memo *string, accounts ...domain.CanonicalAddr) error {
	id, err := l.store.History.NextID(ctx)
	if err != nil {
		return err
	}
	return l.store.History.StoreTx(ctx, domain.RichTx{
		ID:          id,
		Action:      action,
		Coins:       coins,
		Memo:        memo,
		BlockTime:   block.Time,
		BlockHeight: block.Height,
	}, accounts...)
}
