package ledger

import (
	"context"

	"token-ledger/internal/domain"
)

// DirectTransfer debits from and credits to. Both checks run before either write.
func (l *Ledger) DirectTransfer(ctx context.Context, from, to domain.CanonicalAddr, amount domain.Amount) error {
	fromBalance, err := l.store.Balances.Balance(ctx, from)
	if err != nil {
		return err
	}
	newFrom, ok := fromBalance.CheckedSub(amount)
	if !ok {
		return &InsufficientFundsError{Balance: fromBalance, Required: amount}
	}

	if from.Equals(to) {
		// debit and credit cancel out
		return nil
	}

	toBalance, err := l.store.Balances.Balance(ctx, to)
	if err != nil {
		return err
	}
	newTo, ok := toBalance.CheckedAdd(amount)
	if !ok {
		return ErrBalanceOverflow
	}

	if err := l.store.Balances.SetBalance(ctx, from, newFrom); err != nil {
		return err
	}
	return l.store.Balances.SetBalance(ctx, to, newTo)
}

// DelegatedTransfer consumes spender's allowance over owner, then transfers.
func (l *Ledger) DelegatedTransfer(ctx context.Context, block domain.BlockInfo, spender, owner, to domain.CanonicalAddr, amount domain.Amount) error {
	if err := l.UseAllowance(ctx, block, owner, spender, amount); err != nil {
		return err
	}
	return l.DirectTransfer(ctx, owner, to, amount)
}

func (l *Ledger) transfer(ctx context.Context, block domain.BlockInfo, sender, recipient party, amount domain.Amount, memo *string) error {
	if err := l.DirectTransfer(ctx, sender.canon, recipient.canon, amount); err != nil {
		return err
	}
	return l.recordTransferCoins(ctx, block, sender, sender, recipient, amount, memo)
}

func (l *Ledger) transferFrom(ctx context.Context, block domain.BlockInfo, spender, owner, recipient party, amount domain.Amount, memo *string) error {
	if err := l.DelegatedTransfer(ctx, block, spender.canon, owner.canon, recipient.canon, amount); err != nil {
		return err
	}
	return l.recordTransferCoins(ctx, block, owner, spender, recipient, amount, memo)
}

func (l *Ledger) recordTransferCoins(ctx context.Context, block domain.BlockInfo, owner, sender, recipient party, amount domain.Amount, memo *string) error {
	consts, err := l.constants(ctx)
	if err != nil {
		return err
	}
	return l.recordTransfer(ctx, block, owner, sender, recipient, domain.Coin{Denom: consts.Symbol, Amount: amount}, memo)
}

// Transfer moves amount from the caller to recipient.
func (l *Ledger) Transfer(ctx context.Context, env domain.Env, recipient domain.HumanAddr, amount domain.Amount, memo *string) error {
	return l.BatchTransfer(ctx, env, []TransferAction{{Recipient: recipient, Amount: amount, Memo: memo}})
}

// BatchTransfer applies each action in order. The first failure aborts the call.
func (l *Ledger) BatchTransfer(ctx context.Context, env domain.Env, actions []TransferAction) error {
	sender, err := l.party(env.Sender)
	if err != nil {
		return err
	}
	for _, a := range actions {
		recipient, err := l.party(a.Recipient)
		if err != nil {
			return err
		}
		if err := l.transfer(ctx, env.Block, sender, recipient, a.Amount, a.Memo); err != nil {
			return err
		}
	}
	return nil
}

// Send transfers and then notifies the recipient if it accepts callbacks.
func (l *Ledger) Send(ctx context.Context, env domain.Env, action SendAction) error {
	return l.BatchSend(ctx, env, []SendAction{action})
}

// BatchSend applies each send in order. The first failure aborts the call.
func (l *Ledger) BatchSend(ctx context.Context, env domain.Env, actions []SendAction) error {
	sender, err := l.party(env.Sender)
	if err != nil {
		return err
	}
	for _, a := range actions {
		recipient, err := l.party(a.Recipient)
		if err != nil {
			return err
		}
		if err := l.transfer(ctx, env.Block, sender, recipient, a.Amount, a.Memo); err != nil {
			return err
		}
		receive := domain.ReceiveMsg{Sender: sender.human, From: sender.human, Amount: a.Amount, Memo: a.Memo, Msg: a.Msg}
		if err := l.notify(ctx, a.Recipient, a.RecipientCodeHash, receive); err != nil {
			return err
		}
	}
	return nil
}

// TransferFrom moves tokens out of an owner's balance using the caller's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, env domain.Env, action TransferFromAction) error {
	return l.BatchTransferFrom(ctx, env, []TransferFromAction{action})
}

// BatchTransferFrom applies each delegated transfer in order.
func (l *Ledger) BatchTransferFrom(ctx context.Context, env domain.Env, actions []TransferFromAction) error {
	spender, err := l.party(env.Sender)
	if err != nil {
		return err
	}
	for _, a := range actions {
		owner, err := l.party(a.Owner)
		if err != nil {
			return err
		}
		recipient, err := l.party(a.Recipient)
		if err != nil {
			return err
		}
		if err := l.transferFrom(ctx, env.Block, spender, owner, recipient, a.Amount, a.Memo); err != nil {
			return err
		}
	}
	return nil
}

// SendFrom is TransferFrom followed by a receiver notification.
func (l *Ledger) SendFrom(ctx context.Context, env domain.Env, action SendFromAction) error {
	return l.BatchSendFrom(ctx, env, []SendFromAction{action})
}

// BatchSendFrom applies each delegated send in order.
func (l *Ledger) BatchSendFrom(ctx context.Context, env domain.Env, actions []SendFromAction) error {
	spender, err := l.party(env.Sender)
	if err != nil {
		return err
	}
	for _, a := range actions {
		owner, err := l.party(a.Owner)
		if err != nil {
			return err
		}
		recipient, err := l.party(a.Recipient)
		if err != nil {
			return err
		}
		if err := l.transferFrom(ctx, env.Block, spender, owner, recipient, a.Amount, a.Memo); err != nil {
			return err
		}
		receive := domain.ReceiveMsg{Sender: spender.human, From: owner.human, Amount: a.Amount, Memo: a.Memo, Msg: a.Msg}
		if err := l.notify(ctx, a.Recipient, a.RecipientCodeHash, receive); err != nil {
			return err
		}
	}
	return nil
}
