package ledger

import (
	"context"

	"token-ledger/internal/domain"
)

// Mint creates amount new tokens for recipient. The caller must be a minter.
func (l *Ledger) Mint(ctx context.Context, env domain.Env, action MintAction) error {
	return l.BatchMint(ctx, env, []MintAction{action})
}

// BatchMint checks the summed supply increase of all actions before any credit.
func (l *Ledger) BatchMint(ctx context.Context, env domain.Env, actions []MintAction) error {
	consts, err := l.requireFeature(ctx, featureMint)
	if err != nil {
		return err
	}
	isMinter, err := l.store.Config.IsMinter(ctx, env.Sender)
	if err != nil {
		return err
	}
	if !isMinter {
		return ErrNotAMinter
	}

	minter, err := l.party(env.Sender)
	if err != nil {
		return err
	}
	recipients := make([]party, len(actions))
	for i, a := range actions {
		if recipients[i], err = l.party(a.Recipient); err != nil {
			return err
		}
	}

	supply, err := l.store.Config.TotalSupply(ctx)
	if err != nil {
		return err
	}
	for _, a := range actions {
		next, ok := supply.CheckedAdd(a.Amount)
		if !ok {
			return ErrSupplyOverflow
		}
		supply = next
	}
	if err := l.store.Config.SetTotalSupply(ctx, supply); err != nil {
		return err
	}

	for i, a := range actions {
		if err := l.credit(ctx, recipients[i].canon, a.Amount); err != nil {
			return err
		}
		coins := domain.Coin{Denom: consts.Symbol, Amount: a.Amount}
		if err := l.recordMint(ctx, env.Block, minter, recipients[i], coins, a.Memo); err != nil {
			return err
		}
	}
	return nil
}

// Burn destroys amount of the caller's tokens.
func (l *Ledger) Burn(ctx context.Context, env domain.Env, amount domain.Amount, memo *string) error {
	consts, err := l.requireFeature(ctx, featureBurn)
	if err != nil {
		return err
	}
	owner, err := l.party(env.Sender)
	if err != nil {
		return err
	}

	if err := l.debit(ctx, owner.canon, amount); err != nil {
		return err
	}
	supply, err := l.store.Config.TotalSupply(ctx)
	if err != nil {
		return err
	}
	next, ok := supply.CheckedSub(amount)
	if !ok {
		return ErrInsufficientSupply
	}
	if err := l.store.Config.SetTotalSupply(ctx, next); err != nil {
		return err
	}

	return l.recordBurn(ctx, env.Block, owner, owner, domain.Coin{Denom: consts.Symbol, Amount: amount}, memo)
}

// BurnFrom destroys tokens of an owner using the caller's allowance.
func (l *Ledger) BurnFrom(ctx context.Context, env domain.Env, action BurnFromAction) error {
	return l.BatchBurnFrom(ctx, env, []BurnFromAction{action})
}

// BatchBurnFrom carries the supply total across actions and persists it once at the end.
func (l *Ledger) BatchBurnFrom(ctx context.Context, env domain.Env, actions []BurnFromAction) error {
	consts, err := l.requireFeature(ctx, featureBurn)
	if err != nil {
		return err
	}
	spender, err := l.party(env.Sender)
	if err != nil {
		return err
	}

	supply, err := l.store.Config.TotalSupply(ctx)
	if err != nil {
		return err
	}

	for _, a := range actions {
		owner, err := l.party(a.Owner)
		if err != nil {
			return err
		}
		if err := l.UseAllowance(ctx, env.Block, owner.canon, spender.canon, a.Amount); err != nil {
			return err
		}
		if err := l.debit(ctx, owner.canon, a.Amount); err != nil {
			return err
		}
		next, ok := supply.CheckedSub(a.Amount)
		if !ok {
			return ErrInsufficientSupply
		}
		supply = next

		coins := domain.Coin{Denom: consts.Symbol, Amount: a.Amount}
		if err := l.recordBurn(ctx, env.Block, spender, owner, coins, a.Memo); err != nil {
			return err
		}
	}

	return l.store.Config.SetTotalSupply(ctx, supply)
}

// credit adds amount to account with overflow check.
func (l *Ledger) credit(ctx context.Context, account domain.CanonicalAddr, amount domain.Amount) error {
	balance, err := l.store.Balances.Balance(ctx, account)
	if err != nil {
		return err
	}
	next, ok := balance.CheckedAdd(amount)
	if !ok {
		return ErrBalanceOverflow
	}
	return l.store.Balances.SetBalance(ctx, account, next)
}

// debit subtracts amount from account, failing with InsufficientFundsError.
func (l *Ledger) debit(ctx context.Context, account domain.CanonicalAddr, amount domain.Amount) error {
	balance, err := l.store.Balances.Balance(ctx, account)
	if err != nil {
		return err
	}
	next, ok := balance.CheckedSub(amount)
	if !ok {
		return &InsufficientFundsError{Balance: balance, Required: amount}
	}
	return l.store.Balances.SetBalance(ctx, account, next)
}
