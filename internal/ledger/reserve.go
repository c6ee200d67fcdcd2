package ledger

import (
	"context"
	"errors"
	"fmt"

	"token-ledger/internal/domain"
)

// Deposit converts the reserve coins sent with the call into tokens.
func (l *Ledger) Deposit(ctx context.Context, env domain.Env) error {
	consts, err := l.requireFeature(ctx, featureDeposit)
	if err != nil {
		return err
	}

	amount := domain.ZeroAmount
	for _, coin := range env.SentFunds {
		if coin.Denom != consts.ReserveDenom {
			return fmt.Errorf("%w: %s", ErrUnsupportedToken, coin.Denom)
		}
		amount = coin.Amount
	}
	if amount.IsZero() {
		return ErrNoFundsSent
	}

	sender, err := l.party(env.Sender)
	if err != nil {
		return err
	}

	supply, err := l.store.Config.TotalSupply(ctx)
	if err != nil {
		return err
	}
	next, ok := supply.CheckedAdd(amount)
	if !ok {
		return ErrSupplyOverflow
	}
	if err := l.store.Config.SetTotalSupply(ctx, next); err != nil {
		return err
	}
	if err := l.credit(ctx, sender.canon, amount); err != nil {
		return err
	}

	return l.recordRich(ctx, env.Block, domain.TxAction{Kind: domain.TxKindDeposit},
		domain.Coin{Denom: consts.ReserveDenom, Amount: amount}, nil, sender.canon)
}

// Redeem burns amount of the caller's tokens and pays out the same amount of
// the reserve asset from the contract.
func (l *Ledger) Redeem(ctx context.Context, env domain.Env, amount domain.Amount) error {
	consts, err := l.requireFeature(ctx, featureRedeem)
	if err != nil {
		return err
	}
	sender, err := l.party(env.Sender)
	if err != nil {
		return err
	}

	if err := l.debit(ctx, sender.canon, amount); err != nil {
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

	if l.reserve == nil {
		return errors.New("reserve querier is not configured")
	}
	reserve, err := l.reserve.Balance(ctx, env.ContractAddress, consts.ReserveDenom)
	if err != nil {
		return fmt.Errorf("query reserve balance: %w", err)
	}
	if amount.Cmp(reserve) > 0 {
		return ErrReserveInsufficient
	}

	if err := l.recordRich(ctx, env.Block, domain.TxAction{Kind: domain.TxKindRedeem},
		domain.Coin{Denom: consts.Symbol, Amount: amount}, nil, sender.canon); err != nil {
		return err
	}

	l.messages = append(l.messages, domain.BankSend{
		FromAddress: env.ContractAddress,
		ToAddress:   env.Sender,
		Amount:      []domain.Coin{{Denom: consts.ReserveDenom, Amount: amount}},
	})
	return nil
}
