package ledger

import (
	"context"

	"token-ledger/internal/domain"
)

// AllowanceInfo is the answer of allowance changes and the allowance query.
type AllowanceInfo struct {
	Owner      domain.HumanAddr `json:"owner"`
	Spender    domain.HumanAddr `json:"spender"`
	Allowance  domain.Amount    `json:"allowance"`
	Expiration *uint64          `json:"expiration,omitempty"`
}

func (l *Ledger) expirationBasis(ctx context.Context) (domain.ExpirationBasis, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return "", err
	}
	return consts.ExpirationBasis, nil
}

// IncreaseAllowance grows the caller's allowance for spender.
// An expired allowance restarts at amount; otherwise the add saturates.
// A given expiration always replaces the stored one.
func (l *Ledger) IncreaseAllowance(ctx context.Context, env domain.Env, spender domain.HumanAddr, amount domain.Amount, expiration *uint64) (AllowanceInfo, error) {
	return l.adjustAllowance(ctx, env, spender, expiration, func(current domain.Allowance, expired bool) domain.Allowance {
		if expired {
			return domain.Allowance{Amount: amount}
		}
		current.Amount = current.Amount.SaturatingAdd(amount)
		return current
	})
}

// DecreaseAllowance shrinks the caller's allowance for spender.
// An expired allowance resets to zero; otherwise the subtraction saturates.
func (l *Ledger) DecreaseAllowance(ctx context.Context, env domain.Env, spender domain.HumanAddr, amount domain.Amount, expiration *uint64) (AllowanceInfo, error) {
	return l.adjustAllowance(ctx, env, spender, expiration, func(current domain.Allowance, expired bool) domain.Allowance {
		if expired {
			return domain.Allowance{}
		}
		current.Amount = current.Amount.SaturatingSub(amount)
		return current
	})
}

func (l *Ledger) adjustAllowance(
	ctx context.Context,
	env domain.Env,
	spender domain.HumanAddr,
	expiration *uint64,
	next func(current domain.Allowance, expired bool) domain.Allowance,
) (AllowanceInfo, error) {
	owner, err := l.canonical(env.Sender)
	if err != nil {
		return AllowanceInfo{}, err
	}
	spenderCanon, err := l.canonical(spender)
	if err != nil {
		return AllowanceInfo{}, err
	}
	basis, err := l.expirationBasis(ctx)
	if err != nil {
		return AllowanceInfo{}, err
	}

	current, err := l.store.Allowances.Get(ctx, owner, spenderCanon)
	if err != nil {
		return AllowanceInfo{}, err
	}

	updated := next(current, current.IsExpiredAt(env.Block, basis))
	if expiration != nil {
		exp := *expiration
		updated.Expiration = &exp
	}

	if err := l.store.Allowances.Set(ctx, owner, spenderCanon, updated); err != nil {
		return AllowanceInfo{}, err
	}
	return AllowanceInfo{
		Owner:      env.Sender,
		Spender:    spender,
		Allowance:  updated.Amount,
		Expiration: updated.Expiration,
	}, nil
}

// UseAllowance decrements spender's allowance over owner by amount.
// An expired allowance counts as zero.
func (l *Ledger) UseAllowance(ctx context.Context, block domain.BlockInfo, owner, spender domain.CanonicalAddr, amount domain.Amount) error {
	basis, err := l.expirationBasis(ctx)
	if err != nil {
		return err
	}
	allowance, err := l.store.Allowances.Get(ctx, owner, spender)
	if err != nil {
		return err
	}

	if allowance.IsExpiredAt(block, basis) {
		return &InsufficientAllowanceError{Allowance: domain.ZeroAmount, Required: amount}
	}
	remaining, ok := allowance.Amount.CheckedSub(amount)
	if !ok {
		return &InsufficientAllowanceError{Allowance: allowance.Amount, Required: amount}
	}

	allowance.Amount = remaining
	return l.store.Allowances.Set(ctx, owner, spender, allowance)
}
