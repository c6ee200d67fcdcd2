package ledger

import (
	"context"

	"token-ledger/internal/domain"
)

// AddMinters appends addresses to the minter set.
func (l *Ledger) AddMinters(ctx context.Context, env domain.Env, minters []domain.HumanAddr) error {
	if err := l.requireMinterAdmin(ctx, env.Sender); err != nil {
		return err
	}
	return l.store.Config.AddMinters(ctx, minters)
}

// RemoveMinters removes addresses from the minter set.
func (l *Ledger) RemoveMinters(ctx context.Context, env domain.Env, minters []domain.HumanAddr) error {
	if err := l.requireMinterAdmin(ctx, env.Sender); err != nil {
		return err
	}
	return l.store.Config.RemoveMinters(ctx, minters)
}

// SetMinters replaces the minter set.
func (l *Ledger) SetMinters(ctx context.Context, env domain.Env, minters []domain.HumanAddr) error {
	if err := l.requireMinterAdmin(ctx, env.Sender); err != nil {
		return err
	}
	return l.store.Config.SetMinters(ctx, minters)
}

func (l *Ledger) requireMinterAdmin(ctx context.Context, sender domain.HumanAddr) error {
	if _, err := l.requireFeature(ctx, featureMint); err != nil {
		return err
	}
	_, err := l.requireAdmin(ctx, sender)
	return err
}

// ChangeAdmin hands the admin role to address.
func (l *Ledger) ChangeAdmin(ctx context.Context, env domain.Env, addr domain.HumanAddr) error {
	consts, err := l.requireAdmin(ctx, env.Sender)
	if err != nil {
		return err
	}
	if _, err := l.canonical(addr); err != nil {
		return err
	}
	consts.Admin = addr
	if err := l.store.Config.SetConstants(ctx, consts); err != nil {
		return err
	}
	l.consts = &consts
	return nil
}

// SetContractStatus changes which operations the contract accepts.
func (l *Ledger) SetContractStatus(ctx context.Context, env domain.Env, status domain.ContractStatus) error {
	if _, err := l.requireAdmin(ctx, env.Sender); err != nil {
		return err
	}
	return l.store.Config.SetContractStatus(ctx, status)
}
