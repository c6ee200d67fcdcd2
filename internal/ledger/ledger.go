// Package ledger implements the token state machine: transfers, allowances,
// supply changes, receiver notifications, history and the authenticated
// query gate.
//
// A Ledger is built for a single call over that call's write overlay. It never
// rolls back: any returned error means the caller must discard the overlay.
package ledger

import (
	"context"
	"fmt"

	"token-ledger/internal/address"
	"token-ledger/internal/domain"
	"token-ledger/internal/state"
)

// ReserveQuerier reports the reserve-asset balance held by an account.
type ReserveQuerier interface {
	Balance(ctx context.Context, account domain.HumanAddr, denom string) (domain.Amount, error)
}

// Deps are the services a ledger call depends on.
type Deps struct {
	Addresses address.Resolver
	Reserve   ReserveQuerier
}

// Ledger executes operations for one call.
type Ledger struct {
	store    *state.Store
	addrs    address.Resolver
	reserve  ReserveQuerier
	consts   *state.Constants
	messages []domain.Message
}

// New creates a ledger over store.
func New(store *state.Store, deps Deps) *Ledger {
	addrs := deps.Addresses
	if addrs == nil {
		addrs = address.NewBase58Resolver()
	}
	return &Ledger{
		store:   store,
		addrs:   addrs,
		reserve: deps.Reserve,
	}
}

// Store returns the underlying typed stores.
func (l *Ledger) Store() *state.Store {
	return l.store
}

// Messages returns the outbound messages produced so far, in order.
func (l *Ledger) Messages() []domain.Message {
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Ledger) constants(ctx context.Context) (state.Constants, error) {
	if l.consts != nil {
		return *l.consts, nil
	}
	consts, err := l.store.Config.Constants(ctx)
	if err != nil {
		return state.Constants{}, err
	}
	l.consts = &consts
	return consts, nil
}

// party is an account in both address forms.
type party struct {
	human domain.HumanAddr
	canon domain.CanonicalAddr
}

func (l *Ledger) party(human domain.HumanAddr) (party, error) {
	canon, err := l.canonical(human)
	if err != nil {
		return party{}, err
	}
	return party{human: human, canon: canon}, nil
}

func (l *Ledger) canonical(human domain.HumanAddr) (domain.CanonicalAddr, error) {
	return l.addrs.Canonicalize(human)
}

func (l *Ledger) requireAdmin(ctx context.Context, sender domain.HumanAddr) (state.Constants, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return state.Constants{}, err
	}
	if sender != consts.Admin {
		return state.Constants{}, errNotAdmin
	}
	return consts, nil
}

type feature string

const (
	featureDeposit feature = "Deposit"
	featureRedeem  feature = "Redeem"
	featureMint    feature = "Mint"
	featureBurn    feature = "Burn"
)

func (l *Ledger) requireFeature(ctx context.Context, f feature) (state.Constants, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return state.Constants{}, err
	}
	var enabled bool
	switch f {
	case featureDeposit:
		enabled = consts.DepositIsEnabled
	case featureRedeem:
		enabled = consts.RedeemIsEnabled
	case featureMint:
		enabled = consts.MintIsEnabled
	case featureBurn:
		enabled = consts.BurnIsEnabled
	default:
		return state.Constants{}, fmt.Errorf("unknown feature %q", f)
	}
	if !enabled {
		return state.Constants{}, &FeatureDisabledError{Feature: string(f)}
	}
	return consts, nil
}
