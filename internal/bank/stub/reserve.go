// Package stub provides an in-process reserve for tests and single-node runs.
package stub

import (
	"context"
	"sync"

	"token-ledger/internal/domain"
)

// Reserve is a settable reserve balance book.
type Reserve struct {
	mu       sync.RWMutex
	balances map[string]domain.Amount
}

// NewReserve creates an empty reserve.
func NewReserve() *Reserve {
	return &Reserve{balances: make(map[string]domain.Amount)}
}

func reserveKey(account domain.HumanAddr, denom string) string {
	return string(account) + "\x00" + denom
}

// Balance returns the stored balance, zero if never set.
func (r *Reserve) Balance(_ context.Context, account domain.HumanAddr, denom string) (domain.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[reserveKey(account, denom)], nil
}

// SetBalance overwrites the balance of denom for account.
func (r *Reserve) SetBalance(account domain.HumanAddr, denom string, amount domain.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[reserveKey(account, denom)] = amount
}

// Add credits amount, saturating at the maximum.
func (r *Reserve) Add(account domain.HumanAddr, denom string, amount domain.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := reserveKey(account, denom)
	r.balances[k] = r.balances[k].SaturatingAdd(amount)
}

// Sub debits amount, clamping at zero.
func (r *Reserve) Sub(account domain.HumanAddr, denom string, amount domain.Amount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := reserveKey(account, denom)
	r.balances[k] = r.balances[k].SaturatingSub(amount)
}

// Settle credits the funds sent with a call to the contract and debits every
// bank send it produced, the way a bank module would.
func (r *Reserve) Settle(env domain.Env, msgs domain.Messages) {
	for _, c := range env.SentFunds {
		r.Add(env.ContractAddress, c.Denom, c.Amount)
	}
	for _, m := range msgs {
		send, ok := m.(domain.BankSend)
		if !ok {
			continue
		}
		for _, c := range send.Amount {
			r.Sub(send.FromAddress, c.Denom, c.Amount)
		}
	}
}
