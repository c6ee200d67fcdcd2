package state

import "token-ledger/internal/storage"

// Store bundles every typed store over a single key space.
type Store struct {
	Balances    *Balances
	Allowances  *Allowances
	Config      *Config
	Receivers   *Receivers
	ViewingKeys *ViewingKeys
	Permits     *RevokedPermits
	History     *History
}

// New creates all typed stores over kv.
func New(kv storage.KVStore) *Store {
	return &Store{
		Balances:    NewBalances(kv),
		Allowances:  NewAllowances(kv),
		Config:      NewConfig(kv),
		Receivers:   NewReceivers(kv),
		ViewingKeys: NewViewingKeys(kv),
		Permits:     NewRevokedPermits(kv),
		History:     NewHistory(kv),
	}
}
