// Package state implements the typed ledger stores over a storage.KVStore.
//
// Every store is a thin view over the same key space; keys are namespaced:
//
//	balances/<canonical>                       16-byte amount
//	allowances/<len><owner><spender>           JSON domain.Allowance
//	config/<field>                             constants, supply, minters, status, tx counter
//	receivers/<human>                          code hash
//	viewing_keys/<canonical>                   key hash
//	revoked_permits/<len><human><name>         presence marker
//	transactions/<id>                          JSON domain.RichTx
//	transfers/<id>                             JSON domain.Tx
//	account_txs/<len><canonical>/...           per-account index of rich txs
//	account_transfers/<len><canonical>/...     per-account index of transfers
package state

import "encoding/binary"

const (
	nsBalances         = "balances/"
	nsAllowances       = "allowances/"
	nsConfig           = "config/"
	nsReceivers        = "receivers/"
	nsViewingKeys      = "viewing_keys/"
	nsRevokedPermits   = "revoked_permits/"
	nsTransactions     = "transactions/"
	nsTransfers        = "transfers/"
	nsAccountTxs       = "account_txs/"
	nsAccountTransfers = "account_transfers/"
)

func key(ns string, parts ...[]byte) []byte {
	n := len(ns)
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	out = append(out, ns...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// lenPrefixed keeps composite keys unambiguous when the first part has variable length.
// The prefix is a uvarint, a single byte for parts shorter than 128 bytes.
func lenPrefixed(b []byte) []byte {
	out := make([]byte, 0, len(b)+binary.MaxVarintLen64)
	out = binary.AppendUvarint(out, uint64(len(b)))
	return append(out, b...)
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
