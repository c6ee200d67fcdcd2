package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-ledger/internal/address"
	"token-ledger/internal/bank/stub"
	"token-ledger/internal/domain"
	"token-ledger/internal/ledger"
	"token-ledger/internal/storage/memory"
)

var (
	admin        = address.FromSeed("admin")
	alice        = address.FromSeed("alice")
	bob          = address.FromSeed("bob")
	carol        = address.FromSeed("carol")
	contractAddr = address.FromSeed("contract")
)

type recordingRelay struct {
	mu   sync.Mutex
	msgs domain.Messages
	err  error
}

func (r *recordingRelay) Publish(_ context.Context, msgs domain.Messages) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgs...)
	return r.err
}

type failingArchive struct {
	*memory.TxArchive
}

func (failingArchive) InsertBulk(context.Context, []*domain.RichTx) error {
	return errors.New("archive down")
}

func testGenesis() *Genesis {
	return &Genesis{
		Name:     "Ledger Token",
		Symbol:   "LGT",
		Decimals: 6,
		Admin:    admin,
		PrngSeed: "genesis-seed",
		Config: Features{
			PublicTotalSupply: true,
			EnableDeposit:     true,
			EnableRedeem:      true,
			EnableMint:        true,
			EnableBurn:        true,
		},
		ReserveDenom:    "ughm",
		ExpirationBasis: domain.ExpirationByHeight,
		InitialBalances: []InitialBalance{
			{Address: alice, Amount: domain.NewAmount(1000)},
		},
	}
}

type fixture struct {
	t        *testing.T
	backend  *memory.KVStore
	archive  *memory.TxArchive
	relay    *recordingRelay
	reserve  *stub.Reserve
	contract *Contract
	height   uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		backend: memory.NewKVStore(),
		archive: memory.NewTxArchive(),
		relay:   &recordingRelay{},
		reserve: stub.NewReserve(),
		height:  1,
	}

	written, err := Instantiate(context.Background(), f.backend, testGenesis(), nil, domain.BlockInfo{Height: 1, Time: 1_700_000_000})
	require.NoError(t, err)
	require.True(t, written)

	f.contract = New(f.backend, Options{
		Reserve: f.reserve,
		Archive: f.archive,
		Relay:   f.relay,
	})
	return f
}

func (f *fixture) env(sender domain.HumanAddr, funds ...domain.Coin) domain.Env {
	f.height++
	return domain.Env{
		Block:           domain.BlockInfo{Height: f.height, Time: 1_700_000_000 + f.height, ChainID: "test-1"},
		Sender:          sender,
		SentFunds:       funds,
		ContractAddress: contractAddr,
	}
}

func (f *fixture) execute(sender domain.HumanAddr, msg string, funds ...domain.Coin) (*Response, error) {
	f.t.Helper()
	return f.contract.Execute(context.Background(), f.env(sender, funds...), []byte(msg))
}

func (f *fixture) mustExecute(sender domain.HumanAddr, msg string, funds ...domain.Coin) *Response {
	f.t.Helper()
	resp, err := f.execute(sender, msg, funds...)
	require.NoError(f.t, err)
	return resp
}

func (f *fixture) query(msg string) map[string]json.RawMessage {
	f.t.Helper()
	raw, err := f.contract.Query(context.Background(), []byte(msg))
	require.NoError(f.t, err)
	var out map[string]json.RawMessage
	require.NoError(f.t, json.Unmarshal(raw, &out))
	return out
}

func (f *fixture) setKey(addr domain.HumanAddr, key string) {
	f.t.Helper()
	f.mustExecute(addr, fmt.Sprintf(`{"set_viewing_key":{"key":%q}}`, key))
}

func (f *fixture) balance(addr domain.HumanAddr) domain.Amount {
	f.t.Helper()
	key := "key-" + string(addr)
	f.setKey(addr, key)
	out := f.query(fmt.Sprintf(`{"balance":{"address":%q,"key":%q}}`, addr, key))
	require.Contains(f.t, out, "balance")
	var ans struct {
		Amount domain.Amount `json:"amount"`
	}
	require.NoError(f.t, json.Unmarshal(out["balance"], &ans))
	return ans.Amount
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"transfer", `{"transfer":{"recipient":"x","amount":"5"}}`, "transfer", false},
		{"empty body", `{"deposit":{}}`, "deposit", false},
		{"null body", `{"deposit":null}`, "deposit", false},
		{"unknown", `{"steal":{}}`, "", true},
		{"two variants", `{"deposit":{},"burn":{"amount":"1"}}`, "", true},
		{"not an object", `"transfer"`, "", true},
		{"bad amount", `{"burn":{"amount":5}}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Name())
		})
	}
}

func TestDecodeCommand_AllNamesRegistered(t *testing.T) {
	for name, ctor := range commands {
		assert.Equal(t, name, ctor().Name())
	}
	for name, ctor := range queries {
		assert.Equal(t, name, ctor().Name())
	}
}

func TestExecute_Transfer(t *testing.T) {
	f := newFixture(t)

	resp := f.mustExecute(alice, fmt.Sprintf(`{"transfer":{"recipient":%q,"amount":"300","memo":"rent"}}`, bob))
	assert.JSONEq(t, `{"transfer":{"status":"success"}}`, string(resp.Data))
	assert.Empty(t, resp.Messages)

	assert.Equal(t, domain.NewAmount(700), f.balance(alice))
	assert.Equal(t, domain.NewAmount(300), f.balance(bob))
}

func TestExecute_FailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	before := f.backend.Len()

	_, err := f.execute(alice, fmt.Sprintf(`{"transfer":{"recipient":%q,"amount":"1001"}}`, bob))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = f.execute(alice, fmt.Sprintf(`{"batch_transfer":{"actions":[
		{"recipient":%q,"amount":"600"},
		{"recipient":%q,"amount":"600"}]}}`, bob, carol))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, before, f.backend.Len())
	assert.Empty(t, f.relay.msgs)
}

func TestExecute_StatusGating(t *testing.T) {
	f := newFixture(t)
	f.reserve.SetBalance(contractAddr, "ughm", domain.NewAmount(1000))
	transfer := fmt.Sprintf(`{"transfer":{"recipient":%q,"amount":"1"}}`, bob)

	_, err := f.execute(alice, `{"set_contract_status":{"level":"stop_all"}}`)
	require.ErrorIs(t, err, ledger.ErrNotAuthorized)

	f.mustExecute(admin, `{"set_contract_status":{"level":"stop_all"}}`)
	_, err = f.execute(alice, transfer)
	assert.ErrorIs(t, err, ledger.ErrContractStopped)
	_, err = f.execute(alice, `{"redeem":{"amount":"10"}}`)
	assert.ErrorIs(t, err, ledger.ErrContractStopped)

	f.mustExecute(admin, `{"set_contract_status":{"level":"stop_all_but_redeems"}}`)
	_, err = f.execute(alice, transfer)
	assert.ErrorIs(t, err, ledger.ErrContractStopped)
	resp := f.mustExecute(alice, `{"redeem":{"amount":"10"}}`)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "bank_send", resp.Messages[0].MessageKind())

	out := f.query(`{"contract_status":{}}`)
	assert.JSONEq(t, `{"status":"stop_all_but_redeems"}`, string(out["contract_status"]))

	f.mustExecute(admin, `{"set_contract_status":{"level":"normal_run"}}`)
	f.mustExecute(alice, transfer)
}

func TestExecute_SendRelaysCallbackAndArchives(t *testing.T) {
	f := newFixture(t)
	f.mustExecute(bob, `{"register_receive":{"code_hash":"bob-hash"}}`)

	resp := f.mustExecute(alice, fmt.Sprintf(`{"send":{"recipient":%q,"amount":"50","msg":"aGk="}}`, bob))
	require.Len(t, resp.Messages, 1)
	cb, ok := resp.Messages[0].(domain.ReceiveCallback)
	require.True(t, ok)
	assert.Equal(t, bob, cb.ContractAddr)
	assert.Equal(t, "bob-hash", cb.CodeHash)
	assert.Equal(t, alice, cb.Receive.Sender)
	assert.Equal(t, alice, cb.Receive.From)
	assert.Equal(t, []byte("hi"), cb.Receive.Msg)

	require.Len(t, f.relay.msgs, 1)
	assert.Equal(t, "receive_callback", f.relay.msgs[0].MessageKind())

	// genesis wrote record 1; the send is record 2
	tx, err := f.archive.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, domain.TxKindTransfer, tx.Action.Kind)
	assert.Equal(t, domain.NewAmount(50), tx.Coins.Amount)
}

func TestExecute_ArchiveFailureDoesNotFailCall(t *testing.T) {
	backend := memory.NewKVStore()
	_, err := Instantiate(context.Background(), backend, testGenesis(), nil, domain.BlockInfo{Height: 1})
	require.NoError(t, err)

	c := New(backend, Options{Archive: failingArchive{memory.NewTxArchive()}})
	env := domain.Env{Block: domain.BlockInfo{Height: 2}, Sender: alice, ContractAddress: contractAddr}
	_, err = c.Execute(context.Background(), env, []byte(fmt.Sprintf(`{"transfer":{"recipient":%q,"amount":"1"}}`, bob)))
	require.NoError(t, err)
}

func TestExecute_AllowanceAnswers(t *testing.T) {
	f := newFixture(t)

	resp := f.mustExecute(alice, fmt.Sprintf(`{"increase_allowance":{"spender":%q,"amount":"100","expiration":50}}`, bob))
	assert.JSONEq(t, fmt.Sprintf(`{"increase_allowance":{"owner":%q,"spender":%q,"allowance":"100","expiration":50}}`, alice, bob), string(resp.Data))

	f.mustExecute(bob, fmt.Sprintf(`{"transfer_from":{"owner":%q,"recipient":%q,"amount":"40"}}`, alice, carol))
	resp = f.mustExecute(alice, fmt.Sprintf(`{"decrease_allowance":{"spender":%q,"amount":"10"}}`, bob))
	assert.JSONEq(t, fmt.Sprintf(`{"decrease_allowance":{"owner":%q,"spender":%q,"allowance":"50","expiration":50}}`, alice, bob), string(resp.Data))

	assert.Equal(t, domain.NewAmount(40), f.balance(carol))
}

func TestExecute_CreateViewingKey(t *testing.T) {
	f := newFixture(t)

	resp := f.mustExecute(alice, `{"create_viewing_key":{"entropy":"dice"}}`)
	var ans struct {
		CreateViewingKey struct {
			Key string `json:"key"`
		} `json:"create_viewing_key"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &ans))
	key := ans.CreateViewingKey.Key
	require.True(t, strings.HasPrefix(key, "api_key_"))

	out := f.query(fmt.Sprintf(`{"balance":{"address":%q,"key":%q}}`, alice, key))
	assert.JSONEq(t, `{"amount":"1000"}`, string(out["balance"]))
}

func TestQuery_ViewingKeyError(t *testing.T) {
	f := newFixture(t)
	f.setKey(alice, "right")

	wantErr := fmt.Sprintf(`{"msg":%q}`, ledger.ViewingKeyErrorMsg)
	cases := []string{
		fmt.Sprintf(`{"balance":{"address":%q,"key":"wrong"}}`, alice),
		fmt.Sprintf(`{"balance":{"address":%q,"key":"right"}}`, bob),
		fmt.Sprintf(`{"transfer_history":{"address":%q,"key":"wrong","page_size":10}}`, alice),
		fmt.Sprintf(`{"transaction_history":{"address":%q,"key":"wrong","page_size":10}}`, alice),
		fmt.Sprintf(`{"allowance":{"owner":%q,"spender":%q,"key":"wrong"}}`, alice, bob),
	}
	for _, msg := range cases {
		out := f.query(msg)
		require.Contains(t, out, "viewing_key_error", msg)
		assert.JSONEq(t, wantErr, string(out["viewing_key_error"]))
	}
}

func TestQuery_AllowanceEitherParty(t *testing.T) {
	f := newFixture(t)
	f.mustExecute(alice, fmt.Sprintf(`{"increase_allowance":{"spender":%q,"amount":"7"}}`, bob))
	f.setKey(bob, "bob-key")

	out := f.query(fmt.Sprintf(`{"allowance":{"owner":%q,"spender":%q,"key":"bob-key"}}`, alice, bob))
	assert.JSONEq(t, fmt.Sprintf(`{"owner":%q,"spender":%q,"allowance":"7"}`, alice, bob), string(out["allowance"]))
}

func TestQuery_TransactionHistory(t *testing.T) {
	f := newFixture(t)
	f.mustExecute(alice, fmt.Sprintf(`{"transfer":{"recipient":%q,"amount":"1"}}`, bob))
	f.mustExecute(alice, fmt.Sprintf(`{"transfer":{"recipient":%q,"amount":"2"}}`, bob))
	f.setKey(alice, "k")

	out := f.query(fmt.Sprintf(`{"transaction_history":{"address":%q,"key":"k","page_size":2}}`, alice))
	var page ledger.TransactionHistory
	require.NoError(t, json.Unmarshal(out["transaction_history"], &page))
	require.NotNil(t, page.Total)
	assert.Equal(t, uint64(3), *page.Total)
	require.Len(t, page.Txs, 2)
	assert.Equal(t, uint64(3), page.Txs[0].ID)
	assert.Equal(t, uint64(2), page.Txs[1].ID)

	out = f.query(fmt.Sprintf(`{"transfer_history":{"address":%q,"key":"k","page":1,"page_size":1}}`, alice))
	var transfers ledger.TransferHistory
	require.NoError(t, json.Unmarshal(out["transfer_history"], &transfers))
	require.Len(t, transfers.Txs, 1)
	assert.Equal(t, domain.NewAmount(1), transfers.Txs[0].Coins.Amount)
}

func TestQuery_Public(t *testing.T) {
	f := newFixture(t)

	out := f.query(`{"token_info":{}}`)
	assert.JSONEq(t, `{"name":"Ledger Token","symbol":"LGT","decimals":6,"total_supply":"1000"}`, string(out["token_info"]))

	out = f.query(`{"exchange_rate":{}}`)
	assert.JSONEq(t, `{"rate":"1","denom":"SCRT"}`, string(out["exchange_rate"]))

	out = f.query(`{"minters":{}}`)
	assert.JSONEq(t, fmt.Sprintf(`{"minters":[%q]}`, admin), string(out["minters"]))

	_, err := f.contract.Query(context.Background(), []byte(`{"secrets":{}}`))
	assert.ErrorIs(t, err, ledger.ErrInvalidMessage)
}

func TestExecute_MintAndMinterAdmin(t *testing.T) {
	f := newFixture(t)
	mint := fmt.Sprintf(`{"mint":{"recipient":%q,"amount":"5"}}`, carol)

	_, err := f.execute(bob, mint)
	require.ErrorIs(t, err, ledger.ErrNotAMinter)

	f.mustExecute(admin, fmt.Sprintf(`{"add_minters":{"minters":[%q]}}`, bob))
	f.mustExecute(bob, mint)
	assert.Equal(t, domain.NewAmount(5), f.balance(carol))

	out := f.query(`{"token_info":{}}`)
	assert.Contains(t, string(out["token_info"]), `"total_supply":"1005"`)
}

func TestExecute_SettlesBeforeNextCall(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewKVStore()
	_, err := Instantiate(ctx, backend, testGenesis(), nil, domain.BlockInfo{Height: 1})
	require.NoError(t, err)

	reserve := stub.NewReserve()
	c := New(backend, Options{Reserve: reserve, Settler: reserve})

	const workers = 16
	var height atomic.Uint64
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		sender := address.FromSeed(fmt.Sprintf("depositor-%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			env := func(funds ...domain.Coin) domain.Env {
				return domain.Env{
					Block:           domain.BlockInfo{Height: height.Add(1), Time: 1_700_000_000},
					Sender:          sender,
					SentFunds:       funds,
					ContractAddress: contractAddr,
				}
			}

			deposit := env(domain.Coin{Denom: "ughm", Amount: domain.NewAmount(10)})
			if _, err := c.Execute(ctx, deposit, []byte(`{"deposit":{}}`)); err != nil {
				errs <- fmt.Errorf("deposit: %w", err)
				return
			}
			// The deposit is settled before this call can read the reserve.
			if _, err := c.Execute(ctx, env(), []byte(`{"redeem":{"amount":"10"}}`)); err != nil {
				errs <- fmt.Errorf("redeem: %w", err)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	got, err := reserve.Balance(ctx, contractAddr, "ughm")
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "reserve left with %s", got)
}

func TestExecute_FailedCallIsNotSettled(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewKVStore()
	_, err := Instantiate(ctx, backend, testGenesis(), nil, domain.BlockInfo{Height: 1})
	require.NoError(t, err)

	reserve := stub.NewReserve()
	c := New(backend, Options{Reserve: reserve, Settler: reserve})

	env := domain.Env{
		Block:           domain.BlockInfo{Height: 2},
		Sender:          bob,
		SentFunds:       []domain.Coin{{Denom: "uatom", Amount: domain.NewAmount(5)}},
		ContractAddress: contractAddr,
	}
	_, err = c.Execute(ctx, env, []byte(`{"deposit":{}}`))
	require.ErrorIs(t, err, ledger.ErrUnsupportedToken)

	got, err := reserve.Balance(ctx, contractAddr, "uatom")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
