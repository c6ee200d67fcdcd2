package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"token-ledger/internal/address"
	"token-ledger/internal/domain"
	"token-ledger/internal/state"
	"token-ledger/internal/storage"
	"token-ledger/internal/storage/memory"
)

var (
	admin    = address.FromSeed("admin")
	minter   = address.FromSeed("minter")
	alice    = address.FromSeed("alice")
	bob      = address.FromSeed("bob")
	carol    = address.FromSeed("carol")
	contract = address.FromSeed("contract")
)

const reserveDenom = "ughm"

type fakeReserve struct {
	balance domain.Amount
}

func (f *fakeReserve) Balance(_ context.Context, _ domain.HumanAddr, _ string) (domain.Amount, error) {
	return f.balance, nil
}

type harness struct {
	t       *testing.T
	backend *memory.KVStore
	reserve *fakeReserve
	height  uint64
	time    uint64
}

func defaultConstants() state.Constants {
	return state.Constants{
		Name:                "Test Token",
		Symbol:              "TKN",
		Decimals:            6,
		Admin:               admin,
		PrngSeed:            []byte("seed"),
		TotalSupplyIsPublic: true,
		DepositIsEnabled:    true,
		RedeemIsEnabled:     true,
		MintIsEnabled:       true,
		BurnIsEnabled:       true,
		ReserveDenom:        reserveDenom,
		ExpirationBasis:     domain.ExpirationByHeight,
	}
}

func newHarness(t *testing.T, mutate ...func(*state.Constants)) *harness {
	t.Helper()
	consts := defaultConstants()
	for _, m := range mutate {
		m(&consts)
	}

	h := &harness{
		t:       t,
		backend: memory.NewKVStore(),
		reserve: &fakeReserve{balance: domain.MaxAmount},
		height:  1,
		time:    1_700_000_000,
	}

	ctx := context.Background()
	overlay := storage.NewOverlay(h.backend)
	st := state.New(overlay)
	require.NoError(t, st.Config.SetConstants(ctx, consts))
	require.NoError(t, st.Config.SetMinters(ctx, []domain.HumanAddr{minter}))
	require.NoError(t, overlay.Flush(ctx))
	return h
}

func (h *harness) env(sender domain.HumanAddr, funds ...domain.Coin) domain.Env {
	return domain.Env{
		Block:           domain.BlockInfo{Height: h.height, Time: h.time, ChainID: "test-1"},
		Sender:          sender,
		SentFunds:       funds,
		ContractAddress: contract,
	}
}

// exec runs fn over a fresh overlay and commits only on success, the way the host does.
func (h *harness) exec(sender domain.HumanAddr, fn func(ctx context.Context, l *Ledger, env domain.Env) error, funds ...domain.Coin) ([]domain.Message, error) {
	h.t.Helper()
	ctx := context.Background()
	overlay := storage.NewOverlay(h.backend)
	l := New(state.New(overlay), Deps{Reserve: h.reserve})

	if err := fn(ctx, l, h.env(sender, funds...)); err != nil {
		overlay.Discard()
		return nil, err
	}
	require.NoError(h.t, overlay.Flush(ctx))
	return l.Messages(), nil
}

func (h *harness) view() *Ledger {
	return New(state.New(storage.NewOverlay(h.backend)), Deps{Reserve: h.reserve})
}

func (h *harness) balance(addr domain.HumanAddr) domain.Amount {
	h.t.Helper()
	v, err := h.view().Balance(context.Background(), addr)
	require.NoError(h.t, err)
	return v
}

func (h *harness) supply() domain.Amount {
	h.t.Helper()
	v, err := h.view().Store().Config.TotalSupply(context.Background())
	require.NoError(h.t, err)
	return v
}

func (h *harness) sumBalances(addrs ...domain.HumanAddr) domain.Amount {
	h.t.Helper()
	sum := domain.ZeroAmount
	for _, a := range addrs {
		var ok bool
		sum, ok = sum.CheckedAdd(h.balance(a))
		require.True(h.t, ok)
	}
	return sum
}

func (h *harness) mint(to domain.HumanAddr, amount uint64) {
	h.t.Helper()
	_, err := h.exec(minter, func(ctx context.Context, l *Ledger, env domain.Env) error {
		return l.Mint(ctx, env, MintAction{Recipient: to, Amount: domain.NewAmount(amount)})
	})
	require.NoError(h.t, err)
}

func (h *harness) setBalance(addr domain.HumanAddr, v domain.Amount) {
	h.t.Helper()
	ctx := context.Background()
	overlay := storage.NewOverlay(h.backend)
	st := state.New(overlay)
	canon, err := address.NewBase58Resolver().Canonicalize(addr)
	require.NoError(h.t, err)
	require.NoError(h.t, st.Balances.SetBalance(ctx, canon, v))
	require.NoError(h.t, overlay.Flush(ctx))
}

func amt(v uint64) domain.Amount {
	return domain.NewAmount(v)
}

func ptr[T any](v T) *T {
	return &v
}
