package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-ledger/internal/domain"
	"token-ledger/internal/state"
	"token-ledger/internal/viewingkey"
)

func (h *harness) setKey(addr domain.HumanAddr, key viewingkey.Key) {
	h.t.Helper()
	_, err := h.exec(addr, func(ctx context.Context, l *Ledger, env domain.Env) error {
		return l.SetViewingKey(ctx, env, key)
	})
	require.NoError(h.t, err)
}

func gatedBalance(h *harness, addr domain.HumanAddr, key viewingkey.Key) (domain.Amount, error) {
	l := h.view()
	return Gate(context.Background(), l, []domain.HumanAddr{addr}, key, func(ctx context.Context) (domain.Amount, error) {
		return l.Balance(ctx, addr)
	})
}

func TestGate_Balance(t *testing.T) {
	h := newHarness(t)
	h.mint(alice, 42)
	h.setKey(alice, "alice-key")

	got, err := gatedBalance(h, alice, "alice-key")
	require.NoError(t, err)
	assert.Equal(t, amt(42), got)

	_, wrongErr := gatedBalance(h, alice, "wrong")
	_, missingErr := gatedBalance(h, bob, "alice-key")

	assert.ErrorIs(t, wrongErr, ErrViewingKey)
	assert.ErrorIs(t, missingErr, ErrViewingKey)
	assert.Equal(t, wrongErr.Error(), missingErr.Error(), "failures must be indistinguishable")
}

func TestGate_AllowanceAcceptsEitherParty(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec(alice, increase(bob, amt(9), nil))
	require.NoError(t, err)
	h.setKey(bob, "bob-key")

	l := h.view()
	candidates := []domain.HumanAddr{alice, bob}
	info, err := Gate(context.Background(), l, candidates, "bob-key", func(ctx context.Context) (AllowanceInfo, error) {
		return l.Allowance(ctx, alice, bob)
	})
	require.NoError(t, err)
	assert.Equal(t, amt(9), info.Allowance)

	_, err = Gate(context.Background(), l, candidates, "nope", func(ctx context.Context) (AllowanceInfo, error) {
		return l.Allowance(ctx, alice, bob)
	})
	assert.ErrorIs(t, err, ErrViewingKey)
}

func TestGate_InvalidCandidate(t *testing.T) {
	h := newHarness(t)
	_, err := h.view().Authenticate(context.Background(), []domain.HumanAddr{"bad"}, "k")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestCreateViewingKey(t *testing.T) {
	h := newHarness(t)

	var key viewingkey.Key
	_, err := h.exec(alice, func(ctx context.Context, l *Ledger, env domain.Env) error {
		var err error
		key, err = l.CreateViewingKey(ctx, env, "some entropy")
		return err
	})
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	_, err = gatedBalance(h, alice, key)
	assert.NoError(t, err)
}

// TestGate_TimingIndistinguishable compares the median cost of a wrong key
// against a missing key. The bound is loose; it catches a short circuit, not
// nanosecond differences.
func TestGate_TimingIndistinguishable(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	h := newHarness(t)
	h.setKey(alice, "alice-key")

	measure := func(addr domain.HumanAddr) time.Duration {
		samples := make([]time.Duration, 0, 301)
		for i := 0; i < cap(samples); i++ {
			start := time.Now()
			_, _ = gatedBalance(h, addr, "wrong-key")
			samples = append(samples, time.Since(start))
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		return samples[len(samples)/2]
	}

	wrong := measure(alice)
	missing := measure(bob)
	ratio := float64(wrong) / float64(missing)
	assert.InDelta(t, 1.0, ratio, 0.75, "wrong=%v missing=%v", wrong, missing)
}

func TestExchangeRate(t *testing.T) {
	tests := []struct {
		name     string
		decimals uint8
		deposit  bool
		redeem   bool
		symbol   string
		want     ExchangeRate
	}{
		{"more decimals than reserve", 8, true, true, "", ExchangeRate{Rate: amt(100), Denom: "SCRT"}},
		{"equal decimals", 6, true, false, "", ExchangeRate{Rate: amt(1), Denom: "SCRT"}},
		{"custom reserve symbol", 18, false, true, "GHM", ExchangeRate{Rate: amt(1_000_000_000_000), Denom: "GHM"}},
		{"fewer decimals", 2, true, true, "", ExchangeRate{Rate: amt(10_000), Denom: "TKN"}},
		{"bridging disabled", 8, false, false, "", ExchangeRate{Rate: amt(0), Denom: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(c *state.Constants) {
				c.Decimals = tt.decimals
				c.DepositIsEnabled = tt.deposit
				c.RedeemIsEnabled = tt.redeem
				c.ReserveSymbol = tt.symbol
			})
			got, err := h.view().ExchangeRate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenInfoAndConfig(t *testing.T) {
	h := newHarness(t, func(c *state.Constants) { c.TotalSupplyIsPublic = false })
	h.mint(alice, 5)

	info, err := h.view().TokenInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TokenInfo{Name: "Test Token", Symbol: "TKN", Decimals: 6}, info)

	public := newHarness(t)
	public.mint(alice, 5)
	info, err = public.view().TokenInfo(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info.TotalSupply)
	assert.Equal(t, amt(5), *info.TotalSupply)

	cfg, err := h.view().TokenConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TokenConfig{DepositEnabled: true, RedeemEnabled: true, MintEnabled: true, BurnEnabled: true}, cfg)

	minters, err := h.view().Minters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.HumanAddr{minter}, minters)
}

func TestTransactionHistory_Pagination(t *testing.T) {
	h := newHarness(t)
	h.mint(alice, 100)
	for i := 0; i < 4; i++ {
		_, err := h.exec(alice, transfer(bob, uint64(i+1)))
		require.NoError(t, err)
	}

	page, err := h.view().TransferHistory(context.Background(), bob, 1, 3)
	require.NoError(t, err)
	require.Len(t, page.Txs, 1)
	assert.Equal(t, amt(1), page.Txs[0].Coins.Amount)
	assert.Equal(t, uint64(4), *page.Total)

	page, err = h.view().TransferHistory(context.Background(), bob, 0, 3)
	require.NoError(t, err)
	require.Len(t, page.Txs, 3)
	assert.Equal(t, amt(4), page.Txs[0].Coins.Amount)
}
