package contract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"token-ledger/internal/address"
	"token-ledger/internal/domain"
	"token-ledger/internal/state"
	"token-ledger/internal/storage"
)

const maxDecimals = 18

var symbolPattern = regexp.MustCompile(`^[A-Z]{3,6}$`)

// initialBalanceMemo is attached to the mint records of genesis balances.
const initialBalanceMemo = "Initial Balance"

// InitialBalance is a genesis allocation.
type InitialBalance struct {
	Address domain.HumanAddr `yaml:"address"`
	Amount  domain.Amount    `yaml:"amount"`
}

// Features are the genesis feature flags.
type Features struct {
	PublicTotalSupply bool `yaml:"public_total_supply"`
	EnableDeposit     bool `yaml:"enable_deposit"`
	EnableRedeem      bool `yaml:"enable_redeem"`
	EnableMint        bool `yaml:"enable_mint"`
	EnableBurn        bool `yaml:"enable_burn"`
}

// Genesis is the token bootstrap read from YAML.
type Genesis struct {
	Name            string                 `yaml:"name"`
	Symbol          string                 `yaml:"symbol"`
	Decimals        uint8                  `yaml:"decimals"`
	Admin           domain.HumanAddr       `yaml:"admin"`
	PrngSeed        string                 `yaml:"prng_seed"`
	Config          Features               `yaml:"config"`
	ReserveDenom    string                 `yaml:"reserve_denom"`
	ReserveSymbol   string                 `yaml:"reserve_symbol"`
	ExpirationBasis domain.ExpirationBasis `yaml:"expiration_basis"`
	Minters         []domain.HumanAddr     `yaml:"minters"`
	InitialBalances []InitialBalance       `yaml:"initial_balances"`
	ChainID         string                 `yaml:"chain_id"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis: %w", err)
	}
	return ParseGenesis(data)
}

// ParseGenesis decodes and validates genesis YAML.
func ParseGenesis(data []byte) (*Genesis, error) {
	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks the token fields.
func (g *Genesis) Validate() error {
	if n := len(g.Name); n < 3 || n > 30 {
		return fmt.Errorf("genesis: name must be 3-30 bytes, got %d", n)
	}
	if !symbolPattern.MatchString(g.Symbol) {
		return fmt.Errorf("genesis: symbol %q must be 3-6 upper-case letters", g.Symbol)
	}
	if g.Decimals > maxDecimals {
		return fmt.Errorf("genesis: decimals must not exceed %d", maxDecimals)
	}
	if g.Admin == "" {
		return fmt.Errorf("genesis: admin is required")
	}
	if g.PrngSeed == "" {
		return fmt.Errorf("genesis: prng_seed is required")
	}
	if (g.Config.EnableDeposit || g.Config.EnableRedeem) && g.ReserveDenom == "" {
		return fmt.Errorf("genesis: reserve_denom is required when deposit or redeem is enabled")
	}
	if g.ExpirationBasis != "" && !g.ExpirationBasis.IsValid() {
		return fmt.Errorf("genesis: unknown expiration_basis %q", g.ExpirationBasis)
	}
	return nil
}

func (g *Genesis) constants() state.Constants {
	seed := sha256.Sum256([]byte(g.PrngSeed))
	basis := g.ExpirationBasis
	if basis == "" {
		basis = domain.ExpirationByTime
	}
	return state.Constants{
		Name:                g.Name,
		Symbol:              g.Symbol,
		Decimals:            g.Decimals,
		Admin:               g.Admin,
		PrngSeed:            seed[:],
		TotalSupplyIsPublic: g.Config.PublicTotalSupply,
		DepositIsEnabled:    g.Config.EnableDeposit,
		RedeemIsEnabled:     g.Config.EnableRedeem,
		MintIsEnabled:       g.Config.EnableMint,
		BurnIsEnabled:       g.Config.EnableBurn,
		ReserveDenom:        g.ReserveDenom,
		ReserveSymbol:       g.ReserveSymbol,
		ExpirationBasis:     basis,
	}
}

// Instantiate writes the genesis state in one batch if backend holds no
// token yet. It reports whether anything was written.
//
// With minting enabled and no minters listed, the admin is the only minter.
func Instantiate(ctx context.Context, backend storage.Backend, g *Genesis, addrs address.Resolver, block domain.BlockInfo) (bool, error) {
	if addrs == nil {
		addrs = address.NewBase58Resolver()
	}

	overlay := storage.NewOverlay(backend)
	st := state.New(overlay)

	initialized, err := st.Config.IsInitialized(ctx)
	if err != nil {
		return false, err
	}
	if initialized {
		return false, nil
	}

	if _, err := addrs.Canonicalize(g.Admin); err != nil {
		return false, fmt.Errorf("genesis admin: %w", err)
	}
	consts := g.constants()
	if err := st.Config.SetConstants(ctx, consts); err != nil {
		return false, err
	}

	minters := g.Minters
	if len(minters) == 0 && consts.MintIsEnabled {
		minters = []domain.HumanAddr{g.Admin}
	}
	for _, m := range minters {
		if _, err := addrs.Canonicalize(m); err != nil {
			return false, fmt.Errorf("genesis minter %s: %w", m, err)
		}
	}
	if err := st.Config.SetMinters(ctx, minters); err != nil {
		return false, err
	}

	adminCanon, _ := addrs.Canonicalize(g.Admin)
	supply := domain.ZeroAmount
	memo := initialBalanceMemo
	for _, ib := range g.InitialBalances {
		canon, err := addrs.Canonicalize(ib.Address)
		if err != nil {
			return false, fmt.Errorf("genesis balance %s: %w", ib.Address, err)
		}

		next, ok := supply.CheckedAdd(ib.Amount)
		if !ok {
			return false, fmt.Errorf("genesis: the sum of all initial balances exceeds the maximum total supply")
		}
		supply = next

		balance, err := st.Balances.Balance(ctx, canon)
		if err != nil {
			return false, err
		}
		// cannot overflow: balance <= supply
		balance, _ = balance.CheckedAdd(ib.Amount)
		if err := st.Balances.SetBalance(ctx, canon, balance); err != nil {
			return false, err
		}

		id, err := st.History.NextID(ctx)
		if err != nil {
			return false, err
		}
		tx := domain.RichTx{
			ID: id,
			Action: domain.TxAction{
				Kind:      domain.TxKindMint,
				Minter:    g.Admin,
				Recipient: ib.Address,
			},
			Coins:       domain.Coin{Denom: consts.Symbol, Amount: ib.Amount},
			Memo:        &memo,
			BlockTime:   block.Time,
			BlockHeight: block.Height,
		}
		if err := st.History.StoreTx(ctx, tx, canon, adminCanon); err != nil {
			return false, err
		}
	}

	if err := st.Config.SetTotalSupply(ctx, supply); err != nil {
		return false, err
	}
	if err := st.Config.SetContractStatus(ctx, domain.StatusNormalRun); err != nil {
		return false, err
	}

	if err := overlay.Flush(ctx); err != nil {
		return false, fmt.Errorf("commit genesis: %w", err)
	}
	return true, nil
}
