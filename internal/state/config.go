package state

import (
	"context"
	"errors"
	"fmt"

	"token-ledger/internal/domain"
	"token-ledger/internal/storage"
)

// ErrNotInitialized is returned when the token constants were never written.
var ErrNotInitialized = errors.New("token is not initialized")

// Constants are fixed at instantiation, except Admin which change_admin rewrites.
type Constants struct {
	Name                string                 `json:"name"`
	Symbol              string                 `json:"symbol"`
	Decimals            uint8                  `json:"decimals"`
	Admin               domain.HumanAddr       `json:"admin"`
	PrngSeed            []byte                 `json:"prng_seed"`
	TotalSupplyIsPublic bool                   `json:"total_supply_is_public"`
	DepositIsEnabled    bool                   `json:"deposit_is_enabled"`
	RedeemIsEnabled     bool                   `json:"redeem_is_enabled"`
	MintIsEnabled       bool                   `json:"mint_is_enabled"`
	BurnIsEnabled       bool                   `json:"burn_is_enabled"`
	ReserveDenom        string                 `json:"reserve_denom"`
	ReserveSymbol       string                 `json:"reserve_symbol"`
	ExpirationBasis     domain.ExpirationBasis `json:"expiration_basis"`
}

// Config holds the token constants, total supply, minter set and contract status.
type Config struct {
	kv storage.KVStore
}

// NewConfig creates a config store over kv.
func NewConfig(kv storage.KVStore) *Config {
	return &Config{kv: kv}
}

var (
	keyConstants   = key(nsConfig, []byte("constants"))
	keyTotalSupply = key(nsConfig, []byte("total_supply"))
	keyMinters     = key(nsConfig, []byte("minters"))
	keyStatus      = key(nsConfig, []byte("contract_status"))
)

// Constants returns the token constants. Returns ErrNotInitialized if absent.
func (c *Config) Constants(ctx context.Context) (Constants, error) {
	var consts Constants
	found, err := getJSON(ctx, c.kv, keyConstants, &consts)
	if err != nil {
		return Constants{}, err
	}
	if !found {
		return Constants{}, ErrNotInitialized
	}
	if consts.ExpirationBasis == "" {
		consts.ExpirationBasis = domain.ExpirationByTime
	}
	return consts, nil
}

// IsInitialized reports whether constants were stored.
func (c *Config) IsInitialized(ctx context.Context) (bool, error) {
	raw, err := c.kv.Get(ctx, keyConstants)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

// SetConstants overwrites the token constants.
func (c *Config) SetConstants(ctx context.Context, consts Constants) error {
	if !consts.ExpirationBasis.IsValid() {
		return fmt.Errorf("invalid expiration basis %q", consts.ExpirationBasis)
	}
	return setJSON(ctx, c.kv, keyConstants, consts)
}

// TotalSupply returns the total supply.
func (c *Config) TotalSupply(ctx context.Context) (domain.Amount, error) {
	return getAmount(ctx, c.kv, keyTotalSupply)
}

// SetTotalSupply overwrites the total supply.
func (c *Config) SetTotalSupply(ctx context.Context, v domain.Amount) error {
	return setAmount(ctx, c.kv, keyTotalSupply, v)
}

// Minters returns the minter list in insertion order.
func (c *Config) Minters(ctx context.Context) ([]domain.HumanAddr, error) {
	var minters []domain.HumanAddr
	if _, err := getJSON(ctx, c.kv, keyMinters, &minters); err != nil {
		return nil, err
	}
	return minters, nil
}

// IsMinter reports whether addr is in the minter set.
func (c *Config) IsMinter(ctx context.Context, addr domain.HumanAddr) (bool, error) {
	minters, err := c.Minters(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range minters {
		if m == addr {
			return true, nil
		}
	}
	return false, nil
}

// SetMinters replaces the minter set, dropping duplicates.
func (c *Config) SetMinters(ctx context.Context, minters []domain.HumanAddr) error {
	return setJSON(ctx, c.kv, keyMinters, dedup(nil, minters))
}

// AddMinters appends addresses not yet in the set.
func (c *Config) AddMinters(ctx context.Context, add []domain.HumanAddr) error {
	minters, err := c.Minters(ctx)
	if err != nil {
		return err
	}
	return setJSON(ctx, c.kv, keyMinters, dedup(minters, add))
}

// RemoveMinters removes the given addresses, keeping the order of the rest.
func (c *Config) RemoveMinters(ctx context.Context, remove []domain.HumanAddr) error {
	minters, err := c.Minters(ctx)
	if err != nil {
		return err
	}
	drop := make(map[domain.HumanAddr]struct{}, len(remove))
	for _, m := range remove {
		drop[m] = struct{}{}
	}
	kept := make([]domain.HumanAddr, 0, len(minters))
	for _, m := range minters {
		if _, ok := drop[m]; !ok {
			kept = append(kept, m)
		}
	}
	return setJSON(ctx, c.kv, keyMinters, kept)
}

func dedup(base, add []domain.HumanAddr) []domain.HumanAddr {
	seen := make(map[domain.HumanAddr]struct{}, len(base)+len(add))
	out := make([]domain.HumanAddr, 0, len(base)+len(add))
	for _, list := range [][]domain.HumanAddr{base, add} {
		for _, m := range list {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// ContractStatus returns the current status. Defaults to normal run.
func (c *Config) ContractStatus(ctx context.Context) (domain.ContractStatus, error) {
	raw, err := c.kv.Get(ctx, keyStatus)
	if err != nil {
		return domain.StatusNormalRun, err
	}
	if len(raw) == 0 {
		return domain.StatusNormalRun, nil
	}
	status := domain.ContractStatus(raw[0])
	if !status.IsValid() {
		return domain.StatusNormalRun, fmt.Errorf("invalid stored contract status %d", raw[0])
	}
	return status, nil
}

// SetContractStatus overwrites the contract status.
func (c *Config) SetContractStatus(ctx context.Context, status domain.ContractStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid contract status %d", status)
	}
	return c.kv.Set(ctx, keyStatus, []byte{byte(status)})
}
