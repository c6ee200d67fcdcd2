package ledger

import (
	"context"
	"fmt"

	"token-ledger/internal/domain"
	"token-ledger/internal/viewingkey"
)

// defaultReserveSymbol is shown by exchange_rate when the token has at least
// as many decimals as the reserve asset.
const defaultReserveSymbol = "SCRT"

// reserveDecimals is the precision of the reserve asset.
const reserveDecimals = 6

// TokenInfo is the public description of the token.
type TokenInfo struct {
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Decimals    uint8          `json:"decimals"`
	TotalSupply *domain.Amount `json:"total_supply"`
}

// TokenConfig reports which features are enabled.
type TokenConfig struct {
	PublicTotalSupply bool `json:"public_total_supply"`
	DepositEnabled    bool `json:"deposit_enabled"`
	RedeemEnabled     bool `json:"redeem_enabled"`
	MintEnabled       bool `json:"mint_enabled"`
	BurnEnabled       bool `json:"burn_enabled"`
}

// ExchangeRate is the conversion between tokens and the reserve asset.
type ExchangeRate struct {
	Rate  domain.Amount `json:"rate"`
	Denom string        `json:"denom"`
}

// TokenInfo returns the token description. Supply is hidden unless public.
func (l *Ledger) TokenInfo(ctx context.Context) (TokenInfo, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return TokenInfo{}, err
	}
	info := TokenInfo{Name: consts.Name, Symbol: consts.Symbol, Decimals: consts.Decimals}
	if consts.TotalSupplyIsPublic {
		supply, err := l.store.Config.TotalSupply(ctx)
		if err != nil {
			return TokenInfo{}, err
		}
		info.TotalSupply = &supply
	}
	return info, nil
}

// TokenConfig returns the feature flags.
func (l *Ledger) TokenConfig(ctx context.Context) (TokenConfig, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return TokenConfig{}, err
	}
	return TokenConfig{
		PublicTotalSupply: consts.TotalSupplyIsPublic,
		DepositEnabled:    consts.DepositIsEnabled,
		RedeemEnabled:     consts.RedeemIsEnabled,
		MintEnabled:       consts.MintIsEnabled,
		BurnEnabled:       consts.BurnIsEnabled,
	}, nil
}

// ContractStatus returns the current contract status.
func (l *Ledger) ContractStatus(ctx context.Context) (domain.ContractStatus, error) {
	return l.store.Config.ContractStatus(ctx)
}

// Minters returns the minter set.
func (l *Ledger) Minters(ctx context.Context) ([]domain.HumanAddr, error) {
	minters, err := l.store.Config.Minters(ctx)
	if err != nil {
		return nil, err
	}
	if minters == nil {
		minters = []domain.HumanAddr{}
	}
	return minters, nil
}

// ExchangeRate returns how many reserve units one token unit is worth, or the
// inverse when the token has fewer decimals than the reserve.
func (l *Ledger) ExchangeRate(ctx context.Context) (ExchangeRate, error) {
	consts, err := l.constants(ctx)
	if err != nil {
		return ExchangeRate{}, err
	}
	if !consts.DepositIsEnabled && !consts.RedeemIsEnabled {
		return ExchangeRate{Rate: domain.ZeroAmount, Denom: ""}, nil
	}

	if consts.Decimals >= reserveDecimals {
		rate, err := pow10(consts.Decimals - reserveDecimals)
		if err != nil {
			return ExchangeRate{}, err
		}
		denom := consts.ReserveSymbol
		if denom == "" {
			denom = defaultReserveSymbol
		}
		return ExchangeRate{Rate: rate, Denom: denom}, nil
	}

	rate, err := pow10(reserveDecimals - consts.Decimals)
	if err != nil {
		return ExchangeRate{}, err
	}
	return ExchangeRate{Rate: rate, Denom: consts.Symbol}, nil
}

func pow10(exp uint8) (domain.Amount, error) {
	if exp > 19 {
		return domain.ZeroAmount, fmt.Errorf("exchange rate exponent %d out of range", exp)
	}
	v := uint64(1)
	for i := uint8(0); i < exp; i++ {
		v *= 10
	}
	return domain.NewAmount(v), nil
}

// Authenticate checks key against the stored key of each candidate, in order,
// and reports whether any matched. A candidate without a stored key is still
// compared, against viewingkey.Dummy, so that a missing key and a wrong key
// take the same time. Neither case is distinguished in the result.
func (l *Ledger) Authenticate(ctx context.Context, candidates []domain.HumanAddr, key viewingkey.Key) (bool, error) {
	for _, human := range candidates {
		account, err := l.canonical(human)
		if err != nil {
			return false, err
		}
		stored, err := l.store.ViewingKeys.Hash(ctx, account)
		if err != nil {
			return false, err
		}
		if stored == nil {
			key.Check(viewingkey.Dummy)
			continue
		}
		if key.Check(stored) {
			return true, nil
		}
	}
	return false, nil
}

// Gate runs query only if key matches one of candidates; otherwise it
// returns ErrViewingKey.
func Gate[T any](ctx context.Context, l *Ledger, candidates []domain.HumanAddr, key viewingkey.Key, query func(context.Context) (T, error)) (T, error) {
	var zero T
	ok, err := l.Authenticate(ctx, candidates, key)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrViewingKey
	}
	return query(ctx)
}

// Balance returns the balance of account.
func (l *Ledger) Balance(ctx context.Context, account domain.HumanAddr) (domain.Amount, error) {
	canon, err := l.canonical(account)
	if err != nil {
		return domain.ZeroAmount, err
	}
	return l.store.Balances.Balance(ctx, canon)
}

// TransferHistory is one page of transfer records and the account's total.
type TransferHistory struct {
	Txs   []domain.Tx `json:"txs"`
	Total *uint64     `json:"total,omitempty"`
}

// TransactionHistory is one page of rich records and the account's total.
type TransactionHistory struct {
	Txs   []domain.RichTx `json:"txs"`
	Total *uint64         `json:"total,omitempty"`
}

// TransferHistory returns a page of account's transfers, newest first.
func (l *Ledger) TransferHistory(ctx context.Context, account domain.HumanAddr, page, pageSize uint32) (TransferHistory, error) {
	canon, err := l.canonical(account)
	if err != nil {
		return TransferHistory{}, err
	}
	txs, total, err := l.store.History.Transfers(ctx, canon, page, pageSize)
	if err != nil {
		return TransferHistory{}, err
	}
	return TransferHistory{Txs: txs, Total: &total}, nil
}

// TransactionHistory returns a page of account's rich records, newest first.
func (l *Ledger) TransactionHistory(ctx context.Context, account domain.HumanAddr, page, pageSize uint32) (TransactionHistory, error) {
	canon, err := l.canonical(account)
	if err != nil {
		return TransactionHistory{}, err
	}
	txs, total, err := l.store.History.Txs(ctx, canon, page, pageSize)
	if err != nil {
		return TransactionHistory{}, err
	}
	return TransactionHistory{Txs: txs, Total: &total}, nil
}

// Allowance returns the stored allowance of spender over owner.
func (l *Ledger) Allowance(ctx context.Context, owner, spender domain.HumanAddr) (AllowanceInfo, error) {
	ownerCanon, err := l.canonical(owner)
	if err != nil {
		return AllowanceInfo{}, err
	}
	spenderCanon, err := l.canonical(spender)
	if err != nil {
		return AllowanceInfo{}, err
	}
	allowance, err := l.store.Allowances.Get(ctx, ownerCanon, spenderCanon)
	if err != nil {
		return AllowanceInfo{}, err
	}
	return AllowanceInfo{
		Owner:      owner,
		Spender:    spender,
		Allowance:  allowance.Amount,
		Expiration: allowance.Expiration,
	}, nil
}
