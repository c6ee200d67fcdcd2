package contract

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/ledger"
	"token-ledger/internal/viewingkey"
)

// Query is one read-only message. The set of implementations is closed and
// listed in queries.
type Query interface {
	Name() string
	run(ctx context.Context, l *ledger.Ledger) (interface{}, error)
}

// authenticated queries answer only when Key matches one of the candidates.
type authenticated interface {
	Query
	credentials() ([]domain.HumanAddr, viewingkey.Key)
}

var queries = map[string]func() Query{
	"token_info":          func() Query { return &TokenInfoQuery{} },
	"token_config":        func() Query { return &TokenConfigQuery{} },
	"contract_status":     func() Query { return &ContractStatusQuery{} },
	"exchange_rate":       func() Query { return &ExchangeRateQuery{} },
	"minters":             func() Query { return &MintersQuery{} },
	"balance":             func() Query { return &BalanceQuery{} },
	"transfer_history":    func() Query { return &TransferHistoryQuery{} },
	"transaction_history": func() Query { return &TransactionHistoryQuery{} },
	"allowance":           func() Query { return &AllowanceQuery{} },
}

// DecodeQuery parses {"<name>": {...}} into its Query.
func DecodeQuery(raw []byte) (Query, error) {
	return decodeVariant(raw, queries, "query")
}

type viewingKeyErrorAnswer struct {
	Msg string `json:"msg"`
}

// TokenInfoQuery answers the token metadata and, when public, the total supply.
type TokenInfoQuery struct{}

func (*TokenInfoQuery) Name() string { return "token_info" }

func (*TokenInfoQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	return l.TokenInfo(ctx)
}

// TokenConfigQuery answers the enabled feature flags.
type TokenConfigQuery struct{}

func (*TokenConfigQuery) Name() string { return "token_config" }

func (*TokenConfigQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	return l.TokenConfig(ctx)
}

// ContractStatusQuery answers the current contract status.
type ContractStatusQuery struct{}

type contractStatusAnswer struct {
	Status domain.ContractStatus `json:"status"`
}

func (*ContractStatusQuery) Name() string { return "contract_status" }

func (*ContractStatusQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	status, err := l.ContractStatus(ctx)
	if err != nil {
		return nil, err
	}
	return contractStatusAnswer{Status: status}, nil
}

// ExchangeRateQuery answers the deposit/redeem rate against the reserve.
type ExchangeRateQuery struct{}

func (*ExchangeRateQuery) Name() string { return "exchange_rate" }

func (*ExchangeRateQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	return l.ExchangeRate(ctx)
}

// MintersQuery lists the current minters.
type MintersQuery struct{}

type mintersAnswer struct {
	Minters []domain.HumanAddr `json:"minters"`
}

func (*MintersQuery) Name() string { return "minters" }

func (*MintersQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	minters, err := l.Minters(ctx)
	if err != nil {
		return nil, err
	}
	return mintersAnswer{Minters: minters}, nil
}

// BalanceQuery answers the balance of Address.
type BalanceQuery struct {
	Address domain.HumanAddr `json:"address"`
	Key     viewingkey.Key   `json:"key"`
}

type balanceAnswer struct {
	Amount domain.Amount `json:"amount"`
}

func (*BalanceQuery) Name() string { return "balance" }

func (q *BalanceQuery) credentials() ([]domain.HumanAddr, viewingkey.Key) {
	return []domain.HumanAddr{q.Address}, q.Key
}

func (q *BalanceQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	amount, err := l.Balance(ctx, q.Address)
	if err != nil {
		return nil, err
	}
	return balanceAnswer{Amount: amount}, nil
}

// TransferHistoryQuery pages the transfers of Address, newest first.
type TransferHistoryQuery struct {
	Address  domain.HumanAddr `json:"address"`
	Key      viewingkey.Key   `json:"key"`
	Page     *uint32          `json:"page,omitempty"`
	PageSize uint32           `json:"page_size"`
}

func (*TransferHistoryQuery) Name() string { return "transfer_history" }

func (q *TransferHistoryQuery) credentials() ([]domain.HumanAddr, viewingkey.Key) {
	return []domain.HumanAddr{q.Address}, q.Key
}

func (q *TransferHistoryQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	return l.TransferHistory(ctx, q.Address, pageOrZero(q.Page), q.PageSize)
}

// TransactionHistoryQuery pages every record of Address, newest first.
type TransactionHistoryQuery struct {
	Address  domain.HumanAddr `json:"address"`
	Key      viewingkey.Key   `json:"key"`
	Page     *uint32          `json:"page,omitempty"`
	PageSize uint32           `json:"page_size"`
}

func (*TransactionHistoryQuery) Name() string { return "transaction_history" }

func (q *TransactionHistoryQuery) credentials() ([]domain.HumanAddr, viewingkey.Key) {
	return []domain.HumanAddr{q.Address}, q.Key
}

func (q *TransactionHistoryQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	return l.TransactionHistory(ctx, q.Address, pageOrZero(q.Page), q.PageSize)
}

// AllowanceQuery accepts the key of either the owner or the spender.
type AllowanceQuery struct {
	Owner   domain.HumanAddr `json:"owner"`
	Spender domain.HumanAddr `json:"spender"`
	Key     viewingkey.Key   `json:"key"`
}

func (*AllowanceQuery) Name() string { return "allowance" }

func (q *AllowanceQuery) credentials() ([]domain.HumanAddr, viewingkey.Key) {
	return []domain.HumanAddr{q.Owner, q.Spender}, q.Key
}

func (q *AllowanceQuery) run(ctx context.Context, l *ledger.Ledger) (interface{}, error) {
	return l.Allowance(ctx, q.Owner, q.Spender)
}

func pageOrZero(p *uint32) uint32 {
	if p == nil {
		return 0
	}
	return *p
}
