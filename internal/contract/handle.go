package contract

import (
	"context"

	"token-ledger/internal/domain"
	"token-ledger/internal/ledger"
	"token-ledger/internal/viewingkey"
)

// Command is one executable message. The set of implementations is closed
// and listed in commands.
type Command interface {
	// Name is the snake_case key the command is encoded under.
	Name() string
	execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error)
}

type statusAnswer struct {
	Status string `json:"status"`
}

var success = statusAnswer{Status: "success"}

var commands = map[string]func() Command{
	"deposit":             func() Command { return &Deposit{} },
	"redeem":              func() Command { return &Redeem{} },
	"transfer":            func() Command { return &Transfer{} },
	"send":                func() Command { return &Send{} },
	"batch_transfer":      func() Command { return &BatchTransfer{} },
	"batch_send":          func() Command { return &BatchSend{} },
	"register_receive":    func() Command { return &RegisterReceive{} },
	"create_viewing_key":  func() Command { return &CreateViewingKey{} },
	"set_viewing_key":     func() Command { return &SetViewingKey{} },
	"increase_allowance":  func() Command { return &IncreaseAllowance{} },
	"decrease_allowance":  func() Command { return &DecreaseAllowance{} },
	"transfer_from":       func() Command { return &TransferFrom{} },
	"send_from":           func() Command { return &SendFrom{} },
	"batch_transfer_from": func() Command { return &BatchTransferFrom{} },
	"batch_send_from":     func() Command { return &BatchSendFrom{} },
	"burn_from":           func() Command { return &BurnFrom{} },
	"batch_burn_from":     func() Command { return &BatchBurnFrom{} },
	"mint":                func() Command { return &Mint{} },
	"batch_mint":          func() Command { return &BatchMint{} },
	"add_minters":         func() Command { return &AddMinters{} },
	"remove_minters":      func() Command { return &RemoveMinters{} },
	"set_minters":         func() Command { return &SetMinters{} },
	"burn":                func() Command { return &Burn{} },
	"change_admin":        func() Command { return &ChangeAdmin{} },
	"set_contract_status": func() Command { return &SetContractStatus{} },
	"revoke_permit":       func() Command { return &RevokePermit{} },
}

// DecodeCommand parses {"<name>": {...}} into its Command.
func DecodeCommand(raw []byte) (Command, error) {
	return decodeVariant(raw, commands, "command")
}

// permitted reports whether name may run under status.
func permitted(status domain.ContractStatus, name string) bool {
	switch status {
	case domain.StatusStopAll:
		return name == "set_contract_status"
	case domain.StatusStopAllButRedeems:
		return name == "set_contract_status" || name == "redeem"
	default:
		return true
	}
}

// Deposit credits the caller for reserve coins sent with the call.
type Deposit struct{}

func (*Deposit) Name() string { return "deposit" }

func (*Deposit) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.Deposit(ctx, env)
}

// Redeem burns tokens and pays out the reserve asset.
type Redeem struct {
	Amount domain.Amount `json:"amount"`
}

func (*Redeem) Name() string { return "redeem" }

func (c *Redeem) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.Redeem(ctx, env, c.Amount)
}

// Transfer moves tokens from the caller.
type Transfer struct {
	ledger.TransferAction
}

func (*Transfer) Name() string { return "transfer" }

func (c *Transfer) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.Transfer(ctx, env, c.Recipient, c.Amount, c.Memo)
}

// Send transfers and notifies the recipient contract.
type Send struct {
	ledger.SendAction
}

func (*Send) Name() string { return "send" }

func (c *Send) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.Send(ctx, env, c.SendAction)
}

// BatchTransfer applies several transfers from the caller, all or none.
type BatchTransfer struct {
	Actions []ledger.TransferAction `json:"actions"`
}

func (*BatchTransfer) Name() string { return "batch_transfer" }

func (c *BatchTransfer) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BatchTransfer(ctx, env, c.Actions)
}

// BatchSend applies several sends from the caller, all or none.
type BatchSend struct {
	Actions []ledger.SendAction `json:"actions"`
}

func (*BatchSend) Name() string { return "batch_send" }

func (c *BatchSend) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BatchSend(ctx, env, c.Actions)
}

// RegisterReceive records the caller's code hash for receiver callbacks.
type RegisterReceive struct {
	CodeHash string `json:"code_hash"`
}

func (*RegisterReceive) Name() string { return "register_receive" }

func (c *RegisterReceive) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.RegisterReceive(ctx, env, c.CodeHash)
}

// CreateViewingKey derives a viewing key for the caller and answers it.
type CreateViewingKey struct {
	Entropy string `json:"entropy"`
}

type createViewingKeyAnswer struct {
	Key viewingkey.Key `json:"key"`
}

func (*CreateViewingKey) Name() string { return "create_viewing_key" }

func (c *CreateViewingKey) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	key, err := l.CreateViewingKey(ctx, env, c.Entropy)
	if err != nil {
		return nil, err
	}
	return createViewingKeyAnswer{Key: key}, nil
}

// SetViewingKey stores a caller-chosen viewing key.
type SetViewingKey struct {
	Key viewingkey.Key `json:"key"`
}

func (*SetViewingKey) Name() string { return "set_viewing_key" }

func (c *SetViewingKey) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.SetViewingKey(ctx, env, c.Key)
}

// IncreaseAllowance grows the allowance of Spender over the caller's tokens.
type IncreaseAllowance struct {
	Spender    domain.HumanAddr `json:"spender"`
	Amount     domain.Amount    `json:"amount"`
	Expiration *uint64          `json:"expiration,omitempty"`
}

func (*IncreaseAllowance) Name() string { return "increase_allowance" }

func (c *IncreaseAllowance) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return l.IncreaseAllowance(ctx, env, c.Spender, c.Amount, c.Expiration)
}

// DecreaseAllowance shrinks the allowance of Spender, never below zero.
type DecreaseAllowance struct {
	Spender    domain.HumanAddr `json:"spender"`
	Amount     domain.Amount    `json:"amount"`
	Expiration *uint64          `json:"expiration,omitempty"`
}

func (*DecreaseAllowance) Name() string { return "decrease_allowance" }

func (c *DecreaseAllowance) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return l.DecreaseAllowance(ctx, env, c.Spender, c.Amount, c.Expiration)
}

// TransferFrom moves tokens of an owner using the caller's allowance.
type TransferFrom struct {
	ledger.TransferFromAction
}

func (*TransferFrom) Name() string { return "transfer_from" }

func (c *TransferFrom) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.TransferFrom(ctx, env, c.TransferFromAction)
}

// SendFrom is TransferFrom with a receiver notification.
type SendFrom struct {
	ledger.SendFromAction
}

func (*SendFrom) Name() string { return "send_from" }

func (c *SendFrom) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.SendFrom(ctx, env, c.SendFromAction)
}

// BatchTransferFrom applies several allowance transfers, all or none.
type BatchTransferFrom struct {
	Actions []ledger.TransferFromAction `json:"actions"`
}

func (*BatchTransferFrom) Name() string { return "batch_transfer_from" }

func (c *BatchTransferFrom) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BatchTransferFrom(ctx, env, c.Actions)
}

// BatchSendFrom applies several allowance sends, all or none.
type BatchSendFrom struct {
	Actions []ledger.SendFromAction `json:"actions"`
}

func (*BatchSendFrom) Name() string { return "batch_send_from" }

func (c *BatchSendFrom) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BatchSendFrom(ctx, env, c.Actions)
}

// BurnFrom destroys tokens of an owner using the caller's allowance.
type BurnFrom struct {
	ledger.BurnFromAction
}

func (*BurnFrom) Name() string { return "burn_from" }

func (c *BurnFrom) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BurnFrom(ctx, env, c.BurnFromAction)
}

// BatchBurnFrom applies several allowance burns, all or none.
type BatchBurnFrom struct {
	Actions []ledger.BurnFromAction `json:"actions"`
}

func (*BatchBurnFrom) Name() string { return "batch_burn_from" }

func (c *BatchBurnFrom) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BatchBurnFrom(ctx, env, c.Actions)
}

// Mint creates tokens for a recipient. Minters only.
type Mint struct {
	ledger.MintAction
}

func (*Mint) Name() string { return "mint" }

func (c *Mint) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.Mint(ctx, env, c.MintAction)
}

// BatchMint creates tokens for several recipients. Minters only.
type BatchMint struct {
	Actions []ledger.MintAction `json:"actions"`
}

func (*BatchMint) Name() string { return "batch_mint" }

func (c *BatchMint) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.BatchMint(ctx, env, c.Actions)
}

// AddMinters extends the minter set. Admin only.
type AddMinters struct {
	Minters []domain.HumanAddr `json:"minters"`
}

func (*AddMinters) Name() string { return "add_minters" }

func (c *AddMinters) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.AddMinters(ctx, env, c.Minters)
}

// RemoveMinters drops addresses from the minter set. Admin only.
type RemoveMinters struct {
	Minters []domain.HumanAddr `json:"minters"`
}

func (*RemoveMinters) Name() string { return "remove_minters" }

func (c *RemoveMinters) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.RemoveMinters(ctx, env, c.Minters)
}

// SetMinters replaces the minter set. Admin only.
type SetMinters struct {
	Minters []domain.HumanAddr `json:"minters"`
}

func (*SetMinters) Name() string { return "set_minters" }

func (c *SetMinters) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.SetMinters(ctx, env, c.Minters)
}

// Burn destroys the caller's tokens.
type Burn struct {
	Amount domain.Amount `json:"amount"`
	Memo   *string       `json:"memo,omitempty"`
}

func (*Burn) Name() string { return "burn" }

func (c *Burn) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.Burn(ctx, env, c.Amount, c.Memo)
}

// ChangeAdmin hands the admin role to Address.
type ChangeAdmin struct {
	Address domain.HumanAddr `json:"address"`
}

func (*ChangeAdmin) Name() string { return "change_admin" }

func (c *ChangeAdmin) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.ChangeAdmin(ctx, env, c.Address)
}

// SetContractStatus changes which commands the contract accepts.
type SetContractStatus struct {
	Level domain.ContractStatus `json:"level"`
}

func (*SetContractStatus) Name() string { return "set_contract_status" }

func (c *SetContractStatus) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.SetContractStatus(ctx, env, c.Level)
}

// RevokePermit marks one of the caller's named permits as revoked.
type RevokePermit struct {
	PermitName string `json:"permit_name"`
}

func (*RevokePermit) Name() string { return "revoke_permit" }

func (c *RevokePermit) execute(ctx context.Context, l *ledger.Ledger, env domain.Env) (interface{}, error) {
	return success, l.RevokePermit(ctx, env, c.PermitName)
}
