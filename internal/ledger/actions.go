package ledger

import "token-ledger/internal/domain"

// TransferAction is one entry of a batch_transfer.
type TransferAction struct {
	Recipient domain.HumanAddr `json:"recipient"`
	Amount    domain.Amount    `json:"amount"`
	Memo      *string          `json:"memo,omitempty"`
}

// SendAction is a transfer that may notify the recipient contract.
type SendAction struct {
	Recipient         domain.HumanAddr `json:"recipient"`
	RecipientCodeHash *string          `json:"recipient_code_hash,omitempty"`
	Amount            domain.Amount    `json:"amount"`
	Memo              *string          `json:"memo,omitempty"`
	Msg               []byte           `json:"msg,omitempty"`
}

// TransferFromAction moves tokens out of Owner's balance using the caller's allowance.
type TransferFromAction struct {
	Owner     domain.HumanAddr `json:"owner"`
	Recipient domain.HumanAddr `json:"recipient"`
	Amount    domain.Amount    `json:"amount"`
	Memo      *string          `json:"memo,omitempty"`
}

// SendFromAction is a delegated transfer that may notify the recipient contract.
type SendFromAction struct {
	Owner             domain.HumanAddr `json:"owner"`
	Recipient         domain.HumanAddr `json:"recipient"`
	RecipientCodeHash *string          `json:"recipient_code_hash,omitempty"`
	Amount            domain.Amount    `json:"amount"`
	Memo              *string          `json:"memo,omitempty"`
	Msg               []byte           `json:"msg,omitempty"`
}

// MintAction is one entry of a batch_mint.
type MintAction struct {
	Recipient domain.HumanAddr `json:"recipient"`
	Amount    domain.Amount    `json:"amount"`
	Memo      *string          `json:"memo,omitempty"`
}

// BurnFromAction is one entry of a batch_burn_from.
type BurnFromAction struct {
	Owner  domain.HumanAddr `json:"owner"`
	Amount domain.Amount    `json:"amount"`
	Memo   *string          `json:"memo,omitempty"`
}
