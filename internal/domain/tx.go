package domain

import (
	"encoding/json"
	"fmt"
)

// TxKind identifies the logical money movement a record describes.
type TxKind string

const (
	TxKindTransfer TxKind = "transfer"
	TxKindMint     TxKind = "mint"
	TxKindBurn     TxKind = "burn"
	TxKindDeposit  TxKind = "deposit"
	TxKindRedeem   TxKind = "redeem"
)

// IsValid checks if the kind is a known value.
func (k TxKind) IsValid() bool {
	switch k {
	case TxKindTransfer, TxKindMint, TxKindBurn, TxKindDeposit, TxKindRedeem:
		return true
	}
	return false
}

// TxAction holds the participants of a record. Which fields are set depends on Kind:
//   - transfer: From, Sender, Recipient
//   - mint: Minter, Recipient
//   - burn: Burner, Owner
//   - deposit, redeem: none
type TxAction struct {
	Kind      TxKind
	From      HumanAddr
	Sender    HumanAddr
	Recipient HumanAddr
	Minter    HumanAddr
	Burner    HumanAddr
	Owner     HumanAddr
}

type txActionTransfer struct {
	From      HumanAddr `json:"from"`
	Sender    HumanAddr `json:"sender"`
	Recipient HumanAddr `json:"recipient"`
}

type txActionMint struct {
	Minter    HumanAddr `json:"minter"`
	Recipient HumanAddr `json:"recipient"`
}

type txActionBurn struct {
	Burner HumanAddr `json:"burner"`
	Owner  HumanAddr `json:"owner"`
}

// MarshalJSON encodes the action as {"<kind>": {...participants}}.
func (a TxAction) MarshalJSON() ([]byte, error) {
	var body interface{}
	switch a.Kind {
	case TxKindTransfer:
		body = txActionTransfer{From: a.From, Sender: a.Sender, Recipient: a.Recipient}
	case TxKindMint:
		body = txActionMint{Minter: a.Minter, Recipient: a.Recipient}
	case TxKindBurn:
		body = txActionBurn{Burner: a.Burner, Owner: a.Owner}
	case TxKindDeposit, TxKindRedeem:
		body = struct{}{}
	default:
		return nil, fmt.Errorf("unknown tx kind %q", a.Kind)
	}
	return json.Marshal(map[TxKind]interface{}{a.Kind: body})
}

// UnmarshalJSON decodes the externally tagged form produced by MarshalJSON.
func (a *TxAction) UnmarshalJSON(data []byte) error {
	var raw map[TxKind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("tx action must have exactly one kind, got %d", len(raw))
	}
	for kind, body := range raw {
		out := TxAction{Kind: kind}
		switch kind {
		case TxKindTransfer:
			var v txActionTransfer
			if err := json.Unmarshal(body, &v); err != nil {
				return err
			}
			out.From, out.Sender, out.Recipient = v.From, v.Sender, v.Recipient
		case TxKindMint:
			var v txActionMint
			if err := json.Unmarshal(body, &v); err != nil {
				return err
			}
			out.Minter, out.Recipient = v.Minter, v.Recipient
		case TxKindBurn:
			var v txActionBurn
			if err := json.Unmarshal(body, &v); err != nil {
				return err
			}
			out.Burner, out.Owner = v.Burner, v.Owner
		case TxKindDeposit, TxKindRedeem:
		default:
			return fmt.Errorf("unknown tx kind %q", kind)
		}
		*a = out
	}
	return nil
}

// RichTx is an entry of the full transaction history.
type RichTx struct {
	ID          uint64   `json:"id"`
	Action      TxAction `json:"action"`
	Coins       Coin     `json:"coins"`
	Memo        *string  `json:"memo,omitempty"`
	BlockTime   uint64   `json:"block_time"`
	BlockHeight uint64   `json:"block_height"`
}

// Tx is an entry of the transfer-only history.
type Tx struct {
	ID          uint64    `json:"id"`
	From        HumanAddr `json:"from"`
	Sender      HumanAddr `json:"sender"`
	Receiver    HumanAddr `json:"receiver"`
	Coins       Coin      `json:"coins"`
	Memo        *string   `json:"memo,omitempty"`
	BlockTime   uint64    `json:"block_time"`
	BlockHeight uint64    `json:"block_height"`
}
