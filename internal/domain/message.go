package domain

import (
	"encoding/json"
	"fmt"
)

// Message is an outbound instruction produced by a successful call.
// The set of implementations is closed: BankSend and ReceiveCallback.
type Message interface {
	MessageKind() string
	isMessage()
}

// BankSend returns reserve coins from the contract to an account.
type BankSend struct {
	FromAddress HumanAddr `json:"from_address"`
	ToAddress   HumanAddr `json:"to_address"`
	Amount      []Coin    `json:"amount"`
}

// MessageKind implements Message.
func (BankSend) MessageKind() string { return "bank_send" }

func (BankSend) isMessage() {}

// ReceiveMsg is the payload delivered to a receiving contract.
type ReceiveMsg struct {
	Sender HumanAddr `json:"sender"`
	From   HumanAddr `json:"from"`
	Amount Amount    `json:"amount"`
	Memo   *string   `json:"memo,omitempty"`
	Msg    []byte    `json:"msg,omitempty"`
}

// ReceiveCallback notifies a recipient contract that it received tokens.
type ReceiveCallback struct {
	ContractAddr HumanAddr  `json:"contract_addr"`
	CodeHash     string     `json:"code_hash"`
	Receive      ReceiveMsg `json:"receive"`
}

// MessageKind implements Message.
func (ReceiveCallback) MessageKind() string { return "receive_callback" }

func (ReceiveCallback) isMessage() {}

// MarshalMessage encodes a message as {"<kind>": {...}}.
func MarshalMessage(m Message) ([]byte, error) {
	switch m.(type) {
	case BankSend, ReceiveCallback:
	default:
		return nil, fmt.Errorf("unknown message type %T", m)
	}
	return json.Marshal(map[string]Message{m.MessageKind(): m})
}

// Messages is a list of outbound messages with a tagged JSON form.
type Messages []Message

// MarshalJSON implements json.Marshaler.
func (ms Messages) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ms))
	for _, m := range ms {
		raw, err := MarshalMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ms *Messages) UnmarshalJSON(data []byte) error {
	var raws []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Messages, 0, len(raws))
	for _, raw := range raws {
		if len(raw) != 1 {
			return fmt.Errorf("message must have exactly one kind, got %d", len(raw))
		}
		for kind, body := range raw {
			switch kind {
			case BankSend{}.MessageKind():
				var m BankSend
				if err := json.Unmarshal(body, &m); err != nil {
					return err
				}
				out = append(out, m)
			case ReceiveCallback{}.MessageKind():
				var m ReceiveCallback
				if err := json.Unmarshal(body, &m); err != nil {
					return err
				}
				out = append(out, m)
			default:
				return fmt.Errorf("unknown message kind %q", kind)
			}
		}
	}
	*ms = out
	return nil
}
