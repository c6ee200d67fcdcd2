package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"token-ledger/internal/ledger"
)

// decodeVariant decodes a message of the form {"<name>": {...}} into the
// type registered under name.
func decodeVariant[T any](raw []byte, registry map[string]func() T, kind string) (T, error) {
	var zero T

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return zero, fmt.Errorf("%w: %s must be a JSON object: %v", ledger.ErrInvalidMessage, kind, err)
	}
	if len(outer) != 1 {
		return zero, fmt.Errorf("%w: %s must have exactly one variant, got %d", ledger.ErrInvalidMessage, kind, len(outer))
	}

	for name, body := range outer {
		ctor, ok := registry[name]
		if !ok {
			return zero, fmt.Errorf("%w: unknown %s %q", ledger.ErrInvalidMessage, kind, name)
		}
		v := ctor()
		body = bytes.TrimSpace(body)
		if len(body) == 0 || bytes.Equal(body, []byte("null")) {
			return v, nil
		}
		if err := json.Unmarshal(body, v); err != nil {
			return zero, fmt.Errorf("%w: decode %s: %v", ledger.ErrInvalidMessage, name, err)
		}
		return v, nil
	}
	return zero, nil
}

// encodeAnswer wraps body as {"<name>": body}.
func encodeAnswer(name string, body interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(map[string]interface{}{name: body})
	if err != nil {
		return nil, fmt.Errorf("encode %s answer: %w", name, err)
	}
	return raw, nil
}
