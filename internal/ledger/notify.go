package ledger

import (
	"context"

	"token-ledger/internal/domain"
)

// notify appends a receiver callback for recipient. An explicit code hash
// always produces one; otherwise the registered hash is used if present.
// A recipient with neither gets no callback.
func (l *Ledger) notify(ctx context.Context, recipient domain.HumanAddr, codeHash *string, msg domain.ReceiveMsg) error {
	hash := ""
	if codeHash != nil {
		hash = *codeHash
	} else {
		registered, ok, err := l.store.Receivers.CodeHash(ctx, recipient)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		hash = registered
	}

	l.messages = append(l.messages, domain.ReceiveCallback{
		ContractAddr: recipient,
		CodeHash:     hash,
		Receive:      msg,
	})
	return nil
}

// RegisterReceive records the caller's code hash for future callbacks.
func (l *Ledger) RegisterReceive(ctx context.Context, env domain.Env, codeHash string) error {
	if _, err := l.canonical(env.Sender); err != nil {
		return err
	}
	return l.store.Receivers.Register(ctx, env.Sender, codeHash)
}
