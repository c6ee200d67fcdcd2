// Package contract hosts the ledger: it decodes commands and queries,
// enforces the contract status, and commits each call atomically.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"token-ledger/internal/address"
	"token-ledger/internal/domain"
	"token-ledger/internal/ledger"
	"token-ledger/internal/observability"
	"token-ledger/internal/state"
	"token-ledger/internal/storage"
)

// Relay delivers outbound messages after a successful commit.
type Relay interface {
	Publish(ctx context.Context, msgs domain.Messages) error
}

// Settler applies the bank side of a committed call. It runs while the
// contract still holds its call lock, so the next call sees the settled reserve.
type Settler interface {
	Settle(env domain.Env, msgs domain.Messages)
}

// Options configures a Contract. Only Backend-independent services live here.
type Options struct {
	Addresses address.Resolver
	Reserve   ledger.ReserveQuerier
	Settler   Settler           // optional
	Archive   storage.TxArchive // optional
	Relay     Relay             // optional
	Logger    *zap.Logger
}

// Response is the result of an executed command.
type Response struct {
	Data     json.RawMessage `json:"data"`
	Messages domain.Messages `json:"messages"`
}

// Contract executes commands one at a time against a backend.
type Contract struct {
	mu      sync.Mutex
	backend storage.Backend
	deps    ledger.Deps
	settler Settler
	archive storage.TxArchive
	relay   Relay
	logger  *zap.Logger
}

// New creates a contract over backend.
func New(backend storage.Backend, opts Options) *Contract {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var reserve ledger.ReserveQuerier
	if opts.Reserve != nil {
		reserve = timedReserve{opts.Reserve}
	}
	return &Contract{
		backend: backend,
		deps:    ledger.Deps{Addresses: opts.Addresses, Reserve: reserve},
		settler: opts.Settler,
		archive: opts.Archive,
		relay:   opts.Relay,
		logger:  logger,
	}
}

// committed is what a successful call left behind.
type committed struct {
	answer   json.RawMessage
	messages domain.Messages
	txs      []domain.RichTx
	supply   domain.Amount
}

// Execute decodes raw as a command and runs it for env.Sender. On any error
// nothing is written.
func (c *Contract) Execute(ctx context.Context, env domain.Env, raw []byte) (*Response, error) {
	start := time.Now()

	cmd, err := DecodeCommand(raw)
	if err != nil {
		observability.RecordCall("invalid", time.Since(start), err)
		return nil, err
	}

	res, err := c.apply(ctx, env, cmd)
	observability.RecordCall(cmd.Name(), time.Since(start), err)
	if err != nil {
		c.logger.Info("call rejected",
			zap.String("operation", cmd.Name()),
			zap.String("sender", env.Sender.String()),
			zap.Uint64("height", env.Block.Height),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Info("call executed",
		zap.String("operation", cmd.Name()),
		zap.String("sender", env.Sender.String()),
		zap.Uint64("height", env.Block.Height),
		zap.Int("txs", len(res.txs)),
		zap.Int("messages", len(res.messages)),
		zap.Duration("duration", time.Since(start)),
	)

	var lastID uint64
	if n := len(res.txs); n > 0 {
		lastID = res.txs[n-1].ID
	}
	observability.UpdateLedger(res.supply, lastID, env.Block.Height)
	if sc, ok := cmd.(*SetContractStatus); ok {
		observability.RecordStatusChange(sc.Level)
	}

	c.archiveTxs(ctx, res.txs)
	c.deliver(ctx, res.messages)

	return &Response{Data: res.answer, Messages: res.messages}, nil
}

func (c *Contract) apply(ctx context.Context, env domain.Env, cmd Command) (*committed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	overlay := storage.NewOverlay(c.backend)
	st := state.New(overlay)

	status, err := st.Config.ContractStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !permitted(status, cmd.Name()) {
		return nil, fmt.Errorf("%w: %s is not allowed while %s", ledger.ErrContractStopped, cmd.Name(), status)
	}

	l := ledger.New(st, c.deps)
	body, err := cmd.execute(ctx, l, env)
	if err != nil {
		overlay.Discard()
		return nil, err
	}

	answer, err := encodeAnswer(cmd.Name(), body)
	if err != nil {
		overlay.Discard()
		return nil, err
	}
	supply, err := st.Config.TotalSupply(ctx)
	if err != nil {
		overlay.Discard()
		return nil, err
	}

	if err := overlay.Flush(ctx); err != nil {
		observability.RecordCommitError()
		c.logger.Error("commit failed", zap.String("operation", cmd.Name()), zap.Error(err))
		return nil, fmt.Errorf("commit %s: %w", cmd.Name(), err)
	}

	messages := domain.Messages(l.Messages())
	if c.settler != nil {
		c.settler.Settle(env, messages)
	}

	return &committed{
		answer:   answer,
		messages: messages,
		txs:      st.History.Appended(),
		supply:   supply,
	}, nil
}

// archiveTxs copies committed records to the archive. Failures are logged:
// the ledger commit has already happened.
func (c *Contract) archiveTxs(ctx context.Context, txs []domain.RichTx) {
	if c.archive == nil || len(txs) == 0 {
		return
	}
	ptrs := make([]*domain.RichTx, len(txs))
	for i := range txs {
		ptrs[i] = &txs[i]
	}
	err := c.archive.InsertBulk(ctx, ptrs)
	observability.RecordArchive(len(ptrs), err)
	if err != nil {
		c.logger.Warn("archive insert failed",
			zap.Uint64("first_id", txs[0].ID),
			zap.Int("count", len(txs)),
			zap.Error(err),
		)
	}
}

func (c *Contract) deliver(ctx context.Context, msgs domain.Messages) {
	if c.relay == nil || len(msgs) == 0 {
		return
	}
	err := c.relay.Publish(ctx, msgs)
	observability.RecordRelayed(msgs, err)
	if err != nil {
		c.logger.Warn("relay publish failed", zap.Int("messages", len(msgs)), zap.Error(err))
	}
}

// Query decodes raw as a query and answers it from committed state.
// A failed viewing key check is an answer, not an error.
func (c *Contract) Query(ctx context.Context, raw []byte) (json.RawMessage, error) {
	q, err := DecodeQuery(raw)
	if err != nil {
		observability.RecordQuery("invalid", err)
		return nil, err
	}

	view := ledger.New(state.New(storage.NewOverlay(c.backend)), c.deps)

	var body interface{}
	if aq, ok := q.(authenticated); ok {
		candidates, key := aq.credentials()
		body, err = ledger.Gate(ctx, view, candidates, key, func(ctx context.Context) (interface{}, error) {
			return aq.run(ctx, view)
		})
		if errors.Is(err, ledger.ErrViewingKey) {
			observability.RecordGateFailure(q.Name())
			observability.RecordQuery(q.Name(), nil)
			return encodeAnswer("viewing_key_error", viewingKeyErrorAnswer{Msg: ledger.ViewingKeyErrorMsg})
		}
	} else {
		body, err = q.run(ctx, view)
	}

	observability.RecordQuery(q.Name(), err)
	if err != nil {
		return nil, err
	}
	return encodeAnswer(q.Name(), body)
}

// timedReserve records reserve query latency.
type timedReserve struct {
	next ledger.ReserveQuerier
}

func (r timedReserve) Balance(ctx context.Context, account domain.HumanAddr, denom string) (domain.Amount, error) {
	start := time.Now()
	defer func() { observability.RecordReserveLatency(time.Since(start)) }()
	return r.next.Balance(ctx, account, denom)
}
