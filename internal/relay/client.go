// Package relay delivers outbound ledger messages to a downstream executor
// over a websocket connection.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"token-ledger/internal/domain"
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("relay closed")
	// ErrNotConnected is returned while the connection is being re-established.
	ErrNotConnected = errors.New("relay not connected")
)

// Config configures websocket client behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfig returns default websocket configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Envelope wraps one outbound message on the wire.
type Envelope struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	SentAt  int64           `json:"sent_at"`
	Message json.RawMessage `json:"message"`
}

// Ack is the optional reply the executor sends for an envelope.
type Ack struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Client publishes messages over gorilla/websocket.
type Client struct {
	endpoint string
	config   Config
	logger   *zap.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	published atomic.Uint64
	acked     atomic.Uint64

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient creates a client and connects to the endpoint.
func NewClient(ctx context.Context, endpoint string, config *Config, logger *zap.Logger) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.closed.Load() {
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	return nil
}

// Publish sends each message as its own envelope, in order.
// Delivery stops at the first write failure.
func (c *Client) Publish(ctx context.Context, msgs domain.Messages) error {
	if c.closed.Load() {
		return ErrClosed
	}

	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := domain.MarshalMessage(m)
		if err != nil {
			return fmt.Errorf("encode %s: %w", m.MessageKind(), err)
		}
		env := Envelope{
			ID:      uuid.NewString(),
			Kind:    m.MessageKind(),
			SentAt:  time.Now().Unix(),
			Message: raw,
		}

		if err := c.write(env); err != nil {
			return err
		}
		c.published.Add(1)
		c.logger.Debug("published message", zap.String("id", env.ID), zap.String("kind", env.Kind))
	}
	return nil
}

func (c *Client) write(env Envelope) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write envelope %s: %w", env.ID, err)
	}
	return nil
}

// Published returns the number of envelopes written since start.
func (c *Client) Published() uint64 {
	return c.published.Load()
}

// Acked returns the number of acknowledgements received.
func (c *Client) Acked() uint64 {
	return c.acked.Load()
}

// Close closes the websocket connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop consumes acknowledgements and drives reconnects.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.dropConn(conn)

			if !c.reconnecting.Swap(true) {
				c.logger.Warn("relay connection lost", zap.Error(err))
				c.wg.Add(1)
				go c.reconnect()
			}
			continue
		}

		c.handleMessage(message)
	}
}

// dropConn discards conn if it is still the active connection.
func (c *Client) dropConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == conn {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) handleMessage(message []byte) {
	var ack Ack
	if err := json.Unmarshal(message, &ack); err != nil || ack.ID == "" {
		c.logger.Debug("ignoring relay frame", zap.ByteString("frame", message))
		return
	}
	c.acked.Add(1)
	if ack.Error != "" {
		c.logger.Warn("executor rejected message", zap.String("id", ack.ID), zap.String("error", ack.Error))
	}
}

// reconnect dials with exponential backoff until it succeeds or the client closes.
func (c *Client) reconnect() {
	defer c.wg.Done()
	defer c.reconnecting.Store(false)

	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		err := c.redial()
		if err == nil {
			c.logger.Info("relay reconnected", zap.String("endpoint", c.endpoint))
			return
		}
		if c.closed.Load() {
			return
		}

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
		c.logger.Warn("relay reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
	}
}

// redial runs one connect attempt that Close can interrupt.
func (c *Client) redial() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return c.connect(ctx)
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
