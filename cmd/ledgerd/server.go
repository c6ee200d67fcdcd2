package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"token-ledger/internal/contract"
	"token-ledger/internal/domain"
	"token-ledger/internal/ledger"
)

const maxBodyBytes = 1 << 20

type serverConfig struct {
	contractAddr domain.HumanAddr
	chainID      string
	storage      string
	queryRate    float64
	queryBurst   int
	logger       *zap.Logger
}

// server exposes a Contract over HTTP and simulates block metadata:
// height advances by one per execute call, time is wall clock seconds.
type server struct {
	contract *contract.Contract
	cfg      serverConfig
	logger   *zap.Logger
	started  time.Time

	mu       sync.Mutex
	height   uint64
	executed uint64
	failed   uint64

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
}

func newServer(c *contract.Contract, cfg serverConfig) *server {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		contract: c,
		cfg:      cfg,
		logger:   logger,
		started:  time.Now(),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.Handle("POST /query", s.rateLimit(http.HandlerFunc(s.handleQuery)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	return s.withRequestID(mux)
}

type requestIDKey struct{}

func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *server) limiter(key string) *rate.Limiter {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()

	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.queryRate), s.cfg.queryBurst)
		s.limiters[key] = l
	}
	return l
}

// rateLimit bounds queries per client host. Authenticated queries are the
// only way to guess viewing keys, so they are throttled.
func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.queryRate <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter(host).Allow() {
			s.logger.Warn("query rate limit exceeded", zap.String("client", host), zap.String("request_id", requestID(r.Context())))
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// executeRequest is the body of POST /execute.
type executeRequest struct {
	Sender    domain.HumanAddr `json:"sender"`
	SentFunds []domain.Coin    `json:"sent_funds,omitempty"`
	Msg       json.RawMessage  `json:"msg"`
}

func (s *server) nextBlock() domain.BlockInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height++
	return domain.BlockInfo{
		Height:  s.height,
		Time:    uint64(time.Now().Unix()),
		ChainID: s.cfg.chainID,
	}
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Sender == "" || len(req.Msg) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("sender and msg are required"))
		return
	}

	env := domain.Env{
		Block:           s.nextBlock(),
		Sender:          req.Sender,
		SentFunds:       req.SentFunds,
		ContractAddress: s.cfg.contractAddr,
	}

	resp, err := s.contract.Execute(r.Context(), env, req.Msg)

	s.mu.Lock()
	if err != nil {
		s.failed++
	} else {
		s.executed++
	}
	s.mu.Unlock()

	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("execute failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	answer, err := s.contract.Query(r.Context(), body)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("query failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(answer)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string           `json:"status"`
	Uptime      string           `json:"uptime"`
	Storage     string           `json:"storage"`
	Contract    domain.HumanAddr `json:"contract_address"`
	BlockHeight uint64           `json:"block_height"`
	Executed    uint64           `json:"executed_calls"`
	Failed      uint64           `json:"failed_calls"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Storage:     s.cfg.storage,
		Contract:    s.cfg.contractAddr,
		BlockHeight: s.height,
		Executed:    s.executed,
		Failed:      s.failed,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

var clientErrors = []error{
	ledger.ErrFeatureDisabled,
	ledger.ErrNotAuthorized,
	ledger.ErrInsufficientFunds,
	ledger.ErrInsufficientAllowance,
	ledger.ErrInsufficientSupply,
	ledger.ErrBalanceOverflow,
	ledger.ErrSupplyOverflow,
	ledger.ErrUnsupportedToken,
	ledger.ErrNoFundsSent,
	ledger.ErrReserveInsufficient,
	ledger.ErrViewingKey,
	ledger.ErrContractStopped,
	ledger.ErrInvalidAddress,
	ledger.ErrInvalidMessage,
}

// statusFor maps ledger rejections to 400 and everything else to 500.
func statusFor(err error) int {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
