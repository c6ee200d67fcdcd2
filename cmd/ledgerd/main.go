// Package main runs the token ledger as an HTTP service:
// - POST /execute, POST /query (ledger calls)
// - GET /health, GET /status
// - /metrics on a separate address
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"token-ledger/internal/address"
	"token-ledger/internal/bank"
	"token-ledger/internal/bank/stub"
	"token-ledger/internal/contract"
	"token-ledger/internal/domain"
	"token-ledger/internal/ledger"
	"token-ledger/internal/observability"
	"token-ledger/internal/relay"
	"token-ledger/internal/storage"
	boltstore "token-ledger/internal/storage/bolt"
	chstore "token-ledger/internal/storage/clickhouse"
	"token-ledger/internal/storage/memory"
	"token-ledger/internal/storage/migrations"
	pgstore "token-ledger/internal/storage/postgres"
)

type config struct {
	listen          string
	metricsAddr     string
	storage         string
	boltPath        string
	postgresDSN     string
	clickhouseDSN   string
	genesis         string
	reserveRPC      string
	contractAddress string
	relayEndpoint   string
	queryRate       float64
	queryBurst      int
	devLog          bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.listen, "listen", envOr("LEDGER_LISTEN", ":8080"), "HTTP API address")
	flag.StringVar(&cfg.metricsAddr, "metrics-addr", envOr("LEDGER_METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	flag.StringVar(&cfg.storage, "storage", envOr("LEDGER_STORAGE", "memory"), "State backend: memory, bolt or postgres")
	flag.StringVar(&cfg.boltPath, "bolt-path", envOr("LEDGER_BOLT_PATH", "ledger.db"), "Bolt database file")
	flag.StringVar(&cfg.postgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	flag.StringVar(&cfg.clickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the history archive (optional)")
	flag.StringVar(&cfg.genesis, "genesis", envOr("LEDGER_GENESIS", "genesis.yaml"), "Genesis YAML file")
	flag.StringVar(&cfg.reserveRPC, "reserve-rpc", os.Getenv("RESERVE_RPC_ENDPOINT"), "Reserve balance JSON-RPC endpoint (optional, stub reserve when empty)")
	flag.StringVar(&cfg.contractAddress, "contract-address", os.Getenv("LEDGER_CONTRACT_ADDRESS"), "Address of this contract (derived when empty)")
	flag.StringVar(&cfg.relayEndpoint, "relay-endpoint", os.Getenv("RELAY_WS_ENDPOINT"), "WebSocket endpoint for outbound messages (optional)")
	flag.Float64Var(&cfg.queryRate, "query-rate", envFloat("LEDGER_QUERY_RATE", 20), "Queries per second allowed per client")
	flag.IntVar(&cfg.queryBurst, "query-burst", envInt("LEDGER_QUERY_BURST", 40), "Query burst per client")
	flag.BoolVar(&cfg.devLog, "dev-log", false, "Human-readable development logging")
	flag.Parse()
	return cfg
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// Load .env file if exists; existing env vars win
	_ = godotenv.Load()

	cfg := parseFlags()

	logger, err := newLogger(cfg.devLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(cfg config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genesis, err := contract.LoadGenesis(cfg.genesis)
	if err != nil {
		return err
	}

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	contractAddr := domain.HumanAddr(cfg.contractAddress)
	if contractAddr == "" {
		contractAddr = address.FromSeed("contract/" + genesis.Symbol)
	}

	start := time.Now()
	written, err := contract.Instantiate(ctx, backend, genesis, nil, domain.BlockInfo{
		Height:  0,
		Time:    uint64(start.Unix()),
		ChainID: genesis.ChainID,
	})
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	logger.Info("token ready",
		zap.String("symbol", genesis.Symbol),
		zap.String("contract", contractAddr.String()),
		zap.Bool("instantiated", written),
		zap.String("storage", cfg.storage),
	)

	reserve, settler := reserveQuerier(cfg, logger)
	opts := contract.Options{
		Reserve: reserve,
		Settler: settler,
		Logger:  logger.Named("contract"),
	}

	if cfg.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse archive: %w", err)
		}
		defer conn.Close()
		opts.Archive = chstore.NewTxArchive(conn)
		logger.Info("history archive enabled")
	}

	if cfg.relayEndpoint != "" {
		client, err := relay.NewClient(ctx, cfg.relayEndpoint, nil, logger.Named("relay"))
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		defer client.Close()
		opts.Relay = client
		logger.Info("relay connected", zap.String("endpoint", cfg.relayEndpoint))
	}

	srv := newServer(contract.New(backend, opts), serverConfig{
		contractAddr: contractAddr,
		chainID:      genesis.ChainID,
		storage:      cfg.storage,
		queryRate:    cfg.queryRate,
		queryBurst:   cfg.queryBurst,
		logger:       logger.Named("http"),
	})

	apiServer := &http.Server{Addr: cfg.listen, Handler: srv.routes(), ReadHeaderTimeout: 10 * time.Second}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	metricsServer := &http.Server{Addr: cfg.metricsAddr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	for _, s := range []*http.Server{apiServer, metricsServer} {
		s := s
		go func() {
			logger.Info("starting HTTP server", zap.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http %s: %w", s.Addr, err)
			}
		}()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	go func() {
		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", zap.Error(err))
	}
	return nil
}

// openBackend creates the configured state backend.
func openBackend(ctx context.Context, cfg config) (storage.Backend, func(), error) {
	switch cfg.storage {
	case "memory":
		return memory.NewKVStore(), func() {}, nil

	case "bolt":
		kv, err := boltstore.Open(cfg.boltPath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { kv.Close() }, nil

	case "postgres":
		if cfg.postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required for postgres storage")
		}
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		return pgstore.NewKVStore(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage %q (want memory, bolt or postgres)", cfg.storage)
	}
}

// reserveQuerier returns the RPC client when configured, otherwise a stub
// reserve that the contract settles after every commit.
func reserveQuerier(cfg config, logger *zap.Logger) (ledger.ReserveQuerier, contract.Settler) {
	if cfg.reserveRPC == "" {
		logger.Warn("no reserve RPC configured, using in-process stub reserve")
		r := stub.NewReserve()
		return r, r
	}
	return bank.NewRPCClient(cfg.reserveRPC), nil
}
