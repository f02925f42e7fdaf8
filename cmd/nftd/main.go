package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"nftledger/config"
	"nftledger/core/state"
	"nftledger/native/nft"
	"nftledger/observability"
	"nftledger/observability/logging"
	"nftledger/rpc"
	"nftledger/storage"
)

const rpcTokenEnv = "NFTLEDGER_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NFTLEDGER_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("nftd", env, cfg.LogFile)

	db, err := openBackend(cfg)
	if err != nil {
		logger.Error("Failed to open storage backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	engine, err := buildEngine(cfg, db, logger)
	if err != nil {
		logger.Error("Failed to initialise ledger engine", slog.Any("error", err))
		os.Exit(1)
	}

	authToken := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	if authToken == "" {
		authToken = cfg.RPCToken
	}

	server := rpc.NewServer(engine, authToken, logger)
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting JSON-RPC server", slog.String("addr", cfg.RPCAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server exited", slog.Any("error", err))
			os.Exit(1)
		}
	}
}

func openBackend(cfg *config.Config) (storage.Database, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "ledger.db"))
	case config.BackendLevelDB:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func buildEngine(cfg *config.Config, db storage.Database, logger *slog.Logger) (*nft.Engine, error) {
	manager := state.NewManager(db)
	engine := nft.NewEngine(manager)
	engine.SetLogger(logger)
	engine.SetEmitter(observability.Metrics().Emitter(observability.LogEmitter(logger, nil)))
	engine.SetApprovalsEnabled(cfg.EnableApprovals)

	byteCost, err := cfg.ByteCost()
	if err != nil {
		return nil, err
	}
	engine.SetStorageCost(byteCost, cfg.StorageCollector)

	meta := nft.ContractMetadata{
		Spec:      cfg.Contract.Spec,
		Name:      cfg.Contract.Name,
		Symbol:    cfg.Contract.Symbol,
		Icon:      cfg.Contract.Icon,
		BaseURI:   cfg.Contract.BaseURI,
		Reference: cfg.Contract.Reference,
	}
	if raw := strings.TrimSpace(cfg.Contract.ReferenceHash); raw != "" {
		hash, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return nil, fmt.Errorf("decode contract reference hash: %w", err)
		}
		meta.ReferenceHash = hash
	}
	// The singleton is written on first start; later boots find it in place.
	if err := engine.InitContractMetadata(meta); err != nil && !errors.Is(err, nft.ErrMetadataInitialized) {
		return nil, err
	}
	return engine, nil
}
