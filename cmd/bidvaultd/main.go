package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bidvault/config"
	"bidvault/core"
	"bidvault/crypto"
	"bidvault/observability/logging"
	"bidvault/rpc"
	"bidvault/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("BIDVAULT_ENV"))
	logger := logging.Setup("bidvaultd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	nodeKey, err := crypto.LoadOrCreateKey(filepath.Join(cfg.DataDir, "node_key.hex"))
	if err != nil {
		logger.Error("failed to load node key", "error", err)
		os.Exit(1)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "backend", cfg.DataBackend, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	node := core.NewNode(db)
	server := rpc.NewServer(node)

	logger.Info("starting RPC server",
		"address", cfg.RPCAddress,
		"backend", cfg.DataBackend,
		"network", cfg.NetworkName,
		"node", nodeKey.PubKey().Address().String(),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", "error", err)
		os.Exit(1)
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendLevelDB:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	case config.BackendBolt:
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "bidvault.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.DataBackend)
	}
}
