package app

import (
	"log/slog"

	"match_go/internal/infra"
	"match_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Journal *storage.Journal
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, journal).
func (b *Bootstrap) Initialize() error {
	slog.Info("Bootstrapping match engine...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Open Journal (WAL + audit log)
	journal, err := storage.NewJournal(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("Journal initialized")

	return nil
}
