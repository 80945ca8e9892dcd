package app

import (
	"log/slog"

	"deribit_go/internal/infra"
	"deribit_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, installs the logger and opens the store.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("database initialized")

	return nil
}

// Close releases the store handle.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("failed to close storage", slog.Any("error", err))
		}
	}
}
