package metastore

import (
	"fmt"
	"os"
	"path/filepath"

	"pidvault/internal/config"
	"pidvault/internal/docs"
)

// NewStoreFromConfig creates a docs.Store based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig, logger docs.Logger, clock docs.Clock) (docs.Store, error) {
	switch cfg.Type {
	case "json", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for json store")
		}
		return NewJSONStore(cfg.Path, logger, clock)
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "metadata.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
