package store

import (
	"fmt"
	"path/filepath"

	"ta-go/internal/config"
	"ta-go/internal/ta"
)

// NewStoreFromConfig creates a Store implementation based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig, accountID string) (ta.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		dbPath := filepath.Join(cfg.DataDir, accountID+".db")
		return NewSQLiteStore(dbPath, nil, nil)
	case "memory":
		return NewSQLiteStore(":memory:", nil, nil)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
