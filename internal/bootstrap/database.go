package bootstrap

import (
	"fmt"

	"github.com/go-authgate/authcascade/internal/config"
	"github.com/go-authgate/authcascade/internal/store"
)

// initializeDatabase opens the user store for the local driver
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
