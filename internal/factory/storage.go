// Package factory assembles configured implementations of the service's
// pluggable pieces: the entry store and the tag provider.
package factory

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tsuzuri-app/tsuzuri/internal/config"
	storepkg "github.com/tsuzuri-app/tsuzuri/internal/store"
	"github.com/tsuzuri-app/tsuzuri/internal/store/memstore"
	"github.com/tsuzuri-app/tsuzuri/internal/store/pebblestore"
	"github.com/tsuzuri-app/tsuzuri/internal/store/pgstore"
	"github.com/tsuzuri-app/tsuzuri/internal/store/sqlitestore"
)

// NewStore returns the store selected by cfg.StoreDriver. Local drivers
// create DataDir on first use; ResolveDefaults has already vetted the
// driver name and DSN presence.
func NewStore(cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.StoreDriver {
	case "pebble":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return pebblestore.Open(cfg.PebblePath(), cfg.CacheSize, log)
	case "sqlite":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlitestore.Open(cfg.SQLitePath())
	case "postgres":
		return pgstore.Open(cfg.PostgresDSN)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER: %s", cfg.StoreDriver)
	}
}
