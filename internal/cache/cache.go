package cache

import (
	"context"
	"fmt"

	"github.com/newthinker/crashscope/internal/analysis"
	"github.com/newthinker/crashscope/internal/config"
	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/storage/archive"
)

// Cache stores the latest ranked drawdown table per symbol
type Cache interface {
	// Save replaces the symbol's table with episodes
	Save(ctx context.Context, symbol string, episodes []analysis.Episode) error

	// Load returns the symbol's table in rank order, or nil if none was saved
	Load(ctx context.Context, symbol string) ([]Record, error)

	Close() error
}

// IDFunc maps a symbol to the short id used in file names
type IDFunc func(symbol string) string

// New creates the cache selected by cfg. A disabled cache discards everything.
func New(cfg config.CacheConfig, store archive.Storage, id IDFunc) (Cache, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	switch cfg.Format {
	case "", "csv":
		return NewCSV(store, cfg.Dir, id), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache format %q", cfg.Format))
	}
}

// Nop is a Cache that stores nothing
type Nop struct{}

func (Nop) Save(context.Context, string, []analysis.Episode) error { return nil }
func (Nop) Load(context.Context, string) ([]Record, error) { return nil, nil }
func (Nop) Close() error { return nil }
