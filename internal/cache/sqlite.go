package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
	"github.com/newthinker/crashscope/internal/core"
	_ "modernc.org/sqlite"
)

// SQLite keeps every symbol's table in one episodes table
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database and runs migrations
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("creating %s: %w", dir, err))
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("open sqlite: %w", err))
	}
	// one writer; modernc connections do not share in-memory databases
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("set WAL mode: %w", err))
	}

	c := &SQLite{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("migrate: %w", err))
	}
	return c, nil
}

func (c *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			symbol        TEXT    NOT NULL,
			rank          INTEGER NOT NULL,
			tag           TEXT    NOT NULL,
			current       INTEGER NOT NULL,
			peak_date     TEXT    NOT NULL,
			peak_year     INTEGER NOT NULL,
			peak_price    REAL    NOT NULL,
			trough_date   TEXT    NOT NULL,
			trough_price  REAL    NOT NULL,
			severity      REAL    NOT NULL,
			last_decline  REAL    NOT NULL,
			duration_days INTEGER NOT NULL,
			saved_at      INTEGER NOT NULL,
			PRIMARY KEY (symbol, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_severity ON episodes(symbol, severity)`,
	}

	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Save replaces the symbol's rows in a single transaction
func (c *SQLite) Save(ctx context.Context, symbol string, episodes []analysis.Episode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrCacheFailed, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE symbol = ?`, symbol); err != nil {
		return core.WrapError(core.ErrCacheFailed, fmt.Errorf("delete %s: %w", symbol, err))
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO episodes
		(symbol, rank, tag, current, peak_date, peak_year, peak_price,
		 trough_date, trough_price, severity, last_decline, duration_days, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return core.WrapError(core.ErrCacheFailed, fmt.Errorf("prepare: %w", err))
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, r := range FromEpisodes(symbol, episodes) {
		_, err := stmt.ExecContext(ctx,
			r.Symbol, r.Rank, r.Tag.String(), r.Current,
			r.PeakDate.Format(dateLayout), r.PeakYear, r.PeakPrice,
			r.TroughDate.Format(dateLayout), r.TroughPrice,
			r.Severity, r.LastDecline, r.Duration, now)
		if err != nil {
			return core.WrapError(core.ErrCacheFailed, fmt.Errorf("insert %s rank %d: %w", symbol, r.Rank, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrCacheFailed, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (c *SQLite) Load(ctx context.Context, symbol string) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT
		symbol, rank, tag, current, peak_date, peak_year, peak_price,
		trough_date, trough_price, severity, last_decline, duration_days
		FROM episodes WHERE symbol = ? ORDER BY rank`, symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("query %s: %w", symbol, err))
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r                   Record
			tag                 string
			peakDate, troughDay string
		)
		if err := rows.Scan(&r.Symbol, &r.Rank, &tag, &r.Current, &peakDate, &r.PeakYear, &r.PeakPrice,
			&troughDay, &r.TroughPrice, &r.Severity, &r.LastDecline, &r.Duration); err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("scan: %w", err))
		}
		if r.Tag, err = analysis.ParseTag(tag); err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, err)
		}
		if r.PeakDate, err = time.Parse(dateLayout, peakDate); err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, err)
		}
		if r.TroughDate, err = time.Parse(dateLayout, troughDay); err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}
	return records, nil
}

func (c *SQLite) Close() error {
	return c.db.Close()
}
