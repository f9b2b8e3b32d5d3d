// Package csvfile reads daily price series from local CSV files, one file per
// symbol, for offline analysis.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/provider"
	"go.uber.org/zap"
)

var (
	dateColumns  = []string{"date", "d", "timestamp"}
	priceColumns = []string{"close", "value", "price", "adj close", "adj_close"}
	dateLayouts  = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9._=\-]+`)
)

// Provider reads <dir>/<file>.csv where the file name is derived from the symbol
type Provider struct {
	dir    string
	logger *zap.Logger
}

// New creates a CSV provider rooted at dir
func New(dir string, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{dir: dir, logger: log}
}

func (p *Provider) Name() string {
	return "csv"
}

// FileName maps a symbol to its file name: ^GSPC -> GSPC.csv
func FileName(symbol string) string {
	name := strings.TrimPrefix(symbol, "^")
	return unsafeChars.ReplaceAllString(name, "_") + ".csv"
}

// Fetch reads the symbol's file and keeps observations on or after start
func (p *Provider) Fetch(ctx context.Context, symbol string, start time.Time) (core.Series, error) {
	if err := provider.ValidateSymbol(symbol); err != nil {
		return core.Series{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Series{}, err
	}

	path := filepath.Join(p.dir, FileName(symbol))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Series{}, core.WrapError(core.ErrProviderUnavailable,
				fmt.Errorf("no price file for %s at %s", symbol, path))
		}
		return core.Series{}, core.WrapError(core.ErrProviderUnavailable, err)
	}
	defer f.Close()

	obs, err := Parse(f, start)
	if err != nil {
		return core.Series{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(obs) == 0 {
		return core.Series{}, core.WrapError(core.ErrEmptySeries,
			fmt.Errorf("no observations for %s since %s", symbol, start.Format("2006-01-02")))
	}

	p.logger.Debug("read price file",
		zap.String("symbol", symbol),
		zap.String("path", path),
		zap.Int("observations", len(obs)))

	return core.Series{Symbol: symbol, Observations: obs}, nil
}

// Parse reads a CSV with a header row naming a date and a price column.
// Rows with an empty or "null" price are skipped. The result is sorted with
// duplicate dates collapsed.
func Parse(r io.Reader, start time.Time) ([]core.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, core.WrapError(core.ErrInvalidObservation, fmt.Errorf("reading header: %w", err))
	}

	dateCol := findColumn(header, dateColumns)
	priceCol := findColumn(header, priceColumns)
	if dateCol < 0 || priceCol < 0 {
		return nil, core.WrapError(core.ErrInvalidObservation,
			fmt.Errorf("header %v needs a date and a close/value column", header))
	}

	start = core.Civil(start)
	var obs []core.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidObservation, fmt.Errorf("line %d: %w", line, err))
		}
		if dateCol >= len(rec) || priceCol >= len(rec) {
			return nil, core.WrapError(core.ErrInvalidObservation, fmt.Errorf("line %d: short record", line))
		}

		raw := strings.TrimSpace(rec[priceCol])
		if raw == "" || strings.EqualFold(raw, "null") {
			continue
		}

		date, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidObservation, fmt.Errorf("line %d: %w", line, err))
		}
		if date.Before(start) {
			continue
		}

		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidObservation, fmt.Errorf("line %d: price %q", line, raw))
		}

		obs = append(obs, core.Observation{Date: date, Price: price})
	}

	return provider.Normalize(obs), nil
}

func findColumn(header, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				return i
			}
		}
	}
	return -1
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Civil(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
