package cache

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"

	"github.com/newthinker/crashscope/internal/analysis"
	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/storage/archive"
)

// CSV writes one crashes_<id>.csv file per symbol through archive storage
type CSV struct {
	store archive.Storage
	dir   string
	id    IDFunc
}

// NewCSV creates a CSV cache writing under dir
func NewCSV(store archive.Storage, dir string, id IDFunc) *CSV {
	return &CSV{store: store, dir: dir, id: id}
}

// Path returns the storage path of the symbol's table
func (c *CSV) Path(symbol string) string {
	return path.Join(c.dir, "crashes_"+c.id(symbol)+".csv")
}

func (c *CSV) Save(ctx context.Context, symbol string, episodes []analysis.Episode) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	for _, r := range FromEpisodes(symbol, episodes) {
		if err := w.Write(r.Row()); err != nil {
			return core.WrapError(core.ErrCacheFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}

	if err := c.store.Write(ctx, c.Path(symbol), buf.Bytes()); err != nil {
		return core.WrapError(core.ErrCacheFailed, fmt.Errorf("writing %s: %w", c.store.Location(c.Path(symbol)), err))
	}
	return nil
}

func (c *CSV) Load(ctx context.Context, symbol string) ([]Record, error) {
	data, err := c.store.Read(ctx, c.Path(symbol))
	if errors.Is(err, archive.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("parsing %s: %w", c.Path(symbol), err))
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		r, err := ParseRow(row)
		if err != nil {
			return nil, core.WrapError(core.ErrCacheFailed, fmt.Errorf("%s line %d: %w", c.Path(symbol), i+2, err))
		}
		records = append(records, r)
	}
	return records, nil
}

func (c *CSV) Close() error {
	return nil
}
