// Package chart renders drawdown, recovery and price history charts as PDF
// documents and stores them through archive storage.
package chart

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/logger"
	"github.com/newthinker/crashscope/internal/storage/archive"
	"go.uber.org/zap"
)

// Options controls chart output
type Options struct {
	Dir                    string  // storage directory for chart files
	LabelThreshold         float64 // label any drawdown deeper than this
	RecoveryLabelThreshold float64 // label any recovery that rebounded more than this
}

// Renderer draws charts and writes them to storage
type Renderer struct {
	store  archive.Storage
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewRenderer creates a chart renderer
func NewRenderer(store archive.Storage, opts Options, log *zap.Logger) *Renderer {
	return &Renderer{
		store:  store,
		opts:   opts,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Drawdowns renders <dir>/crash_<id>.pdf and returns its location
func (r *Renderer) Drawdowns(ctx context.Context, id string, c DrawdownChart) (string, error) {
	data, err := r.buildDrawdowns(c)
	if err != nil {
		return "", core.WrapError(core.ErrRenderFailed, err)
	}
	return r.save(ctx, "crash_"+id+".pdf", data)
}

// Recoveries renders <dir>/recovery_<id>.pdf and returns its location
func (r *Renderer) Recoveries(ctx context.Context, id string, c RecoveryChart) (string, error) {
	data, err := r.buildRecoveries(c)
	if err != nil {
		return "", core.WrapError(core.ErrRenderFailed, err)
	}
	return r.save(ctx, "recovery_"+id+".pdf", data)
}

// History renders <dir>/history_<id>.pdf and returns its location
func (r *Renderer) History(ctx context.Context, id string, c HistoryChart) (string, error) {
	data, err := r.buildHistory(c)
	if err != nil {
		return "", core.WrapError(core.ErrRenderFailed, err)
	}
	return r.save(ctx, "history_"+id+".pdf", data)
}

func (r *Renderer) save(ctx context.Context, name string, data []byte) (string, error) {
	p := path.Join(r.opts.Dir, name)
	if err := r.store.Write(ctx, p, data); err != nil {
		return "", core.WrapError(core.ErrRenderFailed, fmt.Errorf("writing %s: %w", p, err))
	}

	loc := r.store.Location(p)
	r.logger.Info("chart saved",
		zap.String("path", loc),
		zap.Int("bytes", len(data)))
	return loc, nil
}
