// Package app runs the fetch, segment, classify, cache and chart pipeline.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
	"github.com/newthinker/crashscope/internal/cache"
	"github.com/newthinker/crashscope/internal/chart"
	"github.com/newthinker/crashscope/internal/config"
	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/indicator"
	"github.com/newthinker/crashscope/internal/metrics"
	"github.com/newthinker/crashscope/internal/provider"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// movingAveragePeriod is the overlay on the price history chart
const movingAveragePeriod = 200

// Runner analyses symbols end to end
type Runner struct {
	cfg      *config.Config
	provider provider.Provider
	cache    cache.Cache
	charts   *chart.Renderer
	metrics  *metrics.Registry
	logger   *zap.Logger
	start    time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithCache stores ranked drawdown tables after each analysis
func WithCache(c cache.Cache) Option {
	return func(r *Runner) {
		r.cache = c
	}
}

// WithCharts renders charts after each analysis
func WithCharts(c *chart.Renderer) Option {
	return func(r *Runner) {
		r.charts = c
	}
}

// WithMetrics records run, fetch and episode metrics
func WithMetrics(reg *metrics.Registry) Option {
	return func(r *Runner) {
		r.metrics = reg
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithStart overrides the configured start date for every symbol
func WithStart(t time.Time) Option {
	return func(r *Runner) {
		r.start = t
	}
}

// NewRunner creates a runner fetching from p
func NewRunner(cfg *config.Config, p provider.Provider, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		provider: p,
		cache:    cache.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the episode cache the runner saves to
func (r *Runner) Cache() cache.Cache {
	return r.cache
}

// Close releases the cache
func (r *Runner) Close() error {
	return r.cache.Close()
}

// Analyze fetches symbol and returns its ranked drawdowns and recoveries.
// Cache and chart failures are logged and do not fail the analysis.
func (r *Runner) Analyze(ctx context.Context, symbol string) (*Report, error) {
	began := time.Now()
	rep, err := r.analyze(ctx, symbol)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.RecordAnalysis(status, time.Since(began).Seconds())
	}
	return rep, err
}

func (r *Runner) analyze(ctx context.Context, symbol string) (*Report, error) {
	series, err := r.fetch(ctx, symbol, r.startDate)
	if err != nil {
		return nil, err
	}

	seg, err := analysis.SegmentSeries(series)
	if err != nil {
		return nil, err
	}

	opts := r.cfg.Analysis.Options()
	drawdowns, err := seg.ClassifyDrawdowns(opts)
	if err != nil {
		return nil, err
	}
	recoveries, err := seg.ClassifyRecoveries(opts)
	if err != nil {
		return nil, err
	}

	label := r.cfg.Label(symbol)
	first, _ := series.First()
	last, _ := series.Last()
	rep := &Report{
		Symbol:       symbol,
		ID:           label.ID,
		Observations: series.Len(),
		First:        first.Date,
		Last:         last.Date,
		Drawdowns:    make([]DrawdownResult, len(drawdowns)),
		Recoveries:   make([]RecoveryResult, len(recoveries)),
	}
	for i, ep := range drawdowns {
		rep.Drawdowns[i] = DrawdownResult{Episode: ep, Trajectory: seg.AlignDrawdown(ep)}
	}
	window := r.cfg.Analysis.Window()
	for i, ep := range recoveries {
		rep.Recoveries[i] = RecoveryResult{RecoveryEpisode: ep, Trajectory: seg.AlignRecovery(ep, window)}
	}

	if r.metrics != nil {
		r.metrics.SetEpisodes(symbol, "drawdown", countDrawdowns(rep.Drawdowns))
		r.metrics.SetEpisodes(symbol, "recovery", countRecoveries(rep.Recoveries))
	}

	if err := r.cache.Save(ctx, symbol, drawdowns); err != nil {
		r.logger.Warn("failed to save episode cache",
			zap.String("symbol", symbol),
			zap.Error(core.WrapError(core.ErrCacheFailed, err)),
		)
	}

	if r.charts != nil {
		rep.Charts = r.render(ctx, rep, label)
	}

	fields := []zap.Field{
		zap.String("symbol", symbol),
		zap.Int("observations", rep.Observations),
		zap.Int("drawdowns", len(rep.Drawdowns)),
		zap.Int("recoveries", len(rep.Recoveries)),
	}
	if cur, ok := rep.Current(); ok {
		fields = append(fields, zap.Float64("current_decline", cur.LastDecline))
	}
	r.logger.Info("analysis complete", fields...)

	return rep, nil
}

// render draws both episode charts and returns the locations written
func (r *Runner) render(ctx context.Context, rep *Report, label config.SymbolLabel) []string {
	var locations []string

	dd := chart.DrawdownChart{
		Title:    label.Title,
		Subtitle: label.Subtitle,
		XLabel:   label.XLabel,
		Updated:  rep.Last,
	}
	for _, d := range rep.Drawdowns {
		dd.Lines = append(dd.Lines, chart.DrawdownLine{Episode: d.Episode, Trajectory: d.Trajectory})
	}
	if loc, err := r.charts.Drawdowns(ctx, rep.ID, dd); err != nil {
		r.logger.Warn("failed to render drawdown chart", zap.String("symbol", rep.Symbol), zap.Error(err))
	} else {
		locations = append(locations, loc)
	}

	rc := chart.RecoveryChart{
		Title:    label.RecoveryTitle,
		Subtitle: label.RecoverySubtitle,
		XLabel:   label.RecoveryXLabel,
		YLabel:   label.RecoveryYLabel,
		Updated:  rep.Last,
	}
	for _, rv := range rep.Recoveries {
		rc.Lines = append(rc.Lines, chart.RecoveryLine{Episode: rv.RecoveryEpisode, Trajectory: rv.Trajectory})
	}
	if loc, err := r.charts.Recoveries(ctx, rep.ID, rc); err != nil {
		r.logger.Warn("failed to render recovery chart", zap.String("symbol", rep.Symbol), zap.Error(err))
	} else {
		locations = append(locations, loc)
	}

	return locations
}

// AnalyzeAll analyses symbols in order. A failing symbol does not stop the
// others; all failures are returned combined.
func (r *Runner) AnalyzeAll(ctx context.Context, symbols []string) ([]*Report, error) {
	var (
		reports []*Report
		errs    error
	)
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return reports, multierr.Append(errs, err)
		}

		rep, err := r.Analyze(ctx, symbol)
		if err != nil {
			r.logger.Error("analysis failed", zap.String("symbol", symbol), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errs
}

// Simple renders the long-run price history of the configured symbol with
// market events marked, and returns the chart location.
func (r *Runner) Simple(ctx context.Context) (string, error) {
	if r.charts == nil {
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("charts are disabled"))
	}

	symbol := r.cfg.Chart.SimpleSymbol
	series, err := r.fetch(ctx, symbol, func(string) (time.Time, error) {
		if !r.start.IsZero() {
			return r.start, nil
		}
		return r.cfg.Chart.SimpleStartDate()
	})
	if err != nil {
		return "", err
	}

	events := make([]chart.Event, 0, len(r.cfg.Chart.Events))
	for _, ec := range r.cfg.Chart.Events {
		ev, err := chart.ParseEvent(ec.Name, ec.Date, ec.Color)
		if err != nil {
			return "", core.WrapError(core.ErrConfigInvalid, err)
		}
		events = append(events, ev)
	}

	label := r.cfg.Label(symbol)
	return r.charts.History(ctx, label.ID, chart.HistoryChart{
		Title:         symbol + " Historical Performance",
		YLabel:        "Price ($)",
		Series:        series,
		MovingAverage: indicator.MovingAverage(series, movingAveragePeriod),
		Events:        events,
	})
}

func (r *Runner) startDate(symbol string) (time.Time, error) {
	if !r.start.IsZero() {
		return r.start, nil
	}
	return r.cfg.Provider.StartDate(symbol)
}

// fetch resolves the start date and downloads the series
func (r *Runner) fetch(ctx context.Context, symbol string, startOf func(string) (time.Time, error)) (core.Series, error) {
	if err := provider.ValidateSymbol(symbol); err != nil {
		return core.Series{}, err
	}
	start, err := startOf(symbol)
	if err != nil {
		return core.Series{}, core.WrapError(core.ErrConfigInvalid, err)
	}

	began := time.Now()
	series, err := r.provider.Fetch(ctx, symbol, start)
	if r.metrics != nil {
		r.metrics.RecordFetch(r.provider.Name(), time.Since(began).Seconds())
	}
	if err != nil {
		return core.Series{}, err
	}
	if series.IsEmpty() {
		return core.Series{}, core.WrapError(core.ErrEmptySeries, fmt.Errorf("%s returned nothing for %s", r.provider.Name(), symbol))
	}
	if r.metrics != nil {
		r.metrics.SetObservations(symbol, series.Len())
	}

	r.logger.Debug("series fetched",
		zap.String("symbol", symbol),
		zap.String("provider", r.provider.Name()),
		zap.Time("start", start),
		zap.Int("observations", series.Len()),
	)
	for _, o := range series.Tail(5) {
		r.logger.Debug("tail",
			zap.String("symbol", symbol),
			zap.String("date", o.Date.Format("2006-01-02")),
			zap.Float64("close", o.Price),
		)
	}
	return series, nil
}
