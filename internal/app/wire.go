package app

import (
	"fmt"
	"strings"

	"github.com/newthinker/crashscope/internal/cache"
	"github.com/newthinker/crashscope/internal/chart"
	"github.com/newthinker/crashscope/internal/config"
	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/logger"
	"github.com/newthinker/crashscope/internal/metrics"
	"github.com/newthinker/crashscope/internal/provider"
	"github.com/newthinker/crashscope/internal/provider/csvfile"
	"github.com/newthinker/crashscope/internal/provider/yahoo"
	"github.com/newthinker/crashscope/internal/storage/archive"
	"go.uber.org/zap"
)

// Providers returns a registry holding every provider built from cfg
func Providers(cfg config.ProviderConfig, log *zap.Logger) *provider.Registry {
	reg := provider.NewRegistry()

	opts := []yahoo.Option{
		yahoo.WithTimeout(cfg.Timeout),
		yahoo.WithRateLimit(cfg.RateLimit),
		yahoo.WithLogger(log),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, yahoo.WithBaseURL(cfg.BaseURL))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, yahoo.WithUserAgent(cfg.UserAgent))
	}
	reg.Register(yahoo.New(opts...))
	reg.Register(csvfile.New(cfg.CSVDir, log))

	return reg
}

// NewProvider returns the provider named in cfg
func NewProvider(cfg config.ProviderConfig, log *zap.Logger) (provider.Provider, error) {
	reg := Providers(cfg, log)
	p, ok := reg.Get(cfg.Name)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown provider %q, available: %s", cfg.Name, strings.Join(reg.Names(), ", ")))
	}
	return p, nil
}

// New builds a runner with provider, storage, cache and charts taken from
// cfg. reg may be nil.
func New(cfg *config.Config, log *zap.Logger, reg *metrics.Registry, opts ...Option) (*Runner, error) {
	log = logger.OrNop(log)

	p, err := NewProvider(cfg.Provider, log)
	if err != nil {
		return nil, err
	}

	store, err := archive.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	c, err := cache.New(cfg.Cache, store, func(symbol string) string {
		return cfg.Label(symbol).ID
	})
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	base := []Option{WithCache(c), WithLogger(log), WithMetrics(reg)}
	if cfg.Chart.Enabled {
		base = append(base, WithCharts(chart.NewRenderer(store, chart.Options{
			Dir:                    cfg.Chart.Dir,
			LabelThreshold:         cfg.Analysis.LabelThreshold,
			RecoveryLabelThreshold: cfg.Analysis.RecoveryLabelThreshold,
		}, log)))
	}

	return NewRunner(cfg, p, append(base, opts...)...), nil
}
