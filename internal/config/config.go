package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/crashscope/internal/analysis"
	"github.com/newthinker/crashscope/internal/core"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type Config struct {
	Log      LogConfig              `mapstructure:"log" yaml:"log"`
	Provider ProviderConfig         `mapstructure:"provider" yaml:"provider"`
	Analysis AnalysisConfig         `mapstructure:"analysis" yaml:"analysis"`
	Storage  StorageConfig          `mapstructure:"storage" yaml:"storage"`
	Cache    CacheConfig            `mapstructure:"cache" yaml:"cache"`
	Chart    ChartConfig            `mapstructure:"chart" yaml:"chart"`
	Symbols  map[string]SymbolLabel `mapstructure:"symbols" yaml:"symbols"`
	Server   ServerConfig           `mapstructure:"server" yaml:"server"`
	Metrics  MetricsConfig          `mapstructure:"metrics" yaml:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// ProviderConfig selects and tunes the price data source.
type ProviderConfig struct {
	Name         string            `mapstructure:"name" yaml:"name"` // "yahoo" or "csv"
	BaseURL      string            `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout      time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	RateLimit    float64           `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second, 0 disables
	UserAgent    string            `mapstructure:"user_agent" yaml:"user_agent,omitempty"`
	CSVDir       string            `mapstructure:"csv_dir" yaml:"csv_dir,omitempty"`
	DefaultStart string            `mapstructure:"default_start" yaml:"default_start"`
	StartDates   map[string]string `mapstructure:"start_dates" yaml:"start_dates"`
}

// AnalysisConfig holds episode thresholds and chart label cut-offs.
type AnalysisConfig struct {
	SeverityThreshold      float64      `mapstructure:"severity_threshold" yaml:"severity_threshold"`
	NotableThreshold       float64      `mapstructure:"notable_threshold" yaml:"notable_threshold"`
	NotableCount           int          `mapstructure:"notable_count" yaml:"notable_count"`
	RecoveryRankCount      int          `mapstructure:"recovery_rank_count" yaml:"recovery_rank_count"`
	RecoveryWindow         WindowConfig `mapstructure:"recovery_window" yaml:"recovery_window"`
	LabelThreshold         float64      `mapstructure:"label_threshold" yaml:"label_threshold"`
	RecoveryLabelThreshold float64      `mapstructure:"recovery_label_threshold" yaml:"recovery_label_threshold"`
}

type WindowConfig struct {
	Before int `mapstructure:"before" yaml:"before"`
	After  int `mapstructure:"after" yaml:"after"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type" yaml:"type"`           // "localfs" or "s3"
	Path string   `mapstructure:"path" yaml:"path,omitempty"` // For localfs
	S3   S3Config `mapstructure:"s3" yaml:"s3,omitempty"`     // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// CacheConfig controls where ranked drawdown tables are persisted.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Format     string `mapstructure:"format" yaml:"format"` // "csv" or "sqlite"
	Dir        string `mapstructure:"dir" yaml:"dir"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type ChartConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir          string        `mapstructure:"dir" yaml:"dir"`
	SimpleSymbol string        `mapstructure:"simple_symbol" yaml:"simple_symbol"`
	SimpleStart  string        `mapstructure:"simple_start" yaml:"simple_start"`
	Events       []EventConfig `mapstructure:"events" yaml:"events"`
}

// EventConfig marks a market event on the price history chart.
type EventConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Date  string `mapstructure:"date" yaml:"date"`
	Color string `mapstructure:"color" yaml:"color"`
}

// SymbolLabel holds the file id and chart captions for one symbol.
type SymbolLabel struct {
	ID               string `mapstructure:"id" yaml:"id"`
	Title            string `mapstructure:"title" yaml:"title"`
	Subtitle         string `mapstructure:"subtitle" yaml:"subtitle"`
	XLabel           string `mapstructure:"xlabel" yaml:"xlabel"`
	RecoveryTitle    string `mapstructure:"recovery_title" yaml:"recovery_title"`
	RecoverySubtitle string `mapstructure:"recovery_subtitle" yaml:"recovery_subtitle"`
	RecoveryXLabel   string `mapstructure:"recovery_xlabel" yaml:"recovery_xlabel"`
	RecoveryYLabel   string `mapstructure:"recovery_ylabel" yaml:"recovery_ylabel"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host" yaml:"host"`
	Port   int    `mapstructure:"port" yaml:"port"`
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	startDates, symbols := cfg.Provider.StartDates, cfg.Symbols
	cfg.Provider.StartDates, cfg.Symbols = nil, nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Provider.StartDates = mergeFold(startDates, cfg.Provider.StartDates)
	cfg.Symbols = mergeFold(symbols, cfg.Symbols)

	return cfg, nil
}

// mergeFold overlays loaded on defaults. Keys from the file arrive
// lowercased, so a key matching a default ignoring case replaces that entry
// and keeps the default's spelling.
func mergeFold[V any](defaults, loaded map[string]V) map[string]V {
	out := make(map[string]V, len(defaults)+len(loaded))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range loaded {
		key := k
		for dk := range defaults {
			if strings.EqualFold(dk, k) {
				key = dk
				break
			}
		}
		out[key] = v
	}
	return out
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	opts := analysis.DefaultOptions()
	window := analysis.DefaultWindow()

	return &Config{
		Log: LogConfig{Level: "info"},
		Provider: ProviderConfig{
			Name:         "yahoo",
			Timeout:      30 * time.Second,
			RateLimit:    2,
			DefaultStart: "2010-01-01",
			StartDates: map[string]string{
				"^BVSP": "1996-01-01",
				"^GSPC": "1910-01-01",
				"^IXIC": "1910-01-01",
			},
		},
		Analysis: AnalysisConfig{
			SeverityThreshold:      opts.SeverityThreshold,
			NotableThreshold:       opts.NotableThreshold,
			NotableCount:           opts.NotableCount,
			RecoveryRankCount:      opts.RecoveryRankCount,
			RecoveryWindow:         WindowConfig{Before: window.Before, After: window.After},
			LabelThreshold:         -0.35,
			RecoveryLabelThreshold: 0.5,
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: ".",
		},
		Cache: CacheConfig{
			Enabled:    true,
			Format:     "csv",
			Dir:        "data",
			SQLitePath: "data/crashscope.db",
		},
		Chart: ChartConfig{
			Enabled:      true,
			Dir:          "img",
			SimpleSymbol: "^GSPC",
			SimpleStart:  "1990-01-01",
			Events: []EventConfig{
				{Name: "Dot-com Crash", Date: "2000-03-24", Color: "#ff7f0e"},
				{Name: "2008 Crisis", Date: "2008-09-15", Color: "#d62728"},
				{Name: "COVID-19", Date: "2020-03-16", Color: "#9467bd"},
			},
		},
		Symbols: map[string]SymbolLabel{
			"^GSPC": {
				ID:               "sp500",
				Title:            "S&P 500 Historical Drawdowns",
				Subtitle:         "Comparing current sell-off with major historical crashes",
				XLabel:           "Trading days since peak",
				RecoveryTitle:    "S&P 500 Recovery Patterns",
				RecoverySubtitle: "How markets recover after significant drawdowns",
				RecoveryXLabel:   "Trading days since market bottom",
				RecoveryYLabel:   "Recovery from bottom (%)",
			},
			"^BVSP": {
				ID:               "ibov",
				Title:            "Ibovespa: Major Market Drawdowns Comparison",
				Subtitle:         "Historical perspective on current market conditions",
				XLabel:           "Trading days since peak",
				RecoveryTitle:    "Ibovespa Recovery Patterns",
				RecoverySubtitle: "Market behavior after reaching bottoms",
				RecoveryXLabel:   "Trading days since market bottom",
				RecoveryYLabel:   "Recovery from bottom (%)",
			},
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Provider.Name {
	case "yahoo":
	case "csv":
		if c.Provider.CSVDir == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("provider csv_dir required when provider is csv"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown provider %q", c.Provider.Name))
	}
	if c.Provider.RateLimit < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rate_limit cannot be negative, got %f", c.Provider.RateLimit))
	}
	if _, err := parseDate(c.Provider.DefaultStart); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default_start: %w", err))
	}
	for symbol, date := range c.Provider.StartDates {
		if _, err := parseDate(date); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("start_dates[%s]: %w", symbol, err))
		}
	}

	if err := c.Analysis.Options().Validate(); err != nil {
		return err
	}
	if c.Analysis.RecoveryWindow.Before < 0 || c.Analysis.RecoveryWindow.After < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("recovery_window bounds cannot be negative"))
	}

	switch c.Storage.Type {
	case "localfs":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	if c.Cache.Enabled {
		switch c.Cache.Format {
		case "csv":
		case "sqlite":
			if c.Cache.SQLitePath == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("cache sqlite_path required when format is sqlite"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown cache format %q", c.Cache.Format))
		}
	}

	if _, err := parseDate(c.Chart.SimpleStart); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("simple_start: %w", err))
	}
	for _, ev := range c.Chart.Events {
		if _, err := parseDate(ev.Date); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("event %q: %w", ev.Name, err))
		}
	}

	return nil
}

// Options converts the analysis section into classifier options
func (a AnalysisConfig) Options() analysis.Options {
	return analysis.Options{
		SeverityThreshold: a.SeverityThreshold,
		NotableThreshold:  a.NotableThreshold,
		NotableCount:      a.NotableCount,
		RecoveryRankCount: a.RecoveryRankCount,
	}
}

// Window converts the recovery window into aligner bounds
func (a AnalysisConfig) Window() analysis.Window {
	return analysis.Window{Before: a.RecoveryWindow.Before, After: a.RecoveryWindow.After}
}

// StartDate returns the first date to fetch for symbol
func (p ProviderConfig) StartDate(symbol string) (time.Time, error) {
	if s, ok := lookupFold(p.StartDates, symbol); ok {
		return parseDate(s)
	}
	return parseDate(p.DefaultStart)
}

// SimpleStartDate returns the parsed start of the price history chart
func (c ChartConfig) SimpleStartDate() (time.Time, error) {
	return parseDate(c.SimpleStart)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Label returns the configured captions for symbol, or generated ones for
// symbols without an entry. Missing fields of a configured label are filled
// from the generated defaults.
func (c *Config) Label(symbol string) SymbolLabel {
	gen := generatedLabel(symbol)
	l, ok := lookupFold(c.Symbols, symbol)
	if !ok {
		return gen
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&l.ID, gen.ID)
	fill(&l.Title, gen.Title)
	fill(&l.Subtitle, gen.Subtitle)
	fill(&l.XLabel, gen.XLabel)
	fill(&l.RecoveryTitle, gen.RecoveryTitle)
	fill(&l.RecoverySubtitle, gen.RecoverySubtitle)
	fill(&l.RecoveryXLabel, gen.RecoveryXLabel)
	fill(&l.RecoveryYLabel, gen.RecoveryYLabel)
	return l
}

func generatedLabel(symbol string) SymbolLabel {
	id := strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(symbol), "_"), "_")
	if id == "" {
		id = "series"
	}
	return SymbolLabel{
		ID:               id,
		Title:            symbol + " Historical Drawdowns",
		Subtitle:         "Comparing current sell-off with past drawdowns",
		XLabel:           "Trading days since peak",
		RecoveryTitle:    symbol + " Recovery Patterns",
		RecoverySubtitle: "How the market recovers after significant drawdowns",
		RecoveryXLabel:   "Trading days since market bottom",
		RecoveryYLabel:   "Recovery from bottom (%)",
	}
}

// YAML renders the configuration as a YAML document
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return out, nil
}

// lookupFold finds key ignoring case; viper lowercases map keys read from files
func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
