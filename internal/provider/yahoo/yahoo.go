// Package yahoo fetches daily closing prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/crashscope/internal/core"
	"github.com/newthinker/crashscope/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Yahoo Finance chart endpoint.
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request; the API rejects empty agents.
	DefaultUserAgent = "Mozilla/5.0 (compatible; crashscope/1.0)"
)

// Yahoo implements provider.Provider on top of the chart API
type Yahoo struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures the Yahoo provider.
type Option func(*Yahoo)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(y *Yahoo) {
		if baseURL != "" {
			y.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(y *Yahoo) {
		y.client = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(y *Yahoo) {
		if d > 0 {
			y.client.Timeout = d
		}
	}
}

// WithRateLimit caps requests per second. Zero disables limiting.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(y *Yahoo) {
		if requestsPerSecond <= 0 {
			y.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		y.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(y *Yahoo) {
		if ua != "" {
			y.userAgent = ua
		}
	}
}

// WithLogger sets a logger.
func WithLogger(log *zap.Logger) Option {
	return func(y *Yahoo) {
		if log != nil {
			y.logger = log
		}
	}
}

// New creates a new Yahoo provider
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: DefaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// Fetch downloads daily closes from start until now. Dates are the exchange's
// local calendar day.
func (y *Yahoo) Fetch(ctx context.Context, symbol string, start time.Time) (core.Series, error) {
	if err := provider.ValidateSymbol(symbol); err != nil {
		return core.Series{}, err
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return core.Series{}, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("rate limiter: %w", err))
	}

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(y.now().Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")
	reqURL := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return core.Series{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", y.userAgent)
	req.Header.Set("Accept", "application/json")

	y.logger.Debug("yahoo request",
		zap.String("symbol", symbol),
		zap.Time("start", start))

	resp, err := y.client.Do(req)
	if err != nil {
		return core.Series{}, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	var result chartResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&result)

	if result.Chart.Error != nil {
		if resp.StatusCode == http.StatusNotFound {
			return core.Series{}, core.WrapError(core.ErrSymbolInvalid,
				fmt.Errorf("yahoo: %s", result.Chart.Error.Description))
		}
		return core.Series{}, core.WrapError(core.ErrProviderUnavailable,
			fmt.Errorf("yahoo error %s: %s", result.Chart.Error.Code, result.Chart.Error.Description))
	}
	if resp.StatusCode != http.StatusOK {
		return core.Series{}, core.WrapError(core.ErrProviderUnavailable,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return core.Series{}, core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("decoding response: %w", decodeErr))
	}

	if len(result.Chart.Result) == 0 {
		return core.Series{}, core.WrapError(core.ErrEmptySeries, fmt.Errorf("no data for symbol: %s", symbol))
	}

	obs := toObservations(result.Chart.Result[0])
	if len(obs) == 0 {
		return core.Series{}, core.WrapError(core.ErrEmptySeries, fmt.Errorf("no closing prices for symbol: %s", symbol))
	}

	y.logger.Debug("yahoo response",
		zap.String("symbol", symbol),
		zap.Int("observations", len(obs)))

	return core.Series{Symbol: symbol, Observations: obs}, nil
}

// toObservations pairs timestamps with closes, skipping days without a close
func toObservations(r chartResult) []core.Observation {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	closes := r.Indicators.Quote[0].Close

	obs := make([]core.Observation, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		obs = append(obs, core.Observation{
			Date:  core.Civil(local),
			Price: *closes[i],
		})
	}
	return provider.Normalize(obs)
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
	GMTOffset    int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Close []*float64 `json:"close"`
}
