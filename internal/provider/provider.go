// Package provider defines the source of daily price series.
package provider

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/newthinker/crashscope/internal/core"
)

// Provider fetches a daily closing-price series for a symbol.
//
// Implementations return observations sorted by date with no duplicates.
// Network and upstream failures are reported as core.ErrProviderUnavailable,
// an empty result as core.ErrEmptySeries.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string, start time.Time) (core.Series, error)
}

// validSymbol matches tickers like AAPL, ^GSPC, PETR4.SA, BRK-B, EURUSD=X
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9][A-Za-z0-9=\-]{0,14}(\.[A-Za-z]{1,4})?$`)

// ValidateSymbol checks if a symbol has valid format
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return core.WrapError(core.ErrSymbolInvalid, fmt.Errorf("symbol cannot be empty"))
	}
	if len(symbol) > 20 {
		return core.WrapError(core.ErrSymbolInvalid, fmt.Errorf("symbol too long: %s", symbol))
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrSymbolInvalid, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}
