package market

import (
	"context"
	"errors"
	"fmt"
)

// RawQuote is one provider observation for a ticker. Err set means the
// ticker is unavailable for this fetch.
type RawQuote struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	PrevClose float64 `json:"prev_close"`
	Source    string  `json:"source"`
	Err       error   `json:"-"`
}

func (q RawQuote) Available() bool { return q.Err == nil }

// Quotes is keyed by ticker symbol.
type Quotes map[string]RawQuote

// Fetcher abstracts a market-data provider. Fetch must return an entry for
// every requested symbol and must not fail as a whole: provider errors are
// reported per symbol through RawQuote.Err.
//
//go:generate mockgen -package=market -destination=mock_fetcher_test.go -source=types.go Fetcher
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) Quotes
}

// ProviderError records why a ticker could not be fetched.
type ProviderError struct {
	Source string
	Symbol string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func unavailable(source, symbol string, err error) RawQuote {
	return RawQuote{Symbol: symbol, Source: source, Err: &ProviderError{Source: source, Symbol: symbol, Err: err}}
}

func unavailableAll(source string, symbols []string, err error) Quotes {
	out := make(Quotes, len(symbols))
	for _, sym := range symbols {
		out[sym] = unavailable(source, sym, err)
	}
	return out
}

var (
	errNoFetchers  = errors.New("no fetchers configured")
	errNotReturned = errors.New("fetcher returned no entry")
)
