package market

import "context"

// FallbackFetcher asks each fetcher in turn for the tickers the previous
// ones could not provide.
type FallbackFetcher struct {
	fetchers []Fetcher
}

func NewFallbackFetcher(fetchers ...Fetcher) *FallbackFetcher {
	return &FallbackFetcher{fetchers: fetchers}
}

func (m *FallbackFetcher) Name() string {
	if len(m.fetchers) == 1 {
		return m.fetchers[0].Name()
	}
	return "fallback"
}

func (m *FallbackFetcher) Fetch(ctx context.Context, symbols []string) Quotes {
	out := make(Quotes, len(symbols))
	if len(m.fetchers) == 0 {
		return unavailableAll("fallback", symbols, errNoFetchers)
	}
	pending := symbols
	for _, f := range m.fetchers {
		if len(pending) == 0 || ctx.Err() != nil {
			break
		}
		got := f.Fetch(ctx, pending)
		var missing []string
		for _, sym := range pending {
			q, ok := got[sym]
			if !ok {
				q = unavailable(f.Name(), sym, errNotReturned)
			}
			out[sym] = q
			if !q.Available() {
				missing = append(missing, sym)
			}
		}
		pending = missing
	}
	for _, sym := range symbols {
		if _, ok := out[sym]; !ok {
			out[sym] = unavailable("fallback", sym, ctx.Err())
		}
	}
	return out
}
