package market

import (
	"context"
	"errors"
	"sync"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
	"golang.org/x/sync/errgroup"
)

const financeGoSource = "finance-go"

// QuoteGetter matches quote.Get.
type QuoteGetter func(symbol string) (*finance.Quote, error)

// FinanceGoFetcher fetches per ticker through the finance-go quote API.
type FinanceGoFetcher struct {
	get         QuoteGetter
	concurrency int
}

func NewFinanceGoFetcher(concurrency int, get QuoteGetter) *FinanceGoFetcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	if get == nil {
		get = quote.Get
	}
	return &FinanceGoFetcher{get: get, concurrency: concurrency}
}

func (f *FinanceGoFetcher) Name() string { return financeGoSource }

func (f *FinanceGoFetcher) Fetch(ctx context.Context, symbols []string) Quotes {
	out := make(Quotes, len(symbols))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			q, err := f.getOne(gctx, sym)
			if err != nil {
				q = unavailable(financeGoSource, sym, err)
			}
			mu.Lock()
			out[sym] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// getOne bounds the library call by ctx; the library itself takes no context.
func (f *FinanceGoFetcher) getOne(ctx context.Context, symbol string) (RawQuote, error) {
	type result struct {
		q   *finance.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := f.get(symbol)
		ch <- result{q, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return RawQuote{}, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		return RawQuote{}, r.err
	}
	if r.q == nil {
		return RawQuote{}, errors.New("quote not found")
	}
	if r.q.RegularMarketPrice == 0 {
		return RawQuote{}, errors.New("missing last price")
	}
	return RawQuote{
		Symbol:    symbol,
		Last:      r.q.RegularMarketPrice,
		PrevClose: r.q.RegularMarketPreviousClose,
		Source:    financeGoSource,
	}, nil
}
