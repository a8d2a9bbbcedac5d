package market

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

const chartSource = "yahoo-chart"

// ChartFetcher requests one Yahoo chart document per ticker.
type ChartFetcher struct {
	yahooClient
	concurrency int
}

type chartResp struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	PreviousClose      *float64 `json:"previousClose"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func NewChartFetcher(concurrency int, options ...Option) *ChartFetcher {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ChartFetcher{yahooClient: newYahooClient(options), concurrency: concurrency}
}

func (f *ChartFetcher) Name() string { return chartSource }

func (f *ChartFetcher) Fetch(ctx context.Context, symbols []string) Quotes {
	out := make(Quotes, len(symbols))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			q, err := f.getOne(gctx, sym)
			if err != nil {
				q = unavailable(chartSource, sym, err)
			}
			mu.Lock()
			out[sym] = q
			mu.Unlock()
			// per-ticker failures never cancel the group
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *ChartFetcher) getOne(ctx context.Context, symbol string) (RawQuote, error) {
	u, err := url.Parse(f.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol))
	if err != nil {
		return RawQuote{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("range", "1d")
	q.Set("interval", "1d")
	u.RawQuery = q.Encode()

	var payload chartResp
	if err := f.getJSON(ctx, u.String(), &payload); err != nil {
		return RawQuote{}, err
	}
	if payload.Chart.Error != nil {
		return RawQuote{}, payload.Chart.Error
	}
	if len(payload.Chart.Result) == 0 {
		return RawQuote{}, errors.New("empty chart result")
	}
	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil {
		return RawQuote{}, errors.New("missing regularMarketPrice")
	}
	prev := meta.ChartPreviousClose
	if prev == nil {
		prev = meta.PreviousClose
	}
	if prev == nil {
		return RawQuote{}, errors.New("missing previous close")
	}
	return RawQuote{
		Symbol:    symbol,
		Last:      *meta.RegularMarketPrice,
		PrevClose: *prev,
		Source:    chartSource,
	}, nil
}
