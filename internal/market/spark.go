package market

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const sparkSource = "yahoo-spark"

// PrevCloseMode selects the reference price for bulk fetches.
type PrevCloseMode string

const (
	// PrevCloseOfficial uses the provider's previous trading-day close.
	PrevCloseOfficial PrevCloseMode = "official"
	// PrevCloseSample uses the sample immediately preceding the latest one.
	PrevCloseSample PrevCloseMode = "sample"
)

func ParsePrevCloseMode(s string) (PrevCloseMode, error) {
	switch m := PrevCloseMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return PrevCloseOfficial, nil
	case PrevCloseOfficial, PrevCloseSample:
		return m, nil
	default:
		return "", fmt.Errorf("invalid prev close mode: %q", s)
	}
}

// SparkFetcher downloads a short close series for every ticker in one request.
type SparkFetcher struct {
	yahooClient
	interval string
	mode     PrevCloseMode
}

type sparkResp struct {
	Spark struct {
		Result []sparkResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"spark"`
}

type sparkResult struct {
	Symbol   string        `json:"symbol"`
	Response []sparkSeries `json:"response"`
}

type sparkSeries struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func NewSparkFetcher(interval string, mode PrevCloseMode, options ...Option) *SparkFetcher {
	if interval == "" {
		interval = "15m"
	}
	if mode == "" {
		mode = PrevCloseOfficial
	}
	return &SparkFetcher{yahooClient: newYahooClient(options), interval: interval, mode: mode}
}

func (f *SparkFetcher) Name() string { return sparkSource }

func (f *SparkFetcher) Fetch(ctx context.Context, symbols []string) Quotes {
	if len(symbols) == 0 {
		return Quotes{}
	}
	series, err := f.download(ctx, symbols)
	if err != nil {
		return unavailableAll(sparkSource, symbols, err)
	}
	out := make(Quotes, len(symbols))
	for _, sym := range symbols {
		s, ok := series[sym]
		if !ok {
			out[sym] = unavailable(sparkSource, sym, errors.New("symbol missing from series"))
			continue
		}
		q, err := f.quoteFrom(sym, s)
		if err != nil {
			out[sym] = unavailable(sparkSource, sym, err)
			continue
		}
		out[sym] = q
	}
	return out
}

func (f *SparkFetcher) download(ctx context.Context, symbols []string) (map[string]sparkSeries, error) {
	u, err := url.Parse(f.baseURL + "/v7/finance/spark")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("range", "1d")
	q.Set("interval", f.interval)
	u.RawQuery = q.Encode()

	var payload sparkResp
	if err := f.getJSON(ctx, u.String(), &payload); err != nil {
		return nil, err
	}
	if payload.Spark.Error != nil {
		return nil, payload.Spark.Error
	}
	out := make(map[string]sparkSeries, len(payload.Spark.Result))
	for _, r := range payload.Spark.Result {
		if len(r.Response) == 0 {
			continue
		}
		out[strings.ToUpper(r.Symbol)] = r.Response[0]
	}
	return out, nil
}

func (f *SparkFetcher) quoteFrom(symbol string, s sparkSeries) (RawQuote, error) {
	closes := lastCloses(s, 2)
	if len(closes) == 0 {
		return RawQuote{}, errors.New("no samples")
	}
	q := RawQuote{Symbol: symbol, Last: closes[len(closes)-1], Source: sparkSource}
	switch f.mode {
	case PrevCloseSample:
		if len(closes) < 2 {
			return RawQuote{}, errors.New("need two samples")
		}
		q.PrevClose = closes[0]
	default:
		prev := s.Meta.ChartPreviousClose
		if prev == nil {
			prev = s.Meta.PreviousClose
		}
		if prev == nil {
			return RawQuote{}, errors.New("missing previous close")
		}
		q.PrevClose = *prev
	}
	return q, nil
}

// lastCloses returns up to n most recent non-null closes, oldest first.
func lastCloses(s sparkSeries, n int) []float64 {
	if len(s.Indicators.Quote) == 0 {
		return nil
	}
	closes := s.Indicators.Quote[0].Close
	out := make([]float64, 0, n)
	for i := len(closes) - 1; i >= 0 && len(out) < n; i-- {
		if closes[i] != nil {
			out = append(out, *closes[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
