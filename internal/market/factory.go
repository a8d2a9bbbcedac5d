package market

import (
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
)

type Strategy string

const (
	StrategyChart     Strategy = "chart"
	StrategyFinanceGo Strategy = "finance_go"
	StrategySpark     Strategy = "spark"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyChart, StrategyFinanceGo, StrategySpark:
		return st, nil
	case "":
		return StrategyChart, nil
	default:
		return "", fmt.Errorf("invalid fetch strategy: %q", s)
	}
}

type FetcherConfig struct {
	Strategy      Strategy
	Fallback      []Strategy
	PrevClose     PrevCloseMode
	SparkInterval string
	Concurrency   int
	Timeout       time.Duration
	BaseURL       string
}

// NewFetcher builds the configured primary fetcher followed by its fallbacks.
func NewFetcher(cfg FetcherConfig) (Fetcher, error) {
	httpClient := NewHTTPClient(cfg.Timeout)
	opts := []Option{WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}

	seen := make(map[Strategy]struct{})
	var fetchers []Fetcher
	for _, st := range append([]Strategy{cfg.Strategy}, cfg.Fallback...) {
		if _, dup := seen[st]; dup {
			continue
		}
		seen[st] = struct{}{}
		switch st {
		case StrategyChart:
			fetchers = append(fetchers, NewChartFetcher(cfg.Concurrency, opts...))
		case StrategyFinanceGo:
			finance.SetHTTPClient(httpClient)
			fetchers = append(fetchers, NewFinanceGoFetcher(cfg.Concurrency, nil))
		case StrategySpark:
			fetchers = append(fetchers, NewSparkFetcher(cfg.SparkInterval, cfg.PrevClose, opts...))
		default:
			return nil, fmt.Errorf("invalid fetch strategy: %q", st)
		}
	}
	if len(fetchers) == 1 {
		return fetchers[0], nil
	}
	return NewFallbackFetcher(fetchers...), nil
}
