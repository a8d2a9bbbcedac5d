package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"go.uber.org/zap"

	"nifty-bank-live/internal/api"
	"nifty-bank-live/internal/config"
	"nifty-bank-live/internal/logging"
	"nifty-bank-live/internal/market"
	"nifty-bank-live/internal/pinger"
	"nifty-bank-live/internal/refresh"
	"nifty-bank-live/internal/store"
)

func main() {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "configs/app.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Connect(bg, cfg.Store, logger)
	if err != nil {
		logger.Fatal("store unavailable", zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	fetcher, err := newFetcher(cfg.Market)
	if err != nil {
		logger.Fatal("market fetcher error", zap.Error(err))
	}
	universe := market.NewUniverse(cfg.Market.Symbols()...)

	var ref *refresh.Refresher
	if _, disabled := st.(store.Disabled); !disabled {
		ref = refresh.New(refresh.Config{
			Interval:     time.Duration(cfg.Refresh.IntervalSec) * time.Second,
			CycleTimeout: time.Duration(cfg.Refresh.CycleTimeoutSec) * time.Second,
		}, universe, fetcher, st, logger)
		go ref.Run(bg)
	} else {
		logger.Warn("running in degraded mode: refresh loop not started")
	}

	p := pinger.New(
		cfg.Pinger.URL,
		time.Duration(cfg.Pinger.IntervalSec)*time.Second,
		time.Duration(cfg.Pinger.TimeoutMs)*time.Millisecond,
		logger,
	)
	if p.Enabled() {
		go p.Run(bg)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))
	h.OnShutdown = append(h.OnShutdown, func(context.Context) {
		logger.Info("shutting down background tasks")
		cancel()
	})

	// A nil *Refresher must not reach the interface as a non-nil value.
	var cyc api.Cycler
	if ref != nil {
		cyc = ref
	}
	api.RegisterRoutes(h, st, cyc, logger.Named("api"))

	logger.Info("server starting",
		zap.String("addr", addr),
		zap.String("store", st.Driver()),
		zap.String("strategy", cfg.Market.Strategy),
		zap.Int("tickers", universe.Len()),
	)
	h.Spin()
}

func newFetcher(m config.MarketConfig) (market.Fetcher, error) {
	strategy, err := market.ParseStrategy(m.Strategy)
	if err != nil {
		return nil, err
	}
	fallback := make([]market.Strategy, 0, len(m.Fallback))
	for _, s := range m.Fallback {
		fs, err := market.ParseStrategy(s)
		if err != nil {
			return nil, err
		}
		fallback = append(fallback, fs)
	}
	mode, err := market.ParsePrevCloseMode(m.PrevClose)
	if err != nil {
		return nil, err
	}
	return market.NewFetcher(market.FetcherConfig{
		Strategy:      strategy,
		Fallback:      fallback,
		PrevClose:     mode,
		SparkInterval: m.SparkInterval,
		Concurrency:   m.Concurrency,
		Timeout:       time.Duration(m.TimeoutMs) * time.Millisecond,
		BaseURL:       m.BaseURL,
	})
}
