package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nifty-bank-live/internal/market"
	"nifty-bank-live/internal/snapshot"
	"nifty-bank-live/internal/store"
)

//go:generate mockgen -package=refresh -destination=mock_fetcher_test.go nifty-bank-live/internal/market Fetcher
//go:generate mockgen -package=refresh -destination=mock_store_test.go nifty-bank-live/internal/store Store

// ErrPersist wraps a failed batch write.
var ErrPersist = errors.New("persist snapshot batch")

type State int32

const (
	Idle State = iota
	Cycling
)

func (s State) String() string {
	if s == Cycling {
		return "cycling"
	}
	return "idle"
}

// Status describes the most recent cycle.
type Status struct {
	State      string    `json:"state"`
	CycleID    string    `json:"cycle_id,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Available  int       `json:"available"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
	Cycles     int64     `json:"cycles"`
	Failures   int64     `json:"failures"`
}

type Config struct {
	// Interval is the pause between the end of one cycle and the start of the next.
	Interval time.Duration
	// CycleTimeout bounds one fetch+persist pass; defaults to Interval.
	CycleTimeout time.Duration
}

// Refresher drives fetch -> normalize -> persist cycles. Cycles never overlap,
// so the store only ever has one writer.
type Refresher struct {
	universe market.Universe
	fetcher  market.Fetcher
	store    store.Store
	logger   *zap.Logger
	cfg      Config

	state atomic.Int32
	// slot holds a token while a cycle runs; waiting for it honours ctx.
	slot chan struct{}

	mu     sync.Mutex
	status Status
}

func New(cfg Config, u market.Universe, f market.Fetcher, st store.Store, logger *zap.Logger) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		universe: u,
		fetcher:  f,
		store:    st,
		logger:   logger.Named("refresh"),
		cfg:      cfg,
		slot:     make(chan struct{}, 1),
	}
}

func (r *Refresher) State() State { return State(r.state.Load()) }

func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.State = r.State().String()
	return s
}

// Run executes a cycle immediately and then one per interval until ctx is done.
// A failed cycle is logged and the next one is scheduled as usual.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("refresh loop started",
		zap.Duration("interval", r.cfg.Interval),
		zap.String("fetcher", r.fetcher.Name()),
		zap.String("store", r.store.Driver()),
		zap.Int("tickers", r.universe.Len()),
	)
	for {
		if _, err := r.RunCycle(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("refresh cycle failed", zap.Error(err))
		}
		timer := time.NewTimer(r.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("refresh loop stopped")
			return
		case <-timer.C:
		}
	}
}

// RunCycle performs one full pass. The computed batch is returned even when
// persisting it failed. If another cycle is running it waits for it, or
// returns ctx's error if ctx ends first.
func (r *Refresher) RunCycle(ctx context.Context) (snap snapshot.Snapshot, err error) {
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for running cycle: %w", ctx.Err())
	}
	defer func() { <-r.slot }()

	r.state.Store(int32(Cycling))
	defer r.state.Store(int32(Idle))

	id := uuid.NewString()
	started := time.Now()
	log := r.logger.With(zap.String("cycle_id", id))
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("cycle panic: %v", rec)
			snap = nil
		}
		r.finish(id, started, snap, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CycleTimeout)
	defer cancel()

	quotes := r.fetcher.Fetch(ctx, r.universe.Symbols())
	for _, sym := range r.universe.Symbols() {
		if q, ok := quotes[sym]; ok && !q.Available() {
			log.Warn("ticker unavailable", zap.String("symbol", sym), zap.Error(q.Err))
		}
	}

	snap = market.NormalizeAll(r.universe, quotes)
	if err := r.store.WriteBatch(ctx, snap); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	log.Info("refresh cycle complete",
		zap.Int("available", snap.Available()),
		zap.Int("total", len(snap)),
		zap.Duration("took", time.Since(started)),
	)
	return snap, nil
}

func (r *Refresher) finish(id string, started time.Time, snap snapshot.Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.CycleID = id
	r.status.StartedAt = started
	r.status.FinishedAt = time.Now()
	r.status.Available = snap.Available()
	r.status.Total = len(snap)
	r.status.Cycles++
	r.status.Error = ""
	if err != nil {
		r.status.Failures++
		r.status.Error = err.Error()
	}
}
