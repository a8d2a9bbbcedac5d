package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nifty-bank-live/internal/snapshot"
)

// Collection is the logical name of the per-ticker document set.
const Collection = "market_indices"

// ErrUnavailable is returned by every call on a store that could not be opened.
var ErrUnavailable = errors.New("snapshot store unavailable")

// Store persists the latest record per ticker.
//
// WriteBatch is atomic: a concurrent ReadAll observes either the state before
// the batch or the state after it. Documents are replaced by ticker key and a
// non-empty batch is the complete set, so tickers absent from it are removed.
// An empty batch is a no-op.
type Store interface {
	Driver() string
	WriteBatch(ctx context.Context, batch snapshot.Snapshot) error
	ReadAll(ctx context.Context) (snapshot.Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}

func nullable(v snapshot.Value) any {
	if f, ok := v.Float(); ok {
		return f
	}
	return nil
}

func fromNull(n sql.NullFloat64) snapshot.Value {
	if !n.Valid {
		return snapshot.Unavailable()
	}
	return snapshot.Present(n.Float64)
}

func fromPtr(p *float64) snapshot.Value {
	if p == nil {
		return snapshot.Unavailable()
	}
	return snapshot.Present(*p)
}

func checkBatch(batch snapshot.Snapshot) error {
	for sym, rec := range batch {
		if sym == "" {
			return errors.New("empty ticker in batch")
		}
		if !rec.Valid() {
			return fmt.Errorf("partial record for %s", sym)
		}
	}
	return nil
}
