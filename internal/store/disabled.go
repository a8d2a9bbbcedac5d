package store

import (
	"context"
	"fmt"

	"nifty-bank-live/internal/snapshot"
)

// Disabled stands in for a store that could not be opened. Every call fails
// with ErrUnavailable so the read path can report the problem.
type Disabled struct {
	Reason error
}

func (d Disabled) Driver() string { return "disabled" }

func (d Disabled) err() error {
	if d.Reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, d.Reason)
}

func (d Disabled) WriteBatch(context.Context, snapshot.Snapshot) error { return d.err() }

func (d Disabled) ReadAll(context.Context) (snapshot.Snapshot, error) { return nil, d.err() }

func (d Disabled) Ping(context.Context) error { return d.err() }

func (d Disabled) Close() error { return nil }
