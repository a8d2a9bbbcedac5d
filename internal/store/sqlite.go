package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nifty-bank-live/internal/snapshot"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "data/app.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(3000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Driver() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS market_indices (
			symbol TEXT PRIMARY KEY,
			price REAL,
			change_pct REAL,
			prev_close REAL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) WriteBatch(ctx context.Context, batch snapshot.Snapshot) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	if err := checkBatch(batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO market_indices (symbol, price, change_pct, prev_close, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET price=excluded.price, change_pct=excluded.change_pct, prev_close=excluded.prev_close, updated_at=excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	symbols := batch.Symbols()
	args := make([]any, 0, len(symbols))
	for _, sym := range symbols {
		rec := batch[sym]
		if _, err := stmt.ExecContext(ctx, sym, nullable(rec.Price), nullable(rec.Change), nullable(rec.PrevClose), now); err != nil {
			return fmt.Errorf("upsert %s: %w", sym, err)
		}
		args = append(args, sym)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	if _, err := tx.ExecContext(ctx, `DELETE FROM market_indices WHERE symbol NOT IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("prune batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) (snapshot.Snapshot, error) {
	if s == nil || s.db == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, price, change_pct, prev_close FROM market_indices`)
	if err != nil {
		return nil, fmt.Errorf("query market_indices: %w", err)
	}
	defer rows.Close()

	out := make(snapshot.Snapshot)
	for rows.Next() {
		var sym string
		var price, change, prev sql.NullFloat64
		if err := rows.Scan(&sym, &price, &change, &prev); err != nil {
			return nil, fmt.Errorf("scan market_indices: %w", err)
		}
		out[sym] = snapshot.QuoteRecord{Price: fromNull(price), Change: fromNull(change), PrevClose: fromNull(prev)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows market_indices: %w", err)
	}
	return out, nil
}
