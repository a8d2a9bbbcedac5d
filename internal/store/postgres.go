package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nifty-bank-live/internal/snapshot"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing postgres dsn")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 5
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Driver() string { return "postgres" }

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS market_indices (
		symbol TEXT PRIMARY KEY,
		price DOUBLE PRECISION,
		change_pct DOUBLE PRECISION,
		prev_close DOUBLE PRECISION,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) WriteBatch(ctx context.Context, batch snapshot.Snapshot) error {
	if err := checkBatch(batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	symbols := batch.Symbols()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, sym := range symbols {
			rec := batch[sym]
			b.Queue(`INSERT INTO market_indices (symbol, price, change_pct, prev_close, updated_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (symbol) DO UPDATE SET price = EXCLUDED.price, change_pct = EXCLUDED.change_pct,
					prev_close = EXCLUDED.prev_close, updated_at = EXCLUDED.updated_at`,
				sym, nullable(rec.Price), nullable(rec.Change), nullable(rec.PrevClose))
		}
		b.Queue(`DELETE FROM market_indices WHERE symbol <> ALL($1)`, symbols)
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("postgres batch: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ReadAll(ctx context.Context) (snapshot.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT symbol, price, change_pct, prev_close FROM market_indices`)
	if err != nil {
		return nil, fmt.Errorf("query market_indices: %w", err)
	}
	defer rows.Close()

	out := make(snapshot.Snapshot)
	for rows.Next() {
		var sym string
		var price, change, prev *float64
		if err := rows.Scan(&sym, &price, &change, &prev); err != nil {
			return nil, fmt.Errorf("scan market_indices: %w", err)
		}
		out[sym] = snapshot.QuoteRecord{Price: fromPtr(price), Change: fromPtr(change), PrevClose: fromPtr(prev)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows market_indices: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
