package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"nifty-bank-live/internal/snapshot"
)

// Compile-time check to ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// RedisStore keeps every ticker document as a JSON field of one hash, so a
// batch is a single MULTI/EXEC and a read is a single HGETALL.
type RedisStore struct {
	client *redis.Client
	key    string
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, opts.Key), nil
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = Collection
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Driver() string { return "redis" }

func (r *RedisStore) WriteBatch(ctx context.Context, batch snapshot.Snapshot) error {
	if err := checkBatch(batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	fields := make(map[string]any, len(batch))
	for sym, rec := range batch {
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", sym, err)
		}
		fields[sym] = string(doc)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, fields)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis batch: %w", err)
	}
	return nil
}

func (r *RedisStore) ReadAll(ctx context.Context) (snapshot.Snapshot, error) {
	docs, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make(snapshot.Snapshot, len(docs))
	for sym, doc := range docs {
		var rec snapshot.QuoteRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", sym, err)
		}
		out[sym] = rec
	}
	return out, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
