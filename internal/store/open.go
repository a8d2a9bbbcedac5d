package store

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures a backend.
type Options struct {
	Driver   string
	Path     string
	Addr     string
	Password string
	DB       int
	DSN      string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "sqlite", "":
		return OpenSQLite(ctx, opts.Path)
	case "redis":
		return OpenRedis(ctx, RedisOptions{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	case "postgres", "postgresql":
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %q", opts.Driver)
	}
}
