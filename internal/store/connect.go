package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nifty-bank-live/internal/config"
)

const connectTimeout = 10 * time.Second

// Connect opens the store described by the credential blob. A missing,
// malformed or unreachable store yields a Disabled store unless
// cfg.Required is set, in which case the error is returned.
func Connect(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	st, err := connect(ctx, cfg)
	if err == nil {
		logger.Info("store opened", zap.String("driver", st.Driver()))
		return st, nil
	}
	if cfg.Required {
		return nil, fmt.Errorf("store required: %w", err)
	}
	if errors.Is(err, config.ErrMissingCredentials) {
		logger.Warn("store credentials not set; store disabled")
	} else {
		logger.Error("store disabled", zap.Error(err))
	}
	return Disabled{Reason: err}, nil
}

func connect(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	creds, err := cfg.ParseCredentials()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return Open(ctx, Options{
		Driver:   creds.Driver,
		Path:     creds.Path,
		Addr:     creds.Addr,
		Password: creds.Password,
		DB:       creds.DB,
		DSN:      creds.DSN,
	})
}
