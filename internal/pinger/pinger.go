package pinger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger periodically issues a GET to keep the hosting process from being
// reclaimed for inactivity.
type Pinger struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

func New(url string, interval, timeout time.Duration, logger *zap.Logger) *Pinger {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pinger{
		url:      url,
		interval: interval,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("pinger"),
	}
}

func (p *Pinger) Enabled() bool { return p.url != "" }

// Ping sends one request and reports non-2xx statuses as errors.
func (p *Pinger) Ping(ctx context.Context) error {
	if p.url == "" {
		return fmt.Errorf("pinger url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Run pings every interval until ctx is done. Failures are logged only.
func (p *Pinger) Run(ctx context.Context) {
	if !p.Enabled() {
		return
	}
	p.logger.Info("pinger started", zap.String("url", p.url), zap.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Ping(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("ping failed", zap.Error(err))
			} else {
				p.logger.Debug("ping ok")
			}
		}
	}
}
