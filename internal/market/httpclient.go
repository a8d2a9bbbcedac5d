package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
	defaultUserAgent    = "Mozilla/5.0 (compatible; nifty-bank-live/1.0)"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=market -destination=mock_http_client_test.go -source=httpclient.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with an overall request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// yahooClient holds what the Yahoo-backed fetchers share.
type yahooClient struct {
	baseURL    string
	httpClient HTTPClient
	userAgent  string
	attempts   int
	retryDelay time.Duration
}

// Option configures a Yahoo-backed fetcher.
type Option func(*yahooClient)

func WithBaseURL(baseURL string) Option {
	return func(c *yahooClient) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *yahooClient) { c.httpClient = httpClient }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *yahooClient) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.retryDelay = delay
	}
}

func newYahooClient(options []Option) yahooClient {
	c := yahooClient{
		baseURL:    defaultYahooBaseURL,
		httpClient: NewHTTPClient(5 * time.Second),
		userAgent:  defaultUserAgent,
		attempts:   3,
		retryDelay: 150 * time.Millisecond,
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// getJSON issues a GET and decodes the body into out, retrying transient errors.
func (c yahooClient) getJSON(ctx context.Context, url string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		err := c.getOnce(ctx, url, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !shouldRetry(err) {
			break
		}
	}
	return lastErr
}

func (c yahooClient) getOnce(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request yahoo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode yahoo: %w", err)
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "reset by peer") {
		return true
	}
	return false
}
