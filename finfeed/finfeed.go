// Package finfeed fetches supplementary market data for a ticker from
// the internal feed services. Several mirrors serve the same data;
// requests rotate across them so no single mirror takes every call.
package finfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Rotation is a shared round-robin counter. Injecting it lets several
// clients (or tests) share one distribution.
type Rotation struct {
	mu sync.Mutex
	n  int
}

// Next returns the next index modulo size.
func (r *Rotation) Next(size int) int {
	if size <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.n % size
	r.n++
	return i
}

// Config configures a feed client.
type Config struct {
	// BaseURLs are the feed mirrors, e.g. "http://feed-a:8080".
	BaseURLs []string

	// Timeout bounds one request. Default: 10s.
	Timeout time.Duration

	// Rotation may be shared between clients. Nil gets a private one.
	Rotation *Rotation

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Rotation == nil {
		c.Rotation = &Rotation{}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client queries the feed mirrors.
type Client struct {
	cfg Config
}

// New builds a Client.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg}
}

// Fetch returns the feed payload for ticker, or (nil, nil) when the
// feed has no data. Mirrors are tried starting at the rotation index;
// transport failures move to the next mirror, an explicit miss does not.
func (c *Client) Fetch(ctx context.Context, ticker string) (json.RawMessage, error) {
	bases := c.cfg.BaseURLs
	if len(bases) == 0 {
		return nil, nil
	}

	start := c.cfg.Rotation.Next(len(bases))
	var lastErr error
	for i := 0; i < len(bases); i++ {
		base := bases[(start+i)%len(bases)]
		payload, miss, err := c.fetchOne(ctx, base, ticker)
		if err != nil {
			c.cfg.Logger.Debug("finfeed: mirror failed", "base", base, "error", err)
			lastErr = err
			continue
		}
		if miss {
			return nil, nil
		}
		return payload, nil
	}
	return nil, fmt.Errorf("finfeed: all mirrors failed: %w", lastErr)
}

func (c *Client) fetchOne(ctx context.Context, base, ticker string) (json.RawMessage, bool, error) {
	url := strings.TrimRight(base, "/") + "/fetch-data/" + ticker
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, false, err
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, true, nil
	}
	if !json.Valid(body) {
		return nil, false, fmt.Errorf("invalid JSON from %s", base)
	}
	return json.RawMessage(body), false, nil
}
