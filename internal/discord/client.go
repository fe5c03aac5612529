package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "meshbridge/pkg/logx"
)

var ErrNoWebhook = errors.New("webhook url not configured")

// Config tunes one webhook client.
//
// Defaults (when fields are omitted/zero): rate 5/s, 2 retries, 10s timeout.
type Config struct {
	URL        string
	RatePerSec int
	RetryMax   int
	Timeout    time.Duration
}

// Client posts embeds to a single Discord webhook.
//
// Sends are rate limited and retry on 429 (honoring Retry-After) and on
// transient transport errors. Safe for concurrent use; Apply() swaps tuning
// at runtime.
type Client struct {
	http *http.Client
	log  logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{log: log}
	c.Apply(cfg)
	return c
}

// Apply swaps the client tuning (and URL) at runtime.
func (c *Client) Apply(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c.mu.Lock()
	c.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	c.http = &http.Client{Timeout: cfg.Timeout}
	c.mu.Unlock()
}

// Configured reports whether the client has a webhook URL.
func (c *Client) Configured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.URL != ""
}

// Send posts one embed.
func (c *Client) Send(ctx context.Context, e Embed) error {
	return c.post(ctx, message{Embeds: []Embed{e}})
}

// PostText posts a plain content message. Used by the log sink and the
// status digest preamble.
func (c *Client) PostText(ctx context.Context, content string) error {
	if content == "" {
		return nil
	}
	return c.post(ctx, message{Content: content})
}

func (c *Client) post(ctx context.Context, m message) error {
	c.mu.Lock()
	cfg := c.cfg
	lim := c.limiter
	httpc := c.http
	c.mu.Unlock()

	if cfg.URL == "" {
		return ErrNoWebhook
	}

	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	var last error
	for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		retryAfter, err := c.doOnce(ctx, httpc, cfg.URL, body)
		if err == nil {
			return nil
		}
		last = err
		if attempt >= cfg.RetryMax {
			break
		}

		delay := retryAfter
		if delay <= 0 {
			delay = time.Duration(500*(attempt+1)) * time.Millisecond
		}
		c.log.Debug("webhook send retry scheduled",
			logx.Int("attempt", attempt+2),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return ctx.Err()
		case <-tmr.C:
		}
	}
	return last
}

// doOnce performs a single POST. On 429 it returns the server-requested
// retry delay alongside the error.
func (c *Client) doOnce(ctx context.Context, httpc *http.Client, url string, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		return 0, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return retryAfter(resp), fmt.Errorf("webhook rate limited (http 429)")
	}
	return 0, fmt.Errorf("webhook post failed http %d", resp.StatusCode)
}

// retryAfter extracts the 429 backoff. Discord sends Retry-After in seconds,
// possibly fractional.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
