package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// WebhookPoster delivers a plain text message to the operator webhook.
// Implemented by the Discord client; kept as an interface so logx does not
// depend on the delivery package.
type WebhookPoster interface {
	PostText(ctx context.Context, content string) error
}

// discordSink is a zerolog sink that forwards high-level log lines to a
// webhook. Posting happens on a single worker goroutine; the sink never
// blocks logging and drops lines when the queue is full or the rate limiter
// says no.
type discordSink struct {
	poster WebhookPoster

	mu       sync.Mutex
	minLevel zerolog.Level
	limiter  *rate.Limiter

	queue  chan string
	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newDiscordSink(poster WebhookPoster) *discordSink {
	return &discordSink{
		poster:   poster,
		minLevel: zerolog.WarnLevel,
		queue:    make(chan string, 64),
	}
}

func (d *discordSink) apply(cfg DiscordConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.minLevel = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	d.limiter = rate.NewLimiter(rate.Limit(rps), rps)
}

func (d *discordSink) close() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
		d.wg.Wait()
	}
}

func (d *discordSink) Write(p []byte) (int, error) {
	return d.WriteLevel(zerolog.InfoLevel, p)
}

func (d *discordSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if d == nil || d.poster == nil {
		return len(p), nil
	}

	d.mu.Lock()
	min := d.minLevel
	lim := d.limiter
	d.mu.Unlock()

	if level < min {
		return len(p), nil
	}
	if lim != nil && !lim.Allow() {
		return len(p), nil
	}

	msg := formatWebhookLine(p)
	if msg == "" {
		return len(p), nil
	}

	d.startWorker()
	// Never block core logging.
	select {
	case d.queue <- msg:
	default:
		// drop
	}
	return len(p), nil
}

func (d *discordSink) startWorker() {
	d.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		d.mu.Lock()
		d.cancel = cancel
		d.mu.Unlock()
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-d.queue:
					_ = d.poster.PostText(ctx, msg)
				}
			}
		}()
	})
}

// formatWebhookLine converts a zerolog JSON line into a compact human string.
func formatWebhookLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(p))), &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), 1800)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)
	if msg == "" {
		msg, _ = m["msg"].(string)
	}

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[")
		b.WriteString(strings.ToUpper(lvl))
		b.WriteString("] ")
	}
	b.WriteString(msg)

	for k, v := range m {
		if k == "time" || k == "level" || k == "message" || k == "msg" || k == "caller" {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(truncate(fmt.Sprint(v), 400))
	}

	return truncate(b.String(), 1800)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
