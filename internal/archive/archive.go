// Package archive persists delivered messages for later inspection.
//
// The archive is optional and off by default. Only messages that actually
// reached a webhook are recorded; the identity cache and the dedup set are
// in-memory only and never written here.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "meshbridge/pkg/logx"
)

// Entry is one delivered message.
type Entry struct {
	At       time.Time
	Topic    string
	Type     string
	FromID   string
	FromName string
	Channel  string
	Text     string
}

// Store appends delivered messages somewhere durable.
type Store interface {
	AppendMessage(ctx context.Context, e Entry) error
	Close() error
}

// Config selects the archive backend. Driver "none" (or empty) disables it.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

// Open builds the configured store. A disabled archive returns (nil, nil);
// callers treat a nil Store as "don't record".
func Open(cfg Config, log logx.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}
