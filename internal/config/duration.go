package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration-valued config fields (discord.timeout, archive.busy_timeout) are
// Go duration strings. Empty means "unset"; negatives are rejected so a typo
// like "-5s" fails validation instead of silently becoming zero.

// ParseDurationField parses one such field, using path in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def for unset fields.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		d = def
	}
	return d, nil
}
