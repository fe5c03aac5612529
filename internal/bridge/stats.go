package bridge

import "sync/atomic"

// Stats counts pipeline outcomes. All counters are monotonically increasing
// since process start.
type Stats struct {
	Received   atomic.Uint64
	Rejected   atomic.Uint64
	Duplicates atomic.Uint64
	Ignored    atomic.Uint64
	Delivered  atomic.Uint64
	Failures   atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Received   uint64
	Rejected   uint64
	Duplicates uint64
	Ignored    uint64
	Delivered  uint64
	Failures   uint64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:   s.Received.Load(),
		Rejected:   s.Rejected.Load(),
		Duplicates: s.Duplicates.Load(),
		Ignored:    s.Ignored.Load(),
		Delivered:  s.Delivered.Load(),
		Failures:   s.Failures.Load(),
	}
}
