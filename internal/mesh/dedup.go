package mesh

import "sync"

const defaultSeenCap = 1000

// SeenIDs is a bounded set of already-processed message ids.
//
// Eviction is FIFO: when the set is full, the oldest inserted id makes room
// for the new one. Safe for concurrent use.
type SeenIDs struct {
	mu    sync.Mutex
	cap   int
	set   map[string]struct{}
	queue []string
	head  int
}

func NewSeenIDs(capacity int) *SeenIDs {
	if capacity <= 0 {
		capacity = defaultSeenCap
	}
	return &SeenIDs{
		cap: capacity,
		set: make(map[string]struct{}, capacity),
	}
}

// Admit reports whether the event carrying id should be processed.
// An empty id always admits: a message without an id cannot be deduplicated.
func (s *SeenIDs) Admit(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.set[id]; dup {
		return false
	}

	if len(s.set) >= s.cap {
		oldest := s.queue[s.head]
		delete(s.set, oldest)
		s.head++
		// Reclaim the drained prefix once it dominates the backing array.
		if s.head > s.cap {
			s.queue = append([]string(nil), s.queue[s.head:]...)
			s.head = 0
		}
	}

	s.set[id] = struct{}{}
	s.queue = append(s.queue, id)
	return true
}

// Len reports how many ids are currently retained.
func (s *SeenIDs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}
