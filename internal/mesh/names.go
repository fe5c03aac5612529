package mesh

import "sync"

type nameRecord struct {
	short string
	long  string
}

// Names is the process-wide node identity cache.
//
// Records are created on first update and never deleted; the set is bounded
// by the size of the real mesh. Safe for concurrent use (MQTT callbacks may
// run concurrently).
type Names struct {
	mu    sync.RWMutex
	nodes map[string]nameRecord
}

func NewNames() *Names {
	return &Names{nodes: make(map[string]nameRecord)}
}

// Update merges any non-empty names into the record for id.
// Empty arguments never blank an existing name.
func (n *Names) Update(id, short, long string) {
	if id == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	rec := n.nodes[id]
	if short != "" {
		rec.short = short
	}
	if long != "" {
		rec.long = long
	}
	n.nodes[id] = rec
}

// Resolve returns the best available display name for id:
// long name, else short name, else the id itself.
func (n *Names) Resolve(id string) string {
	n.mu.RLock()
	rec, ok := n.nodes[id]
	n.mu.RUnlock()
	if ok {
		if rec.long != "" {
			return rec.long
		}
		if rec.short != "" {
			return rec.short
		}
	}
	return id
}

// Len reports how many nodes have cached names.
func (n *Names) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}
