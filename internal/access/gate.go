// Package access decides whether a Telegram identity may create or confirm
// drafts.
package access

import "sync"

// Gate holds the admin allowlist.
//
// An empty allowlist means everyone is allowed. This fail-open behavior is
// preserved from the original deployment; set admin ids in config to lock the
// bot down.
type Gate struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

func New(ids []int64) *Gate {
	g := &Gate{}
	g.Apply(ids)
	return g
}

// Apply replaces the allowlist (config reload).
func (g *Gate) Apply(ids []int64) {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id != 0 {
			m[id] = struct{}{}
		}
	}
	g.mu.Lock()
	g.ids = m
	g.mu.Unlock()
}

// Allowed reports whether id may create or confirm drafts.
func (g *Gate) Allowed(id int64) bool {
	if id == 0 {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.ids) == 0 {
		return true
	}
	_, ok := g.ids[id]
	return ok
}

// Open reports whether the gate is in allow-all mode.
func (g *Gate) Open() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ids) == 0
}
