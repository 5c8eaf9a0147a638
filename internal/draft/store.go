// Package draft holds content awaiting operator confirmation.
package draft

import (
	"sync"
	"time"

	"postbot/internal/transport"
)

// Draft is one unit of content pending a publish/cancel decision. A draft is
// either in the store (pending) or gone (published or cancelled); consumed
// drafts are never reused.
type Draft struct {
	ID        int64
	ChatID    int64
	AuthorID  int64
	Text      string
	Media     []transport.MediaRef // arrival order, preserved through publish
	CreatedAt time.Time
}

// Empty reports whether the draft has neither text nor media. Such drafts are
// legal; they just render an empty preview.
func (d Draft) Empty() bool { return d.Text == "" && len(d.Media) == 0 }

// Store maps draft ids to pending drafts. Ids are assigned monotonically from
// 1 and never reused, even after removal.
type Store struct {
	mu  sync.Mutex
	seq int64
	m   map[int64]Draft
}

func NewStore() *Store {
	return &Store{m: map[int64]Draft{}}
}

// Create assigns the next id, stores the draft, and returns the id.
func (s *Store) Create(d Draft) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	d.ID = s.seq
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.m[d.ID] = d
	return d.ID
}

// Get returns the pending draft for id.
func (s *Store) Get(id int64) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[id]
	return d, ok
}

// Take atomically looks up and removes the draft for id. At most one caller
// can win for a given id; everyone else observes absence. This is what makes
// remove-before-publish give at-most-once delivery.
func (s *Store) Take(id int64) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[id]
	if ok {
		delete(s.m, id)
	}
	return d, ok
}

// Remove deletes the draft for id, reporting whether it was present.
func (s *Store) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[id]
	if ok {
		delete(s.m, id)
	}
	return ok
}

// Len returns the number of pending drafts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Prune removes drafts created before now-ttl and returns them so callers can
// notify the owning chats.
func (s *Store) Prune(ttl time.Duration) []Draft {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Draft
	for id, d := range s.m {
		if d.CreatedAt.Before(cutoff) {
			out = append(out, d)
			delete(s.m, id)
		}
	}
	return out
}
