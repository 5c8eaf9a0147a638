// Package album buffers media-group bursts until they go quiet, then hands
// the composed batch downstream as one unit.
//
// Telegram delivers an album as separate messages sharing a media_group_id,
// with no "album complete" marker. The aggregator debounces: each item
// restarts a timer, and the batch is flushed once no item has arrived for the
// configured wait.
package album

import (
	"sort"
	"sync"
	"time"

	"postbot/internal/transport"
)

// DefaultWait is the album collection window. Telegram delivers media-group
// items within a few hundred milliseconds of each other in practice.
const DefaultWait = 1200 * time.Millisecond

// Key identifies one logical burst: items from the same chat sharing a
// media_group_id.
type Key struct {
	ChatID  int64
	GroupID string
}

// Item is one member of a burst. Seq is the Telegram message id, which totals-
// orders the album independent of physical delivery order.
type Item struct {
	Seq   int
	Text  string
	Media transport.MediaRef
}

// Batch is a finalized burst in sequence order. Caption is the first
// non-empty text among the items in that order (Telegram attaches the album
// caption to one arbitrary item).
type Batch struct {
	ChatID   int64
	AuthorID int64
	Caption  string
	Media    []transport.MediaRef
}

// SinkFunc receives finalized batches. It is invoked from timer goroutines
// with no aggregator lock held; it may block.
type SinkFunc func(Batch)

type entry struct {
	items    []Item
	authorID int64
	timer    *time.Timer
	gen      uint64 // bumped on every Add; stale timers check it and bail
	addedAt  time.Time
}

type Aggregator struct {
	mu      sync.Mutex
	wait    time.Duration
	entries map[Key]*entry
	sink    SinkFunc
	closed  bool
}

func New(wait time.Duration, sink SinkFunc) *Aggregator {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Aggregator{
		wait:    wait,
		entries: map[Key]*entry{},
		sink:    sink,
	}
}

// SetWait changes the debounce window for future timers (config reload).
func (a *Aggregator) SetWait(wait time.Duration) {
	if wait <= 0 {
		wait = DefaultWait
	}
	a.mu.Lock()
	a.wait = wait
	a.mu.Unlock()
}

// Add buffers one item. The first item of a key creates the entry; every item
// (including the first) restarts the debounce timer, so the batch flushes
// `wait` after the *last* item of the burst.
func (a *Aggregator) Add(key Key, item Item, authorID int64) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	e, ok := a.entries[key]
	if !ok {
		e = &entry{authorID: authorID}
		a.entries[key] = e
	}
	e.items = append(e.items, item)
	e.addedAt = time.Now()
	e.gen++
	gen := e.gen

	// Supersede any previously scheduled flush. Stop() can miss a timer whose
	// callback already started; that callback re-checks gen and no-ops.
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(a.wait, func() { a.flush(key, gen) })
	a.mu.Unlock()
}

// flush finalizes the entry for key if (and only if) the firing timer is the
// latest one and the entry still has items. Stale or raced firings no-op.
func (a *Aggregator) flush(key Key, gen uint64) {
	a.mu.Lock()
	e, ok := a.entries[key]
	if !ok || e.gen != gen || len(e.items) == 0 {
		a.mu.Unlock()
		return
	}
	items := e.items
	authorID := e.authorID
	delete(a.entries, key)
	sink := a.sink
	a.mu.Unlock()

	if sink == nil {
		return
	}
	sink(compose(key, items, authorID))
}

func compose(key Key, items []Item, authorID int64) Batch {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	b := Batch{ChatID: key.ChatID, AuthorID: authorID, Media: make([]transport.MediaRef, 0, len(items))}
	for _, it := range items {
		if b.Caption == "" && it.Text != "" {
			b.Caption = it.Text
		}
		b.Media = append(b.Media, it.Media)
	}
	return b
}

// Pending returns the number of open buffer entries.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Prune drops entries whose last item is older than maxAge. Entries normally
// flush themselves; this only cleans up after lost timers or clock weirdness.
func (a *Aggregator) Prune(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for k, e := range a.entries {
		if e.addedAt.Before(cutoff) {
			if e.timer != nil {
				e.timer.Stop()
			}
			delete(a.entries, k)
			n++
		}
	}
	return n
}

// Close stops all pending timers and discards buffered items. Further Adds
// are ignored.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for k, e := range a.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(a.entries, k)
	}
}
