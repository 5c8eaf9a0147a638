package album

import (
	"sync"
	"testing"
	"time"

	"postbot/internal/transport"
)

// collector is a SinkFunc that records batches and signals each arrival.
type collector struct {
	mu      sync.Mutex
	batches []Batch
	ch      chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 16)}
}

func (c *collector) sink(b Batch) {
	c.mu.Lock()
	c.batches = append(c.batches, b)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T, d time.Duration) Batch {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(d):
		t.Fatal("timed out waiting for a batch")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[len(c.batches)-1]
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func ref(id string) transport.MediaRef {
	return transport.MediaRef{Kind: transport.MediaPhoto, FileID: id}
}

func TestAggregatorOrdersBySeq(t *testing.T) {
	t.Parallel()
	c := newCollector()
	a := New(30*time.Millisecond, c.sink)
	defer a.Close()

	key := Key{ChatID: 1, GroupID: "g"}
	// Out-of-order delivery: seq decides, not arrival.
	a.Add(key, Item{Seq: 12, Media: ref("c")}, 7)
	a.Add(key, Item{Seq: 10, Media: ref("a")}, 7)
	a.Add(key, Item{Seq: 11, Media: ref("b")}, 7)

	b := c.wait(t, time.Second)
	if b.ChatID != 1 || b.AuthorID != 7 {
		t.Fatalf("batch meta = chat %d author %d", b.ChatID, b.AuthorID)
	}
	want := []string{"a", "b", "c"}
	if len(b.Media) != len(want) {
		t.Fatalf("media count = %d, want %d", len(b.Media), len(want))
	}
	for i, w := range want {
		if b.Media[i].FileID != w {
			t.Fatalf("media[%d] = %q, want %q", i, b.Media[i].FileID, w)
		}
	}
}

func TestAggregatorCaptionFirstNonEmptyInOrder(t *testing.T) {
	t.Parallel()
	c := newCollector()
	a := New(30*time.Millisecond, c.sink)
	defer a.Close()

	key := Key{ChatID: 1, GroupID: "g"}
	// The later-seq caption arrives first; the earlier-seq one must win.
	a.Add(key, Item{Seq: 5, Text: "later", Media: ref("b")}, 1)
	a.Add(key, Item{Seq: 3, Media: ref("a")}, 1)
	a.Add(key, Item{Seq: 4, Text: "winner", Media: ref("c")}, 1)

	b := c.wait(t, time.Second)
	if b.Caption != "winner" {
		t.Fatalf("Caption = %q, want %q", b.Caption, "winner")
	}
}

func TestAggregatorDebounceRestarts(t *testing.T) {
	t.Parallel()
	c := newCollector()
	wait := 80 * time.Millisecond
	a := New(wait, c.sink)
	defer a.Close()

	key := Key{ChatID: 1, GroupID: "g"}
	// Items arriving well inside the window keep one burst open.
	for i := 0; i < 4; i++ {
		a.Add(key, Item{Seq: i, Media: ref("x")}, 1)
		time.Sleep(wait / 4)
	}
	b := c.wait(t, time.Second)
	if len(b.Media) != 4 {
		t.Fatalf("media count = %d, want 4 (one batch for the burst)", len(b.Media))
	}

	// A gap longer than the window starts a new burst under the same key.
	a.Add(key, Item{Seq: 10, Media: ref("y")}, 1)
	b = c.wait(t, time.Second)
	if len(b.Media) != 1 {
		t.Fatalf("second burst media count = %d, want 1", len(b.Media))
	}
	if c.count() != 2 {
		t.Fatalf("batches = %d, want 2", c.count())
	}
}

func TestAggregatorSingleItemBurst(t *testing.T) {
	t.Parallel()
	c := newCollector()
	a := New(20*time.Millisecond, c.sink)
	defer a.Close()

	a.Add(Key{ChatID: 9, GroupID: "solo"}, Item{Seq: 1, Text: "t", Media: ref("m")}, 2)
	b := c.wait(t, time.Second)
	if len(b.Media) != 1 || b.Caption != "t" {
		t.Fatalf("batch = %+v, want 1 media with caption %q", b, "t")
	}
	if a.Pending() != 0 {
		t.Fatalf("Pending = %d after flush, want 0", a.Pending())
	}
}

func TestAggregatorSeparateKeysSeparateBatches(t *testing.T) {
	t.Parallel()
	c := newCollector()
	a := New(20*time.Millisecond, c.sink)
	defer a.Close()

	a.Add(Key{ChatID: 1, GroupID: "g"}, Item{Seq: 1, Media: ref("a")}, 1)
	a.Add(Key{ChatID: 2, GroupID: "g"}, Item{Seq: 1, Media: ref("b")}, 1)

	c.wait(t, time.Second)
	c.wait(t, time.Second)
	if c.count() != 2 {
		t.Fatalf("batches = %d, want 2 (same group id, different chats)", c.count())
	}
}

func TestAggregatorCloseDiscardsPending(t *testing.T) {
	t.Parallel()
	c := newCollector()
	a := New(30*time.Millisecond, c.sink)

	a.Add(Key{ChatID: 1, GroupID: "g"}, Item{Seq: 1, Media: ref("a")}, 1)
	a.Close()

	// Give a stopped-but-racing timer time to (not) fire.
	time.Sleep(100 * time.Millisecond)
	if c.count() != 0 {
		t.Fatalf("batches after Close = %d, want 0", c.count())
	}

	// Adds after Close are ignored.
	a.Add(Key{ChatID: 1, GroupID: "g2"}, Item{Seq: 1, Media: ref("b")}, 1)
	if a.Pending() != 0 {
		t.Fatalf("Pending after closed Add = %d, want 0", a.Pending())
	}
}

func TestAggregatorPrune(t *testing.T) {
	t.Parallel()
	a := New(time.Hour, nil) // timer will not fire during the test
	defer a.Close()

	a.Add(Key{ChatID: 1, GroupID: "stale"}, Item{Seq: 1, Media: ref("a")}, 1)
	if n := a.Prune(time.Hour); n != 0 {
		t.Fatalf("Prune removed %d fresh entries", n)
	}
	time.Sleep(20 * time.Millisecond)
	if n := a.Prune(10 * time.Millisecond); n != 1 {
		t.Fatalf("Prune = %d, want 1", n)
	}
	if a.Pending() != 0 {
		t.Fatalf("Pending = %d after prune, want 0", a.Pending())
	}
}
