package draft

import (
	"sync"
	"testing"
	"time"

	"postbot/internal/transport"
)

func TestStoreIDsMonotonicNeverReused(t *testing.T) {
	t.Parallel()
	s := NewStore()

	id1 := s.Create(Draft{Text: "one"})
	id2 := s.Create(Draft{Text: "two"})
	if id1 != 1 || id2 != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", id1, id2)
	}

	if !s.Remove(id1) {
		t.Fatalf("Remove(%d) = false, want true", id1)
	}
	id3 := s.Create(Draft{Text: "three"})
	if id3 != 3 {
		t.Fatalf("id after removal = %d, want 3 (ids must not be reused)", id3)
	}
}

func TestStoreTakeAtomicWinner(t *testing.T) {
	t.Parallel()
	s := NewStore()
	id := s.Create(Draft{Text: "payload"})

	const racers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := s.Take(id); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("Take winners = %d, want exactly 1", wins)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after Take, want 0", s.Len())
	}
}

func TestStoreTakeThenRemove(t *testing.T) {
	t.Parallel()
	s := NewStore()
	id := s.Create(Draft{Text: "x"})

	if _, ok := s.Take(id); !ok {
		t.Fatal("first Take failed")
	}
	if s.Remove(id) {
		t.Fatal("Remove after Take should report absence")
	}
	if _, ok := s.Get(id); ok {
		t.Fatal("Get after Take should report absence")
	}
}

func TestStorePrune(t *testing.T) {
	t.Parallel()
	s := NewStore()
	old := s.Create(Draft{Text: "old", CreatedAt: time.Now().Add(-2 * time.Hour)})
	fresh := s.Create(Draft{Text: "fresh"})

	expired := s.Prune(time.Hour)
	if len(expired) != 1 || expired[0].ID != old {
		t.Fatalf("Prune = %v, want only draft %d", expired, old)
	}
	if _, ok := s.Get(fresh); !ok {
		t.Fatal("fresh draft should survive the prune")
	}

	if got := s.Prune(0); got != nil {
		t.Fatalf("Prune(0) = %v, want nil (disabled)", got)
	}
}

func TestDraftEmpty(t *testing.T) {
	t.Parallel()
	if !(Draft{}).Empty() {
		t.Fatal("zero draft should be empty")
	}
	if (Draft{Text: "t"}).Empty() {
		t.Fatal("draft with text is not empty")
	}
	if (Draft{Media: []transport.MediaRef{{Kind: transport.MediaPhoto}}}).Empty() {
		t.Fatal("draft with media is not empty")
	}
}
