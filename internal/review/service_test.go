package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"postbot/internal/access"
	"postbot/internal/publish"
	"postbot/internal/transport"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []publish.Payload
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, p publish.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	return f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRenderer struct {
	mu       sync.Mutex
	previews []PreviewRequest
}

func (f *fakeRenderer) RenderPreview(_ context.Context, req PreviewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, req)
	return nil
}

func (f *fakeRenderer) last(t *testing.T) PreviewRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.previews) == 0 {
		t.Fatal("no preview rendered")
	}
	return f.previews[len(f.previews)-1]
}

func newTestService(t *testing.T, pub publish.Publisher, admins []int64) (*Service, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	s := New(Options{
		Gate:      access.New(admins),
		Publisher: pub,
		Renderer:  r,
		AlbumWait: 25 * time.Millisecond,
	})
	t.Cleanup(s.Close)
	return s, r
}

func photo(id string) *transport.MediaRef {
	return &transport.MediaRef{Kind: transport.MediaPhoto, FileID: id}
}

func TestSubmitTextCreatesDraft(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, r := newTestService(t, pub, nil)

	out := s.Submit(context.Background(), Inbound{ChatID: 10, FromID: 1, Text: "hello"})
	if out.Status != StatusDraftCreated {
		t.Fatalf("Status = %v, want draft_created", out.Status)
	}
	if out.DraftID != 1 {
		t.Fatalf("DraftID = %d, want 1", out.DraftID)
	}
	prev := r.last(t)
	if prev.Text != "hello" || prev.Chat.ChatID != 10 {
		t.Fatalf("preview = %+v", prev)
	}
	if pub.count() != 0 {
		t.Fatal("nothing should be published before a decision")
	}
}

func TestSubmitDeniedMutatesNothing(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, r := newTestService(t, pub, []int64{42})

	out := s.Submit(context.Background(), Inbound{ChatID: 10, FromID: 1, Text: "spam"})
	if out.Status != StatusDenied {
		t.Fatalf("Status = %v, want denied", out.Status)
	}
	if s.Drafts().Len() != 0 || s.Albums().Pending() != 0 {
		t.Fatal("denied submission must not buffer anything")
	}
	r.mu.Lock()
	n := len(r.previews)
	r.mu.Unlock()
	if n != 0 {
		t.Fatal("denied submission must not render a preview")
	}
}

func TestSubmitUnsupportedMediaRejected(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, _ := newTestService(t, pub, nil)

	out := s.Submit(context.Background(), Inbound{
		ChatID: 10, FromID: 1,
		AlbumID: "g1",
		Media:   &transport.MediaRef{Kind: "sticker", FileID: "x"},
	})
	if out.Status != StatusRejected {
		t.Fatalf("Status = %v, want rejected", out.Status)
	}
	if s.Albums().Pending() != 0 {
		t.Fatal("rejected item must not join an album buffer")
	}
}

func TestAlbumBurstBecomesOneDraft(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, r := newTestService(t, pub, nil)

	ctx := context.Background()
	for i, fileID := range []string{"a", "b", "c"} {
		in := Inbound{
			ChatID: 10, FromID: 1, Seq: 100 + i,
			AlbumID: "grp", Media: photo(fileID),
		}
		if i == 1 {
			in.Text = "caption"
		}
		out := s.Submit(ctx, in)
		if out.Status != StatusBuffered {
			t.Fatalf("item %d Status = %v, want buffered", i, out.Status)
		}
	}

	waitFor(t, time.Second, func() bool { return s.Drafts().Len() == 1 })
	prev := r.last(t)
	if len(prev.Media) != 3 {
		t.Fatalf("preview media = %d, want 3", len(prev.Media))
	}
	if prev.Text != "caption" {
		t.Fatalf("preview text = %q, want %q", prev.Text, "caption")
	}
}

func TestDecidePublishRemovesBeforePublish(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, _ := newTestService(t, pub, nil)
	ctx := context.Background()

	out := s.Submit(ctx, Inbound{ChatID: 10, FromID: 1, Text: "post"})
	id := out.DraftID

	dec := s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 1})
	if dec.Status != StatusPublished {
		t.Fatalf("Status = %v, want published", dec.Status)
	}
	if pub.count() != 1 {
		t.Fatalf("publish calls = %d, want 1", pub.count())
	}

	// Duplicate signal: the draft is gone, so nothing publishes again.
	dec = s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 1})
	if dec.Status != StatusNotFound {
		t.Fatalf("duplicate Status = %v, want not_found", dec.Status)
	}
	if pub.count() != 1 {
		t.Fatalf("publish calls after duplicate = %d, want 1", pub.count())
	}
}

func TestDecideConcurrentPublishAtMostOnce(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, _ := newTestService(t, pub, nil)
	ctx := context.Background()

	id := s.Submit(ctx, Inbound{ChatID: 10, FromID: 1, Text: "race"}).DraftID

	const racers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out := s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 1})
			if out.Status == StatusPublished {
				mu.Lock()
				published++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if published != 1 {
		t.Fatalf("published outcomes = %d, want 1", published)
	}
	if pub.count() != 1 {
		t.Fatalf("publish calls = %d, want 1", pub.count())
	}
}

func TestDecideCancelThenPublish(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, _ := newTestService(t, pub, nil)
	ctx := context.Background()

	id := s.Submit(ctx, Inbound{ChatID: 10, FromID: 1, Text: "x"}).DraftID

	if out := s.Decide(ctx, Decision{DraftID: id, Action: ActionCancel, ActorID: 1}); out.Status != StatusCancelled {
		t.Fatalf("cancel Status = %v", out.Status)
	}
	if out := s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 1}); out.Status != StatusNotFound {
		t.Fatalf("publish after cancel Status = %v, want not_found", out.Status)
	}
	if out := s.Decide(ctx, Decision{DraftID: id, Action: ActionCancel, ActorID: 1}); out.Status != StatusNotFound {
		t.Fatalf("repeated cancel Status = %v, want not_found", out.Status)
	}
	if pub.count() != 0 {
		t.Fatal("cancelled draft must never publish")
	}
}

func TestDecidePublishFailureDoesNotRestore(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{err: &publish.Error{Kind: publish.KindForbidden, Err: errors.New("forbidden")}}
	s, _ := newTestService(t, pub, nil)
	ctx := context.Background()

	id := s.Submit(ctx, Inbound{ChatID: 10, FromID: 1, Text: "x"}).DraftID

	out := s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 1})
	if out.Status != StatusPublishFailed {
		t.Fatalf("Status = %v, want publish_failed", out.Status)
	}
	if out.FailKind != publish.KindForbidden {
		t.Fatalf("FailKind = %v, want forbidden", out.FailKind)
	}

	// The draft stays consumed: no retry path.
	out = s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 1})
	if out.Status != StatusNotFound {
		t.Fatalf("retry Status = %v, want not_found", out.Status)
	}
	if pub.count() != 1 {
		t.Fatalf("publish calls = %d, want 1", pub.count())
	}
}

func TestDecideUnauthorizedActor(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	s, _ := newTestService(t, pub, []int64{1})
	ctx := context.Background()

	id := s.Submit(ctx, Inbound{ChatID: 10, FromID: 1, Text: "x"}).DraftID

	out := s.Decide(ctx, Decision{DraftID: id, Action: ActionPublish, ActorID: 99})
	if out.Status != StatusDenied {
		t.Fatalf("Status = %v, want denied", out.Status)
	}
	if s.Drafts().Len() != 1 {
		t.Fatal("denied decision must leave the draft pending")
	}
	if pub.count() != 0 {
		t.Fatal("denied decision must not publish")
	}
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
