// Package review is the stateful coordinator behind the bot: it buffers
// album bursts, holds drafts awaiting operator confirmation, and guarantees
// at-most-one publish per draft under concurrent or duplicate decisions.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"postbot/internal/access"
	"postbot/internal/album"
	"postbot/internal/draft"
	"postbot/internal/eventbus"
	"postbot/internal/publish"
	"postbot/internal/transport"
	"postbot/pkg/logx"
)

const previewTimeout = 15 * time.Second

type Service struct {
	gate     *access.Gate
	drafts   *draft.Store
	albums   *album.Aggregator
	pub      publish.Publisher
	renderer Renderer
	bus      eventbus.Bus
	log      logx.Logger

	// baseCtx bounds work started by the album debounce timers, which fire
	// outside any request; it should be the app's run context.
	baseCtx context.Context
}

type Options struct {
	Gate      *access.Gate
	Publisher publish.Publisher
	Renderer  Renderer
	Bus       eventbus.Bus
	Logger    logx.Logger
	// AlbumWait is the debounce window; zero means album.DefaultWait.
	AlbumWait time.Duration
	// BaseCtx is used for timer-driven work; nil means context.Background().
	BaseCtx context.Context
}

func New(opts Options) *Service {
	log := opts.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	baseCtx := opts.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	s := &Service{
		gate:     opts.Gate,
		drafts:   draft.NewStore(),
		pub:      opts.Publisher,
		renderer: opts.Renderer,
		bus:      opts.Bus,
		log:      log,
		baseCtx:  baseCtx,
	}
	s.albums = album.New(opts.AlbumWait, s.onBatch)
	return s
}

// Drafts exposes the store for housekeeping (prune sweeps, /settings counts).
func (s *Service) Drafts() *draft.Store { return s.drafts }

// Albums exposes the aggregator for housekeeping.
func (s *Service) Albums() *album.Aggregator { return s.albums }

// SetAlbumWait adjusts the debounce window (config reload).
func (s *Service) SetAlbumWait(d time.Duration) { s.albums.SetWait(d) }

// Close stops pending album timers. Pending drafts are simply abandoned;
// state is process-lifetime only.
func (s *Service) Close() { s.albums.Close() }

// Submit routes one inbound item. Authorization is checked before any
// mutation; unsupported media kinds are rejected at this boundary and never
// buffered. Items carrying an album key are debounced into one draft per
// burst; everything else becomes a draft immediately.
func (s *Service) Submit(ctx context.Context, in Inbound) Outcome {
	if !s.gate.Allowed(in.FromID) {
		s.log.Debug("submission denied",
			logx.Int64("from_id", in.FromID),
			logx.Int64("chat_id", in.ChatID),
		)
		return Outcome{Status: StatusDenied}
	}
	if in.Media != nil && !transport.ValidMediaKind(in.Media.Kind) {
		s.log.Warn("unsupported media kind rejected",
			logx.String("kind", string(in.Media.Kind)),
			logx.Int64("chat_id", in.ChatID),
		)
		return Outcome{Status: StatusRejected}
	}

	if in.Media != nil && in.AlbumID != "" {
		s.albums.Add(
			album.Key{ChatID: in.ChatID, GroupID: in.AlbumID},
			album.Item{Seq: in.Seq, Text: in.Text, Media: *in.Media},
			in.FromID,
		)
		return Outcome{Status: StatusBuffered}
	}

	d := draft.Draft{ChatID: in.ChatID, AuthorID: in.FromID, Text: in.Text}
	if in.Media != nil {
		d.Media = []transport.MediaRef{*in.Media}
	}
	return s.createDraft(ctx, d)
}

// onBatch is the aggregator sink: a quiet burst becomes one draft.
func (s *Service) onBatch(b album.Batch) {
	ctx, cancel := context.WithTimeout(s.baseCtx, previewTimeout)
	defer cancel()

	s.publishEvent(eventbus.EventAlbumFlushed, DraftEvent{
		ChatID:  b.ChatID,
		ActorID: b.AuthorID,
		Media:   len(b.Media),
	})
	s.createDraft(ctx, draft.Draft{
		ChatID:   b.ChatID,
		AuthorID: b.AuthorID,
		Text:     b.Caption,
		Media:    b.Media,
	})
}

func (s *Service) createDraft(ctx context.Context, d draft.Draft) Outcome {
	id := s.drafts.Create(d)
	s.log.Info("draft created",
		logx.Int64("draft_id", id),
		logx.Int64("chat_id", d.ChatID),
		logx.Int64("author_id", d.AuthorID),
		logx.Int("media", len(d.Media)),
	)
	s.publishEvent(eventbus.EventDraftCreated, DraftEvent{
		DraftID: id,
		ChatID:  d.ChatID,
		ActorID: d.AuthorID,
		Media:   len(d.Media),
	})

	if s.renderer != nil {
		req := PreviewRequest{
			Chat:    transport.ChatTarget{ChatID: d.ChatID},
			DraftID: id,
			Text:    d.Text,
			Media:   d.Media,
		}
		if err := s.renderer.RenderPreview(ctx, req); err != nil {
			// The draft stays pending; the operator just didn't get the
			// preview message. Worth a warning, not a rollback.
			s.log.Warn("preview render failed", logx.Int64("draft_id", id), logx.Err(err))
		}
	}
	return Outcome{Status: StatusDraftCreated, DraftID: id}
}

// Decide applies an operator decision. Authorization uses the deciding actor,
// not the draft author. For publish, the draft is removed from the store
// BEFORE the publisher runs: a concurrent or repeated publish signal for the
// same id observes absence and no-ops, which is what bounds delivery to
// at-most-once. A failed publish does not restore the draft.
func (s *Service) Decide(ctx context.Context, dec Decision) Outcome {
	if !s.gate.Allowed(dec.ActorID) {
		return Outcome{Status: StatusDenied, DraftID: dec.DraftID}
	}

	switch dec.Action {
	case ActionCancel:
		if !s.drafts.Remove(dec.DraftID) {
			return Outcome{Status: StatusNotFound, DraftID: dec.DraftID}
		}
		s.log.Info("draft cancelled",
			logx.Int64("draft_id", dec.DraftID),
			logx.Int64("actor_id", dec.ActorID),
		)
		s.publishEvent(eventbus.EventDraftCancelled, DraftEvent{
			DraftID: dec.DraftID,
			ActorID: dec.ActorID,
		})
		return Outcome{Status: StatusCancelled, DraftID: dec.DraftID}

	case ActionPublish:
		d, ok := s.drafts.Take(dec.DraftID)
		if !ok {
			return Outcome{Status: StatusNotFound, DraftID: dec.DraftID}
		}

		attempt := uuid.NewString()
		log := s.log.With(
			logx.Int64("draft_id", dec.DraftID),
			logx.String("attempt", attempt),
		)
		log.Info("publishing draft",
			logx.Int64("actor_id", dec.ActorID),
			logx.Int("media", len(d.Media)),
		)

		err := s.pub.Publish(ctx, publish.Payload{Text: d.Text, Media: d.Media})
		if err != nil {
			kind := publish.KindOf(err)
			log.Warn("publish failed", logx.String("kind", kind.String()), logx.Err(err))
			s.publishEvent(eventbus.EventPublishFailed, DraftEvent{
				DraftID:  dec.DraftID,
				ChatID:   d.ChatID,
				ActorID:  dec.ActorID,
				Media:    len(d.Media),
				Attempt:  attempt,
				FailKind: kind.String(),
				Err:      err.Error(),
			})
			return Outcome{Status: StatusPublishFailed, DraftID: dec.DraftID, FailKind: kind, Err: err}
		}

		log.Info("draft published")
		s.publishEvent(eventbus.EventDraftPublished, DraftEvent{
			DraftID: dec.DraftID,
			ChatID:  d.ChatID,
			ActorID: dec.ActorID,
			Media:   len(d.Media),
			Attempt: attempt,
		})
		return Outcome{Status: StatusPublished, DraftID: dec.DraftID}
	}

	return Outcome{Status: StatusRejected, DraftID: dec.DraftID}
}

func (s *Service) publishEvent(typ string, data DraftEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
