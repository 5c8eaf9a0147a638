package app

import (
	"context"
	"time"

	"postbot/internal/eventbus"
	"postbot/internal/review"
	"postbot/internal/storage"
	logx "postbot/pkg/logx"
)

// startAudit subscribes to the pipeline events and persists them. With
// storage disabled the subscription is skipped entirely; the pipeline never
// knows whether anyone is listening.
func (a *App) startAudit() {
	if a.store == nil {
		return
	}
	events, unsub := a.bus.Subscribe(64)
	a.sup.Go0("audit.worker", func(c context.Context) {
		defer unsub()
		a.auditLoop(c, events)
	})
}

func (a *App) auditLoop(ctx context.Context, events <-chan eventbus.Event) {
	log := a.log.With(logx.String("comp", "audit"))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			entry, ok := auditEntry(ev)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.store.AppendAudit(wctx, entry)
			cancel()
			if err != nil {
				log.Warn("audit append failed",
					logx.String("event", ev.Type), logx.Err(err))
			}
		}
	}
}

func auditEntry(ev eventbus.Event) (storage.Entry, bool) {
	data, ok := ev.Data.(review.DraftEvent)
	if !ok {
		return storage.Entry{}, false
	}
	return storage.Entry{
		At:       ev.Time,
		Event:    ev.Type,
		DraftID:  data.DraftID,
		ChatID:   data.ChatID,
		ActorID:  data.ActorID,
		Media:    data.Media,
		Attempt:  data.Attempt,
		FailKind: data.FailKind,
		Error:    data.Err,
	}, true
}
