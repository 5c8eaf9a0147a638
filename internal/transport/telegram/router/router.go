// Package router turns neutral transport updates into draft pipeline calls
// and renders the operator-facing replies. All user-visible wording lives
// here; the pipeline itself only returns typed outcomes.
package router

import (
	"context"
	"strings"
	"time"

	"postbot/internal/access"
	"postbot/internal/publish"
	"postbot/internal/review"
	rtsup "postbot/internal/runtime/supervisor"
	"postbot/internal/transport"
	logx "postbot/pkg/logx"
	"postbot/pkg/tgui"
)

const handlerTimeout = 30 * time.Second

// callbackScope prefixes all callback data emitted by this bot.
const callbackScope = "post"

type Router struct {
	adapter transport.Adapter
	svc     *review.Service
	pub     *publish.ChannelPublisher
	gate    *access.Gate
	log     logx.Logger

	handle HandlerFunc
}

func New(adapter transport.Adapter, svc *review.Service, pub *publish.ChannelPublisher, gate *access.Gate, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{adapter: adapter, svc: svc, pub: pub, gate: gate, log: log}
	r.handle = Chain(r.dispatch,
		MWPanicRecover(log),
		MWTimeout(handlerTimeout),
		MWRequestLog(log),
	)
	return r
}

// Run consumes updates until ctx ends. Each update is handled on its own
// supervised goroutine: album items, decision callbacks, and commands are
// inherently concurrent and must not block one another.
func (r *Router) Run(ctx context.Context, updates <-chan transport.Update) {
	sup := rtsup.New(ctx, rtsup.WithLogger(r.log.With(logx.String("comp", "router"))))
	for {
		select {
		case <-ctx.Done():
			_ = sup.Wait(context.Background())
			return
		case up, ok := <-updates:
			if !ok {
				_ = sup.Wait(context.Background())
				return
			}
			req := newRequest(up, r.log)
			sup.Go0("router.handle", func(c context.Context) {
				_ = r.handle(c, req)
			})
		}
	}
}

func newRequest(up transport.Update, log logx.Logger) *Request {
	req := &Request{Update: up}
	switch up.Kind {
	case transport.UpdateMessage:
		m := up.Message
		req.Chat = transport.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID}
		req.FromID = m.FromID
		if cmd, args, ok := parseCommand(m.Text); ok {
			req.Command = cmd
			req.Args = args
		}
	case transport.UpdateCallback:
		cb := up.Callback
		req.Chat = transport.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID}
		req.FromID = cb.FromID
	}
	req.Logger = log.With(
		logx.Int64("chat_id", req.Chat.ChatID),
		logx.Int64("from_id", req.FromID),
	)
	return req
}

// parseCommand extracts "/cmd args" from message text, tolerating the
// "/cmd@botname" form used in groups.
func parseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	head = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (r *Router) dispatch(ctx context.Context, req *Request) error {
	switch req.Update.Kind {
	case transport.UpdateMessage:
		if req.Command != "" {
			return r.handleCommand(ctx, req)
		}
		return r.handleSubmission(ctx, req)
	case transport.UpdateCallback:
		return r.handleCallback(ctx, req)
	}
	return nil
}

func (r *Router) handleSubmission(ctx context.Context, req *Request) error {
	m := req.Update.Message
	in := review.Inbound{
		ChatID:   m.ChatID,
		ThreadID: m.ThreadID,
		FromID:   m.FromID,
		Seq:      m.ID,
		AlbumID:  m.AlbumID,
		Media:    m.Media,
	}
	if m.Media != nil {
		in.Text = m.Caption
	} else {
		in.Text = m.Text
	}

	out := r.svc.Submit(ctx, in)
	switch out.Status {
	case review.StatusDenied:
		// Don't spam a denial per album item; only standalone submissions
		// get the reply.
		if m.AlbumID == "" {
			return r.reply(ctx, req, msgAccessDenied)
		}
		return nil
	case review.StatusRejected:
		return r.reply(ctx, req, msgUnsupportedItem)
	default:
		// Buffered items and created drafts answer through the preview.
		return nil
	}
}

func (r *Router) handleCallback(ctx context.Context, req *Request) error {
	cb := req.Update.Callback
	scope, action, payload := tgui.SplitData(cb.Data)
	if scope != callbackScope {
		return r.adapter.AnswerCallback(ctx, cb.ID, "")
	}

	draftID, err := parseDraftID(payload)
	if err != nil {
		return r.adapter.AnswerCallback(ctx, cb.ID, msgBadCallback)
	}

	var act review.Action
	switch action {
	case "pub":
		act = review.ActionPublish
	case "cancel":
		act = review.ActionCancel
	default:
		return r.adapter.AnswerCallback(ctx, cb.ID, msgBadCallback)
	}

	// Acknowledge the tap immediately; publishing may take a moment.
	_ = r.adapter.AnswerCallback(ctx, cb.ID, "")

	out := r.svc.Decide(ctx, review.Decision{
		DraftID: draftID,
		Action:  act,
		ActorID: cb.FromID,
	})

	ref := transport.MessageRef{ChatID: cb.ChatID, ThreadID: cb.ThreadID, MessageID: cb.MessageID}
	text := r.outcomeText(out)
	// Swap the confirm keyboard out for the outcome text. A failed edit
	// (e.g. message too old) falls back to a fresh message.
	if err := r.adapter.EditText(ctx, ref, text, nil); err != nil {
		_, err = r.adapter.SendText(ctx, req.Chat, text, nil)
		return err
	}
	return nil
}

func (r *Router) reply(ctx context.Context, req *Request, text string) error {
	_, err := r.adapter.SendText(ctx, req.Chat, text, nil)
	return err
}
