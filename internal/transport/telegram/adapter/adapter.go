// Package adapter bridges telebot to the neutral transport types. Inbound
// updates are converted and pushed non-blocking into the app's update
// channel; outbound calls translate MediaRefs back into telebot sendables.
package adapter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "postbot/internal/runtime/supervisor"
	kit "postbot/internal/transport"
	logx "postbot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	out     atomic.Value // stores (chan<- kit.Update)
	runMu   sync.Mutex
	running bool

	// sup owns adapter internal goroutines (poll loop, drop logger, stop watcher).
	sup *rtsup.Supervisor

	// droppedUpdates counts updates dropped because the consumer was slower
	// than the Telegram poll loop. Logged periodically to avoid per-update spam.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	// Ensure atomic.Value is initialized with a stable dynamic type.
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	// Handlers forward to the CURRENT output channel. Start() may swap it.
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil {
			return nil
		}
		a.sendUpdate(kit.Update{Kind: kit.UpdateMessage, Message: baseMessage(m)})
		return nil
	})

	media := func(kind kit.MediaKind, fileID func(*tele.Message) string) func(tele.Context) error {
		return func(c tele.Context) error {
			m := c.Message()
			if m == nil {
				return nil
			}
			id := fileID(m)
			if id == "" {
				return nil
			}
			km := baseMessage(m)
			km.Media = &kit.MediaRef{Kind: kind, FileID: id}
			a.sendUpdate(kit.Update{Kind: kit.UpdateMessage, Message: km})
			return nil
		}
	}

	a.bot.Handle(tele.OnPhoto, media(kit.MediaPhoto, func(m *tele.Message) string {
		if m.Photo == nil {
			return ""
		}
		return m.Photo.FileID
	}))
	a.bot.Handle(tele.OnVideo, media(kit.MediaVideo, func(m *tele.Message) string {
		if m.Video == nil {
			return ""
		}
		return m.Video.FileID
	}))
	a.bot.Handle(tele.OnDocument, media(kit.MediaDocument, func(m *tele.Message) string {
		if m.Document == nil {
			return ""
		}
		return m.Document.FileID
	}))
	a.bot.Handle(tele.OnAnimation, media(kit.MediaAnimation, func(m *tele.Message) string {
		if m.Animation == nil {
			return ""
		}
		return m.Animation.FileID
	}))

	a.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		m := c.Message()
		if cb == nil || m == nil {
			return nil
		}
		a.sendUpdate(kit.Update{
			Kind: kit.UpdateCallback,
			Callback: &kit.Callback{
				ID:        cb.ID,
				ChatID:    m.Chat.ID,
				ThreadID:  m.ThreadID,
				FromID:    cb.Sender.ID,
				MessageID: m.ID,
				Data:      strings.TrimSpace(cb.Data),
			},
		})
		return nil
	})
}

func baseMessage(m *tele.Message) *kit.Message {
	km := &kit.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ThreadID: m.ThreadID,
		Text:     m.Text,
		Caption:  m.Caption,
		AlbumID:  m.AlbumID,
	}
	if m.Sender != nil {
		km.FromID = m.Sender.ID
		km.FromUsername = m.Sender.Username
	}
	return km
}

func (a *Adapter) sendUpdate(up kit.Update) {
	v := a.out.Load()
	out, _ := v.(chan<- kit.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))),
		// adapter errors should not take down the whole app
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	// Periodic summary for dropped updates.
	sup.Go0("updates.drop_report", func(c context.Context) {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		report := func() {
			if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
				a.log.Warn("incoming updates dropped (channel full)",
					logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
			}
		}
		for {
			select {
			case <-c.Done():
				report()
				return
			case <-ticker.C:
				report()
			}
		}
	})

	// Stop telebot when the adapter context is cancelled.
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		if a.bot != nil {
			a.bot.Stop()
		}
	})

	// Telebot's Start() is a long-running loop. In some failure modes it can
	// exit unexpectedly; run it under a restart loop so the adapter self-heals.
	sup.GoRestart0("telebot.poll", func(c context.Context) {
		a.log.Info("polling started")
		if a.bot != nil {
			a.bot.Start()
		}
		a.log.Info("polling stopped")
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithStopOnCleanExit(false),
	)

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- kit.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if sup != nil {
		sup.Cancel()
	}
	// telebot Stop is expected to be fast; run it async just in case.
	if a.bot != nil {
		go a.bot.Stop()
	}
	if sup == nil {
		return nil
	}

	// Grace window: keep shutdown snappy even if getUpdates long-poll is
	// still waiting.
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sup.Wait(wctx); err != nil &&
		!errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		a.log.Warn("telegram stop error", logx.Err(err))
	}
	return nil
}

// ResolveChat resolves a @username or numeric id target into chat info.
func (a *Adapter) ResolveChat(ctx context.Context, target string) (kit.ChatInfo, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.ChatInfo{}, err
	}
	target = strings.TrimSpace(target)
	var (
		chat *tele.Chat
		err  error
	)
	if id, perr := strconv.ParseInt(target, 10, 64); perr == nil && id != 0 {
		chat, err = a.bot.ChatByID(id)
	} else {
		chat, err = a.bot.ChatByUsername(target)
	}
	if err != nil {
		return kit.ChatInfo{}, err
	}
	return kit.ChatInfo{
		ID:       chat.ID,
		Title:    chat.Title,
		Username: chat.Username,
		Type:     string(chat.Type),
	}, nil
}

// UpdateMenuCommands sets Telegram's global /menu command list.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	out := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		d := c.Description
		if d == "" {
			d = c.Command
		}
		out = append(out, tele.Command{Text: c.Command, Description: d})
	}
	return a.bot.SetCommands(out)
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
