// Package app assembles the bot: config, logging, transport, the draft
// pipeline, and housekeeping. It owns startup order and shutdown order.
package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"postbot/internal/access"
	"postbot/internal/album"
	"postbot/internal/config"
	"postbot/internal/eventbus"
	"postbot/internal/publish"
	"postbot/internal/review"
	rtsup "postbot/internal/runtime/supervisor"
	"postbot/internal/storage"
	"postbot/internal/transport"
	tgadapter "postbot/internal/transport/telegram/adapter"
	tgrouter "postbot/internal/transport/telegram/router"
	logx "postbot/pkg/logx"
)

const (
	// updateQueue bounds the adapter-to-router channel. The adapter drops
	// updates when it fills, which is the backpressure policy for a bot that
	// must never stall the Telegram poll loop.
	updateQueue = 256

	defaultSweepSpec = "@every 10m"
	defaultDraftTTL  = 24 * time.Hour

	// auditKeep bounds the persisted audit trail pruned by the sweep.
	auditKeep = 90 * 24 * time.Hour
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	adapter *tgadapter.Adapter
	gate    *access.Gate
	bus     eventbus.Bus
	pub     *publish.ChannelPublisher
	svc     *review.Service
	router  *tgrouter.Router
	store   storage.Store

	// draftTTL is read by the sweep and written by config reloads.
	draftTTL atomic.Int64

	cron *cron.Cron
	sup  *rtsup.Supervisor
}

// New loads and validates the config at path and wires every component.
// Nothing talks to Telegram yet except the bot handshake in the adapter.
func New(path string) (*App, error) {
	cfgMgr := config.NewManager(path)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// The logging service is built before the adapter so the adapter gets a
	// live logger; the telegram log sink is connected right after.
	logSvc, log := logx.New(logConfig(cfg), nil)
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))
	cfgMgr.SetValidator(func(ctx context.Context, c *config.Config) error {
		return config.Validate(c)
	})

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return nil, err
	}
	adapter, err := tgadapter.New(tgadapter.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}
	logSvc.SetSender(adapter)
	logSvc.SetTelegramTarget(cfg.Telegram.LogChatID, cfg.Telegram.LogThreadID)

	gate := access.New(cfg.Access.AdminIDs)
	bus := eventbus.New()
	pub := publish.NewChannel(publishConfig(cfg), adapter, log.With(logx.String("comp", "publish")))

	albumWait, err := config.ParseDurationOrDefault("album.wait", cfg.Album.Wait, album.DefaultWait)
	if err != nil {
		return nil, err
	}
	draftTTL, err := config.ParseDurationOrDefault("drafts.ttl", cfg.Drafts.TTL, defaultDraftTTL)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	a := &App{
		cfgMgr:  cfgMgr,
		logSvc:  logSvc,
		log:     log,
		adapter: adapter,
		gate:    gate,
		bus:     bus,
		pub:     pub,
		store:   store,
	}
	a.draftTTL.Store(int64(draftTTL))
	return a.build(albumWait), nil
}

func (a *App) build(albumWait time.Duration) *App {
	// Router and review service reference each other (the router renders
	// previews for drafts the service creates), so the service is built with
	// a renderer func resolved late.
	a.svc = review.New(review.Options{
		Gate:      a.gate,
		Publisher: a.pub,
		Renderer: review.RendererFunc(func(ctx context.Context, req review.PreviewRequest) error {
			return a.router.RenderPreview(ctx, req)
		}),
		Bus:       a.bus,
		Logger:    a.log.With(logx.String("comp", "review")),
		AlbumWait: albumWait,
	})
	a.router = tgrouter.New(a.adapter, a.svc, a.pub, a.gate, a.log.With(logx.String("comp", "router")))
	return a
}

// Run starts everything and blocks until ctx is cancelled, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log.With(logx.String("comp", "app"))))
	runCtx := a.sup.Context()

	updates := make(chan transport.Update, updateQueue)
	if err := a.adapter.Start(runCtx, updates); err != nil {
		return fmt.Errorf("start telegram adapter: %w", err)
	}

	a.sup.Go0("router.run", func(c context.Context) {
		a.router.Run(c, updates)
	})
	a.sup.Go("config.watch", a.cfgMgr.Watch)
	a.sup.Go0("config.apply", a.applyReloads)
	a.startAudit()
	a.startCron()

	if err := a.adapter.UpdateMenuCommands(runCtx, tgrouter.Commands()); err != nil {
		a.log.Warn("command menu update failed", logx.Err(err))
	}

	a.log.Info("bot started",
		logx.String("channel", a.pub.Target()),
		logx.Bool("open_access", a.gate.Open()),
	)

	<-ctx.Done()
	a.shutdown()
	return a.sup.FirstErr()
}

func (a *App) shutdown() {
	a.log.Info("shutting down")

	if a.cron != nil {
		cctx := a.cron.Stop()
		select {
		case <-cctx.Done():
		case <-time.After(5 * time.Second):
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.adapter.Stop(stopCtx); err != nil {
		a.log.Warn("adapter stop", logx.Err(err))
	}

	a.svc.Close()
	a.sup.Cancel()

	wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer wcancel()
	if err := a.sup.Wait(wctx); err != nil {
		a.log.Warn("workers did not stop cleanly", logx.Err(err))
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}
	_ = a.logSvc.Close()
}

// applyReloads pushes committed config changes into the live components.
func (a *App) applyReloads(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.gate.Apply(cfg.Access.AdminIDs)
	a.pub.Apply(publishConfig(cfg))
	a.logSvc.Apply(logConfig(cfg))
	a.logSvc.SetTelegramTarget(cfg.Telegram.LogChatID, cfg.Telegram.LogThreadID)

	// Already-validated fields; errors here mean Validate missed something.
	if wait, err := config.ParseDurationOrDefault("album.wait", cfg.Album.Wait, album.DefaultWait); err == nil {
		a.svc.SetAlbumWait(wait)
	}
	if ttl, err := config.ParseDurationOrDefault("drafts.ttl", cfg.Drafts.TTL, defaultDraftTTL); err == nil {
		a.draftTTL.Store(int64(ttl))
	}

	a.log.Info("config applied",
		logx.String("channel", cfg.Channel.Target),
		logx.Int("admins", len(cfg.Access.AdminIDs)),
	)
}

// startCron schedules housekeeping: expired draft cleanup, stale album
// buffers, and audit trail pruning.
func (a *App) startCron() {
	spec := a.cfgMgr.Get().Drafts.Sweep
	if spec == "" {
		spec = defaultSweepSpec
	}

	a.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{a.log})))
	if _, err := a.cron.AddFunc(spec, a.sweep); err != nil {
		a.log.Warn("bad sweep spec, using default",
			logx.String("spec", spec), logx.Err(err))
		_, _ = a.cron.AddFunc(defaultSweepSpec, a.sweep)
	}
	a.cron.Start()
}

func (a *App) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired := a.svc.Drafts().Prune(time.Duration(a.draftTTL.Load()))
	for _, d := range expired {
		a.log.Info("draft expired",
			logx.Int64("draft_id", d.ID),
			logx.Int64("chat_id", d.ChatID),
		)
		text := fmt.Sprintf("⌛ Черновик №%d не был подтверждён и удалён.", d.ID)
		if _, err := a.adapter.SendText(ctx, transport.ChatTarget{ChatID: d.ChatID}, text, nil); err != nil {
			a.log.Debug("expiry notice failed", logx.Int64("draft_id", d.ID), logx.Err(err))
		}
	}

	// Album buffers older than a few windows mean their flush timer was lost
	// (clock jumps, close races). Sweep them so entries never leak.
	if n := a.svc.Albums().Prune(time.Minute); n > 0 {
		a.log.Warn("stale album buffers dropped", logx.Int("count", n))
	}

	if a.store != nil {
		if err := a.store.PruneAudit(ctx, auditKeep); err != nil {
			a.log.Warn("audit prune failed", logx.Err(err))
		}
	}
}

// cronLogger adapts logx to cron's logger for panic recovery reporting.
type cronLogger struct{ log logx.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug(msg, logx.Any("kv", kv))
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error(msg, logx.Err(err), logx.Any("kv", kv))
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Telegram.LogThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func publishConfig(cfg *config.Config) publish.Config {
	return publish.Config{
		Target:       cfg.Channel.Target,
		SubscribeURL: cfg.Channel.SubscribeURL,
		SuggestURL:   cfg.Channel.SuggestURL,
		Autosign:     cfg.Channel.Autosign,
		RatePerSec:   cfg.Publish.RatePerSec,
	}
}
