package publish

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"postbot/internal/transport"
	"postbot/pkg/logx"
	"postbot/pkg/tgui"
)

// Config carries the channel publisher settings. Target can be a @username or
// a numeric chat id (-100...).
type Config struct {
	Target       string
	SubscribeURL string
	SuggestURL   string
	Autosign     string
	RatePerSec   int
}

// ChannelPublisher sends finalized payloads to one Telegram channel through
// the transport adapter: albums as a single media group (caption on the first
// item), single media with caption, text as a plain message. A promo keyboard
// (subscribe + suggest buttons) rides on the published message; albums cannot
// carry reply markup, so it follows as a separate message.
type ChannelPublisher struct {
	adapter transport.Adapter
	log     logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	// resolved numeric id for a @username target; invalidated on SetTarget.
	resolvedID int64
}

func NewChannel(cfg Config, adapter transport.Adapter, log logx.Logger) *ChannelPublisher {
	p := &ChannelPublisher{adapter: adapter, log: log}
	p.Apply(cfg)
	return p
}

// Apply installs new settings (config reload). A changed target drops the
// cached resolution.
func (p *ChannelPublisher) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	p.mu.Lock()
	if cfg.Target != p.cfg.Target {
		p.resolvedID = 0
	}
	p.cfg = cfg
	p.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	p.mu.Unlock()
}

// SetTarget overrides the broadcast target at runtime (/setchannel). The
// override lasts for the process lifetime only.
func (p *ChannelPublisher) SetTarget(target string) {
	p.mu.Lock()
	p.cfg.Target = strings.TrimSpace(target)
	p.resolvedID = 0
	p.mu.Unlock()
}

// RenderText returns the decorated, HTML-escaped form of text exactly as it
// would be published. The preview uses it so what the operator confirms is
// what goes out.
func (p *ChannelPublisher) RenderText(text string) string {
	p.mu.Lock()
	sign := p.cfg.Autosign
	p.mu.Unlock()
	return decorate(text, sign)
}

// Target returns the current broadcast target.
func (p *ChannelPublisher) Target() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.Target
}

// Resolve validates the current target and returns its chat info. Used by
// /checkchannel and lazily before the first send.
func (p *ChannelPublisher) Resolve(ctx context.Context) (transport.ChatInfo, error) {
	target := p.Target()
	if target == "" {
		return transport.ChatInfo{}, &Error{Kind: KindTargetNotFound, Err: errEmptyTarget}
	}
	res, ok := p.adapter.(transport.ChatResolver)
	if !ok {
		// No resolver capability: numeric targets still work unresolved.
		if id, err := strconv.ParseInt(target, 10, 64); err == nil {
			return transport.ChatInfo{ID: id}, nil
		}
		return transport.ChatInfo{}, &Error{Kind: KindTargetNotFound, Err: errNoResolver}
	}
	info, err := res.ResolveChat(ctx, target)
	if err != nil {
		return transport.ChatInfo{}, Classify(err)
	}
	p.mu.Lock()
	if p.cfg.Target == target {
		p.resolvedID = info.ID
	}
	p.mu.Unlock()
	return info, nil
}

func (p *ChannelPublisher) destination(ctx context.Context) (transport.ChatTarget, error) {
	p.mu.Lock()
	id := p.resolvedID
	target := p.cfg.Target
	p.mu.Unlock()

	if id != 0 {
		return transport.ChatTarget{ChatID: id}, nil
	}
	if n, err := strconv.ParseInt(target, 10, 64); err == nil && n != 0 {
		return transport.ChatTarget{ChatID: n}, nil
	}
	info, err := p.Resolve(ctx)
	if err != nil {
		return transport.ChatTarget{}, err
	}
	return transport.ChatTarget{ChatID: info.ID}, nil
}

func (p *ChannelPublisher) Publish(ctx context.Context, payload Payload) error {
	p.mu.Lock()
	cfg := p.cfg
	lim := p.limiter
	p.mu.Unlock()

	to, err := p.destination(ctx)
	if err != nil {
		return err
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return Classify(err)
		}
	}

	text := decorate(payload.Text, cfg.Autosign)
	markup := promoMarkup(cfg)

	opt := &transport.SendOptions{ParseMode: tele.ModeHTML, DisablePreview: true}
	if markup != nil {
		opt.ReplyMarkupAdapter = markup
	}

	switch len(payload.Media) {
	case 0:
		body := text
		if body == "" {
			// Telegram rejects empty message bodies; the keyboard still needs
			// a carrier message.
			body = "​"
		}
		_, err = p.adapter.SendText(ctx, to, body, opt)
	case 1:
		_, err = p.adapter.SendMedia(ctx, to, transport.MediaItem{Ref: payload.Media[0], Caption: text}, opt)
	default:
		items := make([]transport.MediaItem, 0, len(payload.Media))
		for i, ref := range payload.Media {
			it := transport.MediaItem{Ref: ref}
			if i == 0 {
				it.Caption = text
			}
			items = append(items, it)
		}
		err = p.adapter.SendAlbum(ctx, to, items, &transport.SendOptions{ParseMode: tele.ModeHTML})
		if err == nil && markup != nil {
			_, err = p.adapter.SendText(ctx, to, "​", opt)
		}
	}
	if err != nil {
		return Classify(err)
	}
	return nil
}

// decorate appends the autosign and escapes the result for HTML parse mode.
// The sign is appended before escaping so it cannot inject markup either.
func decorate(text, autosign string) string {
	t := strings.TrimRight(text, " \n")
	if autosign != "" {
		if t == "" {
			t = autosign
		} else if strings.HasPrefix(autosign, "\n") {
			t += autosign
		} else {
			t += "\n" + autosign
		}
	}
	if t == "" {
		return ""
	}
	return tgui.Esc(t).String()
}

func promoMarkup(cfg Config) *tele.ReplyMarkup {
	var btns []tele.Btn
	if cfg.SubscribeURL != "" {
		btns = append(btns, tgui.URLBtn("✅ Подписаться на канал", cfg.SubscribeURL))
	}
	if cfg.SuggestURL != "" {
		btns = append(btns, tgui.URLBtn("✉️ Предложить новость", cfg.SuggestURL))
	}
	if len(btns) == 0 {
		return nil
	}
	kb := tgui.NewInline()
	for _, b := range btns {
		kb.Row(b)
	}
	return kb.Markup()
}
