package router

import (
	"context"
	"fmt"
	"strings"

	"postbot/internal/transport"
	logx "postbot/pkg/logx"
	"postbot/pkg/tgui"
)

// Commands is the command menu this bot registers with Telegram.
func Commands() []transport.BotCommand {
	return []transport.BotCommand{
		{Command: "start", Description: "Как пользоваться ботом"},
		{Command: "myid", Description: "Показать ваш Telegram ID"},
		{Command: "settings", Description: "Текущие настройки"},
		{Command: "setchannel", Description: "Сменить канал публикации"},
		{Command: "checkchannel", Description: "Проверить доступ к каналу"},
	}
}

func (r *Router) handleCommand(ctx context.Context, req *Request) error {
	switch req.Command {
	case "start":
		return r.cmdStart(ctx, req)
	case "myid":
		return r.cmdMyID(ctx, req)
	case "settings":
		return r.cmdSettings(ctx, req)
	case "setchannel":
		return r.cmdSetChannel(ctx, req)
	case "checkchannel":
		return r.cmdCheckChannel(ctx, req)
	}
	// Unknown commands are ignored rather than treated as post text; a typo'd
	// command accidentally published to the channel is worse than silence.
	req.Logger.Debug("unknown command", logx.String("command", req.Command))
	return nil
}

func (r *Router) cmdStart(ctx context.Context, req *Request) error {
	text := strings.Join([]string{
		"👋 Привет! Я публикую посты в канал.",
		"",
		"Пришлите мне текст, фото, видео, документ или GIF (можно альбомом),",
		"я покажу предпросмотр и опубликую после подтверждения.",
		"",
		"/myid — ваш Telegram ID",
		"/settings — текущие настройки",
		"/checkchannel — проверить доступ к каналу",
	}, "\n")
	return r.reply(ctx, req, text)
}

func (r *Router) cmdMyID(ctx context.Context, req *Request) error {
	text := fmt.Sprintf("Ваш ID: <code>%d</code>", req.FromID)
	_, err := r.adapter.SendText(ctx, req.Chat, text, &transport.SendOptions{ParseMode: transport.ParseHTML})
	return err
}

func (r *Router) cmdSettings(ctx context.Context, req *Request) error {
	if !r.gate.Allowed(req.FromID) {
		return r.reply(ctx, req, msgAccessDenied)
	}
	target := r.pub.Target()
	if target == "" {
		target = "не задан"
	}
	accessLine := "ограничен списком администраторов"
	if r.gate.Open() {
		accessLine = "открыт для всех (список администраторов пуст)"
	}
	text := strings.Join([]string{
		"⚙️ Настройки:",
		"Канал: " + tgui.Esc(target).String(),
		"Доступ: " + accessLine,
	}, "\n")
	_, err := r.adapter.SendText(ctx, req.Chat, text, &transport.SendOptions{ParseMode: transport.ParseHTML})
	return err
}

func (r *Router) cmdSetChannel(ctx context.Context, req *Request) error {
	if !r.gate.Allowed(req.FromID) {
		return r.reply(ctx, req, msgAccessDenied)
	}
	target := strings.TrimSpace(req.Args)
	if target == "" {
		return r.reply(ctx, req, "Использование: /setchannel @канал или /setchannel -100123456789")
	}
	r.pub.SetTarget(target)
	req.Logger.Info("channel target changed", logx.String("target", target))
	// Confirm reachability right away so a typo surfaces here, not at the
	// first publish attempt.
	return r.cmdCheckChannel(ctx, req)
}

func (r *Router) cmdCheckChannel(ctx context.Context, req *Request) error {
	if !r.gate.Allowed(req.FromID) {
		return r.reply(ctx, req, msgAccessDenied)
	}
	info, err := r.pub.Resolve(ctx)
	if err != nil {
		req.Logger.Warn("channel check failed", logx.Err(err))
		return r.reply(ctx, req, "🚫 Канал недоступен: "+err.Error())
	}
	title := info.Title
	if title == "" && info.Username != "" {
		title = "@" + info.Username
	}
	text := fmt.Sprintf("✅ Канал доступен: %s (id %d)", tgui.Esc(title), info.ID)
	_, err = r.adapter.SendText(ctx, req.Chat, text, &transport.SendOptions{ParseMode: transport.ParseHTML})
	return err
}
