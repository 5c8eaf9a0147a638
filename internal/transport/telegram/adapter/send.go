package adapter

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "postbot/internal/transport"
)

const telegramTextLimit = 4000

func toSendOptions(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	so := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}
	if rm, ok := opt.ReplyMarkupAdapter.(*tele.ReplyMarkup); ok {
		so.ReplyMarkup = rm
	}
	return so
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chunks := splitText(text, telegramTextLimit, opt.ParseMode)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	chat := &tele.Chat{ID: to.ChatID}
	var first kit.MessageRef
	for i, chunk := range chunks {
		if err := ctxErr(ctx); err != nil {
			return first, err
		}
		so := toSendOptions(to, opt)
		// Attach markup only to the first chunk.
		if i > 0 {
			so.ReplyMarkup = nil
		}
		msg, err := a.bot.Send(chat, chunk, so)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// mediaFor converts a media item into the telebot type for its kind. The
// returned values are both Sendable (single sends) and Inputtable (albums).
func mediaFor(item kit.MediaItem) tele.Inputtable {
	f := tele.File{FileID: item.Ref.FileID}
	switch item.Ref.Kind {
	case kit.MediaVideo:
		return &tele.Video{File: f, Caption: item.Caption}
	case kit.MediaDocument:
		return &tele.Document{File: f, Caption: item.Caption}
	case kit.MediaAnimation:
		return &tele.Animation{File: f, Caption: item.Caption}
	default:
		return &tele.Photo{File: f, Caption: item.Caption}
	}
}

func (a *Adapter) SendMedia(ctx context.Context, to kit.ChatTarget, item kit.MediaItem, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return kit.MessageRef{}, err
	}
	chat := &tele.Chat{ID: to.ChatID}
	msg, err := a.bot.Send(chat, mediaFor(item), toSendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, err
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

func (a *Adapter) SendAlbum(ctx context.Context, to kit.ChatTarget, items []kit.MediaItem, opt *kit.SendOptions) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	album := make(tele.Album, 0, len(items))
	for _, it := range items {
		album = append(album, mediaFor(it))
	}
	chat := &tele.Chat{ID: to.ChatID}
	_, err := a.bot.SendAlbum(chat, album, toSendOptions(to, opt))
	return err
}

func (a *Adapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chunks := splitText(text, telegramTextLimit, opt.ParseMode)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	to := kit.ChatTarget{ChatID: ref.ChatID, ThreadID: ref.ThreadID}
	if _, err := a.bot.Edit(m, chunks[0], toSendOptions(to, opt)); err != nil {
		return err
	}

	// Overflow that no longer fits the edited message goes out as new sends.
	for _, chunk := range chunks[1:] {
		if err := ctxErr(ctx); err != nil {
			return err
		}
		so := toSendOptions(to, opt)
		so.ReplyMarkup = nil
		if _, err := a.bot.Send(&tele.Chat{ID: ref.ChatID}, chunk, so); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

// splitText splits long messages into chunks that are safe to send to
// Telegram. It prefers newline boundaries and (best-effort) avoids splitting
// inside HTML tags when ParseMode is HTML.
func splitText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window, but not
		// so early that chunks get tiny.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		// Don't split inside a dangling tag for HTML parse mode.
		if strings.EqualFold(parseMode, tele.ModeHTML) && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, chunk)

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
