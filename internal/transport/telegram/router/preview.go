package router

import (
	"context"
	"fmt"
	"strconv"

	"postbot/internal/review"
	"postbot/internal/transport"
	logx "postbot/pkg/logx"
	"postbot/pkg/tgui"
)

// RenderPreview shows a pending draft back to the submitter exactly as it
// will look in the channel, with publish/cancel controls attached. It is the
// review.Renderer wiring for the Telegram transport.
func (r *Router) RenderPreview(ctx context.Context, req review.PreviewRequest) error {
	body := r.pub.RenderText(req.Text)
	markup := confirmMarkup(req.DraftID)
	opt := &transport.SendOptions{
		ParseMode:          transport.ParseHTML,
		DisablePreview:     true,
		ReplyMarkupAdapter: markup,
	}

	switch len(req.Media) {
	case 0:
		text := msgPreviewHeader + "\n\n" + body
		_, err := r.adapter.SendText(ctx, req.Chat, text, opt)
		return err
	case 1:
		item := transport.MediaItem{Ref: req.Media[0], Caption: body}
		_, err := r.adapter.SendMedia(ctx, req.Chat, item, opt)
		return err
	default:
		// Telegram does not allow inline keyboards on media groups, so the
		// album goes first and the controls follow as a separate message.
		items := make([]transport.MediaItem, len(req.Media))
		for i, m := range req.Media {
			items[i] = transport.MediaItem{Ref: m}
		}
		items[0].Caption = body
		if err := r.adapter.SendAlbum(ctx, req.Chat, items, &transport.SendOptions{ParseMode: transport.ParseHTML}); err != nil {
			return fmt.Errorf("send preview album: %w", err)
		}
		text := fmt.Sprintf("%s\n\n📎 Альбом из %d вложений.", msgPreviewHeader, len(req.Media))
		_, err := r.adapter.SendText(ctx, req.Chat, text, opt)
		if err != nil {
			r.log.Warn("preview controls send failed",
				logx.Int64("draft_id", req.DraftID), logx.Err(err))
		}
		return err
	}
}

func confirmMarkup(draftID int64) any {
	id := strconv.FormatInt(draftID, 10)
	return tgui.ConfirmInline(
		tgui.Btn(btnPublish, tgui.Data(callbackScope, "pub", id)),
		tgui.Btn(btnCancel, tgui.Data(callbackScope, "cancel", id)),
	).Markup()
}
