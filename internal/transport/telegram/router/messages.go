package router

import (
	"fmt"
	"strconv"

	"postbot/internal/publish"
	"postbot/internal/review"
)

// User-facing wording. The bot talks to its operators in Russian; logs and
// events stay in English.
const (
	msgAccessDenied    = "⛔️ Доступ запрещён."
	msgUnsupportedItem = "🤷 Такой тип вложения не поддерживается. Пришлите текст, фото, видео, документ или GIF."
	msgBadCallback     = "Кнопка устарела."

	msgDraftGone      = "🤷 Черновик не найден. Возможно, он уже опубликован или отменён."
	msgDraftCancelled = "❌ Публикация отменена."
	msgPublished      = "✅ Опубликовано в канале."

	msgPreviewHeader = "🧾 Предпросмотр поста. Опубликовать?"

	btnPublish = "✅ Опубликовать"
	btnCancel  = "❌ Отмена"
)

func parseDraftID(payload string) (int64, error) {
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad draft id %q", payload)
	}
	return id, nil
}

func (r *Router) outcomeText(out review.Outcome) string {
	switch out.Status {
	case review.StatusDenied:
		return msgAccessDenied
	case review.StatusNotFound:
		return msgDraftGone
	case review.StatusCancelled:
		return msgDraftCancelled
	case review.StatusPublished:
		return msgPublished
	case review.StatusPublishFailed:
		return publishFailText(out.FailKind)
	}
	return msgDraftGone
}

func publishFailText(kind publish.FailKind) string {
	switch kind {
	case publish.KindTargetNotFound:
		return "🚫 Канал не найден. Проверьте настройку командой /checkchannel."
	case publish.KindForbidden:
		return "🚫 Нет прав на публикацию. Добавьте бота администратором канала."
	}
	return "⚠️ Не удалось опубликовать пост. Попробуйте ещё раз."
}
