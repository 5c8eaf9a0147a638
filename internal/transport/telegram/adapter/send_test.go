package adapter

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"

	kit "postbot/internal/transport"
)

func TestSplitTextShortPassthrough(t *testing.T) {
	t.Parallel()
	got := splitText("short", 100, "")
	if len(got) != 1 || got[0] != "short" {
		t.Fatalf("splitText = %v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("line one\n", 10) // 90 runes
	chunks := splitText(text, 50, "")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 50 {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, len([]rune(c)))
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d has dangling newline: %q", i, c)
		}
	}
	joined := strings.Join(chunks, "\n")
	if !strings.HasPrefix(joined, "line one") {
		t.Fatalf("content mangled: %q", joined)
	}
}

func TestSplitTextAvoidsDanglingHTMLTag(t *testing.T) {
	t.Parallel()
	// Force the window to end inside "<b>...".
	text := strings.Repeat("x", 46) + "<b>bold</b>" + strings.Repeat("y", 40)
	chunks := splitText(text, 48, tele.ModeHTML)
	for i, c := range chunks {
		opens := strings.Count(c, "<")
		closes := strings.Count(c, ">")
		if opens != closes {
			t.Fatalf("chunk %d splits inside a tag: %q", i, c)
		}
	}
}

func TestSplitTextNoNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 105)
	chunks := splitText(text, 50, "")
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total != 105 {
		t.Fatalf("total runes = %d, want 105", total)
	}
}

func TestMediaForKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind kit.MediaKind
		want string
	}{
		{kind: kit.MediaPhoto, want: "photo"},
		{kind: kit.MediaVideo, want: "video"},
		{kind: kit.MediaDocument, want: "document"},
		{kind: kit.MediaAnimation, want: "animation"},
	}
	for _, tt := range tests {
		item := kit.MediaItem{Ref: kit.MediaRef{Kind: tt.kind, FileID: "f"}, Caption: "c"}
		got := mediaFor(item)
		if got.MediaType() != tt.want {
			t.Fatalf("mediaFor(%s).MediaType() = %q, want %q", tt.kind, got.MediaType(), tt.want)
		}
	}
}

func TestToSendOptions(t *testing.T) {
	t.Parallel()
	rm := &tele.ReplyMarkup{}
	so := toSendOptions(kit.ChatTarget{ChatID: 1, ThreadID: 7}, &kit.SendOptions{
		ParseMode:          kit.ParseHTML,
		DisablePreview:     true,
		ReplyMarkupAdapter: rm,
	})
	if so.ParseMode != kit.ParseHTML || !so.DisableWebPagePreview || so.ThreadID != 7 || so.ReplyMarkup != rm {
		t.Fatalf("options mapped wrong: %+v", so)
	}

	so = toSendOptions(kit.ChatTarget{}, nil)
	if so.ReplyMarkup != nil || so.ParseMode != "" {
		t.Fatalf("nil options should map to zero values: %+v", so)
	}
}
