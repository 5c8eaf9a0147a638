package tgui

import "testing"

func TestEsc(t *testing.T) {
	t.Parallel()
	got := Esc(`<b>&"x"</b>`).String()
	if got != "&lt;b&gt;&amp;&#34;x&#34;&lt;/b&gt;" {
		t.Fatalf("Esc = %q", got)
	}
}

func TestWrappers(t *testing.T) {
	t.Parallel()
	if B("a<b").String() != "<b>a&lt;b</b>" {
		t.Fatalf("B = %q", B("a<b"))
	}
	if Code("x").String() != "<code>x</code>" {
		t.Fatalf("Code = %q", Code("x"))
	}
	link := Link(`click "here"`, `https://e.com/?a=1&b=2`).String()
	if link != `<a href="https://e.com/?a=1&amp;b=2">click &#34;here&#34;</a>` {
		t.Fatalf("Link = %q", link)
	}
}

func TestJoinHSkipsBlank(t *testing.T) {
	t.Parallel()
	got := JoinH("\n", Raw("a"), Raw("  "), Raw(""), Raw("b")).String()
	if got != "a\nb" {
		t.Fatalf("JoinH = %q", got)
	}
}

func TestDataRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		scope, action, payload string
	}{
		{"post", "pub", "42"},
		{"post", "cancel", ""},
		{"s", "a", "p:with:colons"},
	}
	for _, tt := range tests {
		d := Data(tt.scope, tt.action, tt.payload)
		scope, action, payload := SplitData(d)
		if scope != tt.scope || action != tt.action || payload != tt.payload {
			t.Fatalf("round trip %q = %q, %q, %q", d, scope, action, payload)
		}
	}
}

func TestSplitDataPartial(t *testing.T) {
	t.Parallel()
	scope, action, payload := SplitData("onlyscope")
	if scope != "onlyscope" || action != "" || payload != "" {
		t.Fatalf("SplitData = %q, %q, %q", scope, action, payload)
	}
}

func TestInlineRows(t *testing.T) {
	t.Parallel()
	kb := ConfirmInline(Btn("yes", "s:y"), Btn("no", "s:n"))
	rm := kb.Markup()
	if len(rm.InlineKeyboard) != 1 || len(rm.InlineKeyboard[0]) != 2 {
		t.Fatalf("keyboard shape = %v", rm.InlineKeyboard)
	}
	if rm.InlineKeyboard[0][0].Text != "yes" {
		t.Fatalf("button = %+v", rm.InlineKeyboard[0][0])
	}
}
