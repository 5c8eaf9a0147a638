package router

import (
	"strings"
	"testing"

	"postbot/internal/publish"
	"postbot/internal/review"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		cmd  string
		args string
		ok   bool
	}{
		{text: "/start", cmd: "start", ok: true},
		{text: "/setchannel @news", cmd: "setchannel", args: "@news", ok: true},
		{text: "/MyID", cmd: "myid", ok: true},
		{text: "/settings@postbot", cmd: "settings", ok: true},
		{text: "/checkchannel@postbot extra", cmd: "checkchannel", args: "extra", ok: true},
		{text: "  /myid  ", cmd: "myid", ok: true},
		{text: "plain text", ok: false},
		{text: "", ok: false},
		{text: "/", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := parseCommand(tt.text)
			if ok != tt.ok || cmd != tt.cmd || args != tt.args {
				t.Fatalf("parseCommand(%q) = %q, %q, %v; want %q, %q, %v",
					tt.text, cmd, args, ok, tt.cmd, tt.args, tt.ok)
			}
		})
	}
}

func TestParseDraftID(t *testing.T) {
	t.Parallel()
	if id, err := parseDraftID("42"); err != nil || id != 42 {
		t.Fatalf("parseDraftID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc", "9x"} {
		if _, err := parseDraftID(bad); err == nil {
			t.Fatalf("parseDraftID(%q) should fail", bad)
		}
	}
}

func TestOutcomeText(t *testing.T) {
	t.Parallel()
	r := &Router{}
	tests := []struct {
		out  review.Outcome
		want string
	}{
		{out: review.Outcome{Status: review.StatusPublished}, want: msgPublished},
		{out: review.Outcome{Status: review.StatusCancelled}, want: msgDraftCancelled},
		{out: review.Outcome{Status: review.StatusNotFound}, want: msgDraftGone},
		{out: review.Outcome{Status: review.StatusDenied}, want: msgAccessDenied},
	}
	for _, tt := range tests {
		if got := r.outcomeText(tt.out); got != tt.want {
			t.Fatalf("outcomeText(%v) = %q, want %q", tt.out.Status, got, tt.want)
		}
	}

	failed := r.outcomeText(review.Outcome{
		Status:   review.StatusPublishFailed,
		FailKind: publish.KindForbidden,
	})
	if !strings.Contains(failed, "прав") {
		t.Fatalf("forbidden text = %q, should mention rights", failed)
	}
	notFound := r.outcomeText(review.Outcome{
		Status:   review.StatusPublishFailed,
		FailKind: publish.KindTargetNotFound,
	})
	if !strings.Contains(notFound, "/checkchannel") {
		t.Fatalf("target-not-found text = %q, should point at /checkchannel", notFound)
	}
}
