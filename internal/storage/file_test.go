package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "postbot/pkg/logx"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "None"} {
		s, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || s != nil {
			t.Fatalf("Open(%q) = %v, %v, want nil, nil", driver, s, err)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestFileStoreAppendAndPrune(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	old := Entry{At: time.Now().Add(-48 * time.Hour), Event: "draft.cancelled", DraftID: 1}
	fresh := Entry{Event: "draft.published", DraftID: 2, Attempt: "a-1"}
	if err := s.AppendAudit(ctx, old); err != nil {
		t.Fatalf("append old: %v", err)
	}
	if err := s.AppendAudit(ctx, fresh); err != nil {
		t.Fatalf("append fresh: %v", err)
	}

	auditPath := filepath.Join(dir, "bot.audit.jsonl")
	if got := readEntries(t, auditPath); len(got) != 2 {
		t.Fatalf("entries before prune = %d, want 2", len(got))
	}

	if err := s.PruneAudit(ctx, 24*time.Hour); err != nil {
		t.Fatalf("prune: %v", err)
	}
	got := readEntries(t, auditPath)
	if len(got) != 1 || got[0].DraftID != 2 {
		t.Fatalf("entries after prune = %+v, want only draft 2", got)
	}

	// Appends keep working after the prune swap.
	if err := s.AppendAudit(ctx, Entry{Event: "draft.created", DraftID: 3}); err != nil {
		t.Fatalf("append after prune: %v", err)
	}
	if got := readEntries(t, auditPath); len(got) != 2 {
		t.Fatalf("entries after post-prune append = %d, want 2", len(got))
	}
}

func TestFileStoreClosedAppend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.AppendAudit(context.Background(), Entry{Event: "x"}); err == nil {
		t.Fatal("append after Close should fail")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("double Close should be a no-op: %v", err)
	}
}
