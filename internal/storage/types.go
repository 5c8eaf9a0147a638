package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the audit log backend.
//
// Driver values:
//   - "file": dependency-free append-only JSON Lines file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled. Drafts themselves are
// never persisted; only the audit trail of operator actions is.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one draft lifecycle event. Keep it compact and schema-stable.
type Entry struct {
	At       time.Time `json:"at"`
	Event    string    `json:"event"` // eventbus event type
	DraftID  int64     `json:"draft_id,omitempty"`
	ChatID   int64     `json:"chat_id,omitempty"`
	ActorID  int64     `json:"actor_id,omitempty"`
	Media    int       `json:"media,omitempty"`
	Attempt  string    `json:"attempt,omitempty"` // publish attempt uuid
	FailKind string    `json:"fail_kind,omitempty"`
	Error    string    `json:"error,omitempty"`
}
