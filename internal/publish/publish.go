// Package publish delivers finalized drafts to the configured broadcast
// target and classifies delivery failures for operator-facing reporting.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"postbot/internal/transport"
)

// Payload is the text-and-media composite handed over on publish. It mirrors
// the draft's content; the publisher adds decoration (autosign, keyboard) on
// its own.
type Payload struct {
	Text  string
	Media []transport.MediaRef
}

// FailKind partitions publish failures into the cases an operator can act on.
type FailKind int

const (
	KindUnknown FailKind = iota
	// KindTargetNotFound: the channel does not exist or the target is
	// misconfigured (wrong username, bot never added).
	KindTargetNotFound
	// KindForbidden: the bot is not an admin of the channel or lost its
	// posting rights.
	KindForbidden
)

func (k FailKind) String() string {
	switch k {
	case KindTargetNotFound:
		return "target_not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error wraps a transport error with its classified kind.
type Error struct {
	Kind FailKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("publish failed (%s)", e.Kind)
	}
	return fmt.Sprintf("publish failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, defaulting to KindUnknown.
func KindOf(err error) FailKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// Classify wraps a raw transport error into *Error with a best-effort kind.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) FailKind {
	if errors.Is(err, tele.ErrChatNotFound) {
		return KindTargetNotFound
	}
	var te *tele.Error
	if errors.As(err, &te) {
		if te.Code == 403 {
			return KindForbidden
		}
		desc := strings.ToLower(te.Description)
		switch {
		case strings.Contains(desc, "chat not found"), strings.Contains(desc, "channel not found"):
			return KindTargetNotFound
		case strings.Contains(desc, "not enough rights"), strings.Contains(desc, "forbidden"):
			return KindForbidden
		}
		return KindUnknown
	}
	// Errors that didn't come back as *tele.Error still carry the API text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "chat not found"), strings.Contains(msg, "channel not found"):
		return KindTargetNotFound
	case strings.Contains(msg, "forbidden"), strings.Contains(msg, "not enough rights"):
		return KindForbidden
	}
	return KindUnknown
}

// Publisher performs one outbound delivery attempt. No retries; the caller
// reports the classified failure and returns control to the operator.
type Publisher interface {
	Publish(ctx context.Context, p Payload) error
}
