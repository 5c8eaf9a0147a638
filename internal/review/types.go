package review

import (
	"context"

	"postbot/internal/publish"
	"postbot/internal/transport"
)

// Inbound is one submitted content item as it arrives from the transport.
type Inbound struct {
	ChatID   int64
	ThreadID int
	FromID   int64
	// Seq is the message id, which totals-orders items inside an album.
	Seq     int
	AlbumID string
	Text    string
	Media   *transport.MediaRef
}

type Action string

const (
	ActionPublish Action = "publish"
	ActionCancel  Action = "cancel"
)

// Decision is an operator signal for a pending draft. ActorID is the identity
// pressing the button, not necessarily the draft's author: any admin may
// confirm or cancel any pending draft.
type Decision struct {
	DraftID int64
	Action  Action
	ActorID int64
}

// Status enumerates the outcomes reported back to the caller. User-facing
// wording lives in the router, not here.
type Status int

const (
	// StatusDenied: the identity is not allowed; nothing was mutated.
	StatusDenied Status = iota
	// StatusRejected: the item carried an unsupported media kind; nothing
	// was buffered.
	StatusRejected
	// StatusBuffered: the item joined an open album burst; a draft appears
	// once the burst goes quiet.
	StatusBuffered
	// StatusDraftCreated: a pending draft exists and its preview was
	// requested.
	StatusDraftCreated
	// StatusNotFound: the draft was already consumed or never existed.
	// Benign for both publish and cancel.
	StatusNotFound
	StatusCancelled
	StatusPublished
	StatusPublishFailed
)

func (s Status) String() string {
	switch s {
	case StatusDenied:
		return "denied"
	case StatusRejected:
		return "rejected"
	case StatusBuffered:
		return "buffered"
	case StatusDraftCreated:
		return "draft_created"
	case StatusNotFound:
		return "not_found"
	case StatusCancelled:
		return "cancelled"
	case StatusPublished:
		return "published"
	case StatusPublishFailed:
		return "publish_failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of a Submit or Decide call.
type Outcome struct {
	Status   Status
	DraftID  int64
	FailKind publish.FailKind // set when Status == StatusPublishFailed
	Err      error
}

// PreviewRequest asks the renderer to show a draft to its submitter with
// confirm/cancel controls. Rendering is I/O glue and stays outside this
// package.
type PreviewRequest struct {
	Chat    transport.ChatTarget
	DraftID int64
	Text    string
	Media   []transport.MediaRef
}

type Renderer interface {
	RenderPreview(ctx context.Context, req PreviewRequest) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, req PreviewRequest) error

func (f RendererFunc) RenderPreview(ctx context.Context, req PreviewRequest) error {
	return f(ctx, req)
}

// DraftEvent is the payload attached to draft.* events on the bus.
type DraftEvent struct {
	DraftID  int64
	ChatID   int64
	ActorID  int64
	Media    int
	Attempt  string // publish attempt correlation id
	FailKind string
	Err      string
}
