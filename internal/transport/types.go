package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

// MediaKind discriminates the supported attachment types. Anything else is
// rejected at the router boundary before it reaches the draft pipeline.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAnimation MediaKind = "animation"
)

// ValidMediaKind reports whether k is one of the supported kinds.
func ValidMediaKind(k MediaKind) bool {
	switch k {
	case MediaPhoto, MediaVideo, MediaDocument, MediaAnimation:
		return true
	}
	return false
}

// MediaRef is an opaque handle to already-uploaded content. The bot never
// downloads or re-encodes bytes; it only threads file ids through.
type MediaRef struct {
	Kind   MediaKind
	FileID string
}

type Message struct {
	ID           int // also the arrival-sequence number within an album
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	Text         string

	// Caption is the media caption (Text is empty for media messages).
	Caption string
	// AlbumID is the telegram media_group_id, "" for standalone messages.
	AlbumID string
	Media   *MediaRef
}

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// ParseHTML is the only rich-text mode this bot uses; all user content is
// escaped with tgui.Esc before it reaches a ParseHTML send.
const ParseHTML = "HTML"

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

// MediaItem pairs a media handle with its (optional) caption for sending.
type MediaItem struct {
	Ref     MediaRef
	Caption string
}

// ChatInfo is the adapter-neutral result of resolving a chat target.
type ChatInfo struct {
	ID       int64
	Title    string
	Username string
	Type     string
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendMedia(ctx context.Context, to ChatTarget, item MediaItem, opt *SendOptions) (MessageRef, error)
	// SendAlbum sends items as one media group. Captions are honored per item;
	// Telegram renders at most one album caption, conventionally on the first.
	SendAlbum(ctx context.Context, to ChatTarget, items []MediaItem, opt *SendOptions) error
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// ChatResolver is an optional adapter capability used by /checkchannel and
// /setchannel to validate a target before it is used.
type ChatResolver interface {
	ResolveChat(ctx context.Context, target string) (ChatInfo, error)
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
