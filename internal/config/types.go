package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Channel  ChannelConfig  `json:"channel"`
	Access   AccessConfig   `json:"access"`
	Album    AlbumConfig    `json:"album"`
	Drafts   DraftsConfig   `json:"drafts"`
	Publish  PublishConfig  `json:"publish"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	// LogChatID is the ops chat that receives warning/error log lines
	// (see logging.telegram). 0 disables it.
	LogChatID   int64 `json:"log_chat_id,omitempty"`
	LogThreadID int   `json:"log_thread_id,omitempty"`
}

// ChannelConfig describes the broadcast target and post decoration.
type ChannelConfig struct {
	// Target is a @username or a numeric chat id (-100...). The bot must be
	// an admin of the channel.
	Target       string `json:"target"`
	SubscribeURL string `json:"subscribe_url,omitempty"`
	SuggestURL   string `json:"suggest_url,omitempty"`
	// Autosign is appended to every published text/caption, e.g. "— @minsknews".
	Autosign string `json:"autosign,omitempty"`
}

// AccessConfig holds the admin allowlist. An empty list allows everyone;
// that fail-open default is preserved from the original deployment, so set
// admin ids before exposing the bot.
type AccessConfig struct {
	AdminIDs []int64 `json:"admin_ids"`
}

type AlbumConfig struct {
	// Wait is the album debounce window, a Go duration string.
	// Default "1.2s": an album flushes once no item arrived for this long.
	Wait string `json:"wait,omitempty"`
}

type DraftsConfig struct {
	// TTL is how long an unconfirmed draft stays pending before the sweep
	// discards it. "0s" disables expiry. Default "24h".
	TTL string `json:"ttl,omitempty"`
	// Sweep is a robfig/cron spec for housekeeping. Default "@every 10m".
	Sweep string `json:"sweep,omitempty"`
}

type PublishConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional audit log persistence.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./postbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
