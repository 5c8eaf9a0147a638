package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv lets the classic bot environment variables override file values.
// The original deployment was configured entirely through env; keeping these
// working makes migration a copy-paste job.
func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("BOT_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("CHANNEL")); v != "" {
		cfg.Channel.Target = v
	}
	if v := strings.TrimSpace(os.Getenv("SUBSCRIBE_TO")); v != "" {
		cfg.Channel.SubscribeURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SUGGEST_TO")); v != "" {
		cfg.Channel.SuggestURL = v
	}
	if v := os.Getenv("AUTOSIGN"); strings.TrimSpace(v) != "" {
		cfg.Channel.Autosign = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ADMINS")); v != "" {
		ids, err := parseAdminList(v)
		if err != nil {
			return fmt.Errorf("ALLOWED_ADMINS: %w", err)
		}
		cfg.Access.AdminIDs = ids
	}
	if v := strings.TrimSpace(os.Getenv("ALBUM_WAIT")); v != "" {
		cfg.Album.Wait = v
	}
	return nil
}

func parseAdminList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
