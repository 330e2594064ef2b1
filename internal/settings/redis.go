package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/whisper/comments/internal/moderation"
)

// SettingsKey holds the JSON-encoded moderation settings.
const SettingsKey = "settings:moderation"

// Redis serves settings stored under SettingsKey. When the key is absent the
// fallback is returned, so a fresh installation works before anyone saves.
type Redis struct {
	rdb      redis.UniversalClient
	fallback moderation.Settings
}

// NewRedis creates a Redis-backed settings source.
func NewRedis(rdb redis.UniversalClient, fallback moderation.Settings) *Redis {
	return &Redis{rdb: rdb, fallback: fallback.Clone()}
}

// Load reads and decodes the current settings. Each call returns a fresh
// snapshot.
func (r *Redis) Load(ctx context.Context) (moderation.Settings, error) {
	raw, err := r.rdb.Get(ctx, SettingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return r.fallback.Clone(), nil
	}
	if err != nil {
		return moderation.Settings{}, fmt.Errorf("settings: get: %w", err)
	}

	var s moderation.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return moderation.Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return moderation.Settings{}, fmt.Errorf("settings: stored value: %w", err)
	}
	return s, nil
}

// Update validates s and replaces the stored settings.
func (r *Redis) Update(ctx context.Context, s moderation.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := r.rdb.Set(ctx, SettingsKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("settings: set: %w", err)
	}
	return nil
}
