package comment

import (
	"context"

	"github.com/whisper/comments/internal/moderation"
)

// Store persists comments. Implementations must make Save a single atomic
// compare-and-swap on Version: either body, history, status and version are
// all written or nothing is.
type Store interface {
	// Load returns ErrNotFound when id is unknown.
	Load(ctx context.Context, id string) (*Comment, error)
	// Create inserts c with Version 1. Returns ErrAlreadyExists on id reuse.
	Create(ctx context.Context, c *Comment) error
	// Save writes c if the stored version still equals c.Version and bumps
	// c.Version on success. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, c *Comment) error
}

// SettingsSource yields the current moderation settings. Each call returns a
// fresh snapshot the caller may keep for the length of one evaluation.
type SettingsSource interface {
	Load(ctx context.Context) (moderation.Settings, error)
}
