package comment

import (
	"slices"
	"time"

	"github.com/whisper/comments/internal/moderation"
)

// HistoryEntry is one prior version of a comment body.
type HistoryEntry struct {
	Body      string    `json:"body" msgpack:"body"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Comment is a user comment attached to an asset.
type Comment struct {
	ID          string            `json:"id" db:"id"`
	AssetID     string            `json:"asset_id" db:"asset_id"`
	AuthorID    string            `json:"author_id" db:"author_id"`
	Body        string            `json:"body" db:"body"`
	Status      moderation.Status `json:"status" db:"status"`
	BodyHistory []HistoryEntry    `json:"body_history" db:"-"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`

	// Version is owned by the store. It is bumped on every successful save
	// and compared on the next one.
	Version int64 `json:"version" db:"version"`
}

// Clone returns a copy that shares no memory with c.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	cp := *c
	cp.BodyHistory = slices.Clone(c.BodyHistory)
	return &cp
}

// LastEdited returns the timestamp of the newest history entry, or the
// creation time when there is none.
func (c *Comment) LastEdited() time.Time {
	if n := len(c.BodyHistory); n > 0 {
		return c.BodyHistory[n-1].CreatedAt
	}
	return c.CreatedAt
}

// EditRequest asks to replace a comment body. ActingUserID is already
// authenticated by the caller.
type EditRequest struct {
	CommentID    string `json:"comment_id"`
	ActingUserID string `json:"-"`
	NewBody      string `json:"body"`
}

// PublishRequest creates a new comment.
type PublishRequest struct {
	AssetID  string `json:"asset_id"`
	AuthorID string `json:"-"`
	Body     string `json:"body"`
}
