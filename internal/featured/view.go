// Package featured maintains cached, sorted per-asset comment lists such as
// the featured list and the pre-moderation queue. Lists are patched from
// comment events instead of being rebuilt from the store.
package featured

import (
	"slices"
	"strings"
	"time"

	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/moderation"
)

// Item is the cached projection of one comment.
type Item struct {
	CommentID         string            `json:"comment_id" msgpack:"comment_id"`
	AuthorID          string            `json:"author_id" msgpack:"author_id"`
	Status            moderation.Status `json:"status" msgpack:"status"`
	Body              string            `json:"body" msgpack:"body"`
	BodyHistoryLength int               `json:"body_history_length" msgpack:"body_history_length"`
	CreatedAt         time.Time         `json:"created_at" msgpack:"created_at"`
}

// ItemFromEvent projects an event onto an Item.
func ItemFromEvent(ev comment.Event) Item {
	return Item{
		CommentID:         ev.CommentID,
		AuthorID:          ev.AuthorID,
		Status:            ev.NewStatus,
		Body:              ev.NewBody,
		BodyHistoryLength: ev.BodyHistoryLength,
		CreatedAt:         ev.CreatedAt,
	}
}

// ItemFromComment projects a stored comment onto an Item.
func ItemFromComment(c *comment.Comment) Item {
	return Item{
		CommentID:         c.ID,
		AuthorID:          c.AuthorID,
		Status:            c.Status,
		Body:              c.Body,
		BodyHistoryLength: len(c.BodyHistory),
		CreatedAt:         c.CreatedAt,
	}
}

// Comparator reports whether a sorts before b.
type Comparator func(a, b Item) bool

// ReverseChronological puts the newest comment first. Ties break on id so
// the order is total.
func ReverseChronological(a, b Item) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.CommentID < b.CommentID
}

// Chronological puts the oldest comment first.
func Chronological(a, b Item) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.CommentID < b.CommentID
}

// View describes one cached list.
type View struct {
	Name string
	// Admit reports whether a comment in this status belongs in the list.
	Admit func(moderation.Status) bool
	// InsertMissing adds admitted comments that are not yet listed. When
	// false, events only update or drop entries already present.
	InsertMissing bool
	Less          Comparator
}

// Featured lists visible comments picked by moderators, newest first. An
// edit never features a comment by itself.
var Featured = View{
	Name:          "featured",
	Admit:         moderation.Status.Visible,
	InsertMissing: false,
	Less:          ReverseChronological,
}

// PremodQueue lists comments awaiting review, oldest first.
var PremodQueue = View{
	Name:          "premod",
	Admit:         func(s moderation.Status) bool { return s == moderation.StatusPremod },
	InsertMissing: true,
	Less:          Chronological,
}

// Merge applies ev to items and returns the patched list. items must already
// be sorted by v.Less; the input slice is never modified.
func (v View) Merge(items []Item, ev comment.Event) []Item {
	idx := indexOf(items, ev.CommentID)

	if !v.Admit(ev.NewStatus) {
		if idx < 0 {
			return slices.Clone(items)
		}
		return Remove(items, ev.CommentID)
	}

	if idx < 0 && !v.InsertMissing {
		return slices.Clone(items)
	}
	return InsertSorted(items, ItemFromEvent(ev), v.Less)
}

// InsertSorted returns items with it placed by less. An existing entry with
// the same id is replaced.
func InsertSorted(items []Item, it Item, less Comparator) []Item {
	out := Remove(items, it.CommentID)
	pos, _ := slices.BinarySearchFunc(out, it, func(e, target Item) int {
		switch {
		case less(e, target):
			return -1
		case less(target, e):
			return 1
		}
		return 0
	})
	return slices.Insert(out, pos, it)
}

// Remove returns items without the entry for id.
func Remove(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.CommentID != id {
			out = append(out, it)
		}
	}
	return out
}

// RemoveAuthors returns items without entries written by any of authorIDs,
// for readers who ignore those users.
func RemoveAuthors(items []Item, authorIDs ...string) []Item {
	if len(authorIDs) == 0 {
		return slices.Clone(items)
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !slices.Contains(authorIDs, it.AuthorID) {
			out = append(out, it)
		}
	}
	return out
}

func indexOf(items []Item, id string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.CommentID == id })
}

// Key is the Redis key holding v's list for an asset.
func (v View) Key(assetID string) string {
	return "view:" + v.Name + ":" + strings.TrimSpace(assetID)
}
