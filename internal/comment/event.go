package comment

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/whisper/comments/internal/messaging"
	"github.com/whisper/comments/internal/moderation"
)

// EventKind says which operation produced an Event.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventEdited  EventKind = "edited"
	EventStatus  EventKind = "status"
)

// Event describes a committed change to a comment. It carries what view
// maintainers need to add, remove or re-sort the comment in cached lists.
type Event struct {
	Kind              EventKind         `msgpack:"kind"`
	CommentID         string            `msgpack:"comment_id"`
	AssetID           string            `msgpack:"asset_id"`
	AuthorID          string            `msgpack:"author_id"`
	NewStatus         moderation.Status `msgpack:"new_status"`
	PreviousStatus    moderation.Status `msgpack:"previous_status"`
	NewBody           string            `msgpack:"new_body"`
	BodyHistoryLength int               `msgpack:"body_history_length"`
	CreatedAt         time.Time         `msgpack:"created_at"`
	EditedAt          time.Time         `msgpack:"edited_at"`
	Flags             []moderation.Flag `msgpack:"flags"`
}

// Subject returns the NATS subject the event is published on.
func (e Event) Subject() string {
	switch e.Kind {
	case EventCreated:
		return messaging.CommentSubject(messaging.SubjectCommentCreated, e.AssetID)
	case EventStatus:
		return messaging.CommentSubject(messaging.SubjectCommentStatus, e.AssetID)
	default:
		return messaging.CommentSubject(messaging.SubjectCommentEdited, e.AssetID)
	}
}

// StatusChanged reports whether the event moved the comment between statuses.
func (e Event) StatusChanged() bool {
	return e.PreviousStatus != e.NewStatus
}

func newEvent(kind EventKind, c *Comment, prev moderation.Status, flags []moderation.Flag) Event {
	return Event{
		Kind:              kind,
		CommentID:         c.ID,
		AssetID:           c.AssetID,
		AuthorID:          c.AuthorID,
		NewStatus:         c.Status,
		PreviousStatus:    prev,
		NewBody:           c.Body,
		BodyHistoryLength: len(c.BodyHistory),
		CreatedAt:         c.CreatedAt,
		EditedAt:          c.UpdatedAt,
		Flags:             flags,
	}
}

// EncodeEvent serialises an event with msgpack.
func EncodeEvent(e Event) ([]byte, error) {
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("comment: encode event: %w", err)
	}
	return b, nil
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("comment: decode event: %w", err)
	}
	return e, nil
}

// Publisher delivers committed events. Delivery is best effort: the change
// is already stored when Publish is called.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus is the raw transport a BusPublisher writes to. *messaging.NATSClient
// satisfies it.
type Bus interface {
	Publish(subject string, data []byte) error
}

// BusPublisher encodes events and publishes them on their subject.
type BusPublisher struct {
	bus Bus
}

// NewBusPublisher wraps bus.
func NewBusPublisher(bus Bus) *BusPublisher {
	return &BusPublisher{bus: bus}
}

func (p *BusPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	if err := p.bus.Publish(e.Subject(), data); err != nil {
		return fmt.Errorf("comment: publish %s: %w", e.Subject(), err)
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
