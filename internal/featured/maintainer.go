package featured

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/whisper/comments/internal/comment"
)

// Applier merges one event into one view. *Store implements it.
type Applier interface {
	Apply(ctx context.Context, v View, ev comment.Event) error
}

// Maintainer keeps a set of views current from the comment event stream.
type Maintainer struct {
	store   Applier
	views   []View
	timeout time.Duration
	log     zerolog.Logger
}

// NewMaintainer returns a Maintainer patching views through store.
func NewMaintainer(store Applier, log zerolog.Logger, views ...View) *Maintainer {
	return &Maintainer{
		store:   store,
		views:   views,
		timeout: 5 * time.Second,
		log:     log.With().Str("component", "view-maintainer").Logger(),
	}
}

// HandleMessage decodes a raw event and applies it. It matches the NATS
// comment event handler signature.
func (m *Maintainer) HandleMessage(subject string, data []byte) {
	ev, err := comment.DecodeEvent(data)
	if err != nil {
		m.log.Warn().Err(err).Str("subject", subject).Msg("Dropping undecodable event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	m.Handle(ctx, ev)
}

// Handle applies ev to every view. A failure on one view does not stop the
// others; the next event for the comment repairs the list.
func (m *Maintainer) Handle(ctx context.Context, ev comment.Event) {
	for _, v := range m.views {
		if err := m.store.Apply(ctx, v, ev); err != nil {
			m.log.Error().Err(err).
				Str("view", v.Name).
				Str("comment_id", ev.CommentID).
				Str("kind", string(ev.Kind)).
				Msg("Failed to apply event")
			continue
		}
		m.log.Debug().
			Str("view", v.Name).
			Str("comment_id", ev.CommentID).
			Str("status", string(ev.NewStatus)).
			Msg("Event applied")
	}
}
