package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/whisper/comments/internal/metrics"
	"github.com/whisper/comments/internal/moderation"
)

// Config tunes the Editor.
type Config struct {
	// MaxEditAttempts bounds how many times a write is recomputed after a
	// version conflict before CONFLICT is returned.
	MaxEditAttempts int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
	// SaveTimeout bounds a store write once it has been issued.
	SaveTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxEditAttempts: 3,
		RetryBackoff:    10 * time.Millisecond,
		SaveTimeout:     5 * time.Second,
	}
}

// Editor creates, edits and moderates comments. Every successful call
// issues exactly one store write; failed calls issue none.
type Editor struct {
	store     Store
	settings  SettingsSource
	publisher Publisher
	clock     *Clock
	newID     func() string
	cfg       Config
	log       zerolog.Logger
}

// Option configures optional Editor collaborators.
type Option func(*Editor)

// WithPublisher sets where committed events go. The default drops them.
func WithPublisher(p Publisher) Option {
	return func(e *Editor) { e.publisher = p }
}

// WithClock replaces the process clock.
func WithClock(c *Clock) Option {
	return func(e *Editor) { e.clock = c }
}

// WithIDGenerator replaces the UUID generator used by Publish.
func WithIDGenerator(f func() string) Option {
	return func(e *Editor) { e.newID = f }
}

// NewEditor creates an Editor over store and settings.
func NewEditor(store Store, settings SettingsSource, cfg Config, log zerolog.Logger, opts ...Option) *Editor {
	if cfg.MaxEditAttempts < 1 {
		cfg.MaxEditAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultConfig().SaveTimeout
	}

	e := &Editor{
		store:     store,
		settings:  settings,
		publisher: nopPublisher{},
		clock:     NewClock(),
		newID:     uuid.NewString,
		cfg:       cfg,
		log:       log.With().Str("component", "editor").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Publish creates a comment. The history is seeded with the created body
// and the status comes from one review of that body against a prior of NONE.
func (e *Editor) Publish(ctx context.Context, req PublishRequest) (c *Comment, err error) {
	defer e.observe("publish", time.Now(), &err)

	if strings.TrimSpace(req.AssetID) == "" || strings.TrimSpace(req.AuthorID) == "" {
		return nil, newError(CodeInvalidRequest, errors.New("asset and author are required"))
	}
	if err := ValidateBody(req.Body); err != nil {
		return nil, newError(CodeInvalidBody, err)
	}

	settings, err := e.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	c = &Comment{
		ID:        e.newID(),
		AssetID:   req.AssetID,
		AuthorID:  req.AuthorID,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	seedHistory(c)

	decision := moderation.Review(c.Body, moderation.StatusNone, settings)
	c.Status = decision.Status

	if err := e.write(ctx, func(ctx context.Context) error { return e.store.Create(ctx, c) }); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, newError(CodeConflict, err)
		}
		return nil, err
	}

	e.log.Info().
		Str("comment_id", c.ID).
		Str("asset_id", c.AssetID).
		Str("status", string(c.Status)).
		Msg("Comment published")

	e.emit(ctx, newEvent(EventCreated, c, moderation.StatusNone, decision.Flags))
	return c, nil
}

// Edit replaces a comment body on behalf of its author and re-evaluates the
// moderation status against the current settings.
//
// A version conflict on save reloads the comment and recomputes the edit,
// up to Config.MaxEditAttempts attempts in total.
func (e *Editor) Edit(ctx context.Context, req EditRequest) (*Comment, error) {
	c, _, err := e.edit(ctx, req)
	return c, err
}

// EditComment is Edit shaped for transports: failures come back as coded
// entries instead of an error value. On failure Comment holds the last
// loaded, unmodified comment if there was one.
func (e *Editor) EditComment(ctx context.Context, req EditRequest) EditResult {
	c, prev, err := e.edit(ctx, req)
	if err != nil {
		return EditResult{
			Comment: prev,
			Errors:  []ErrorEntry{{Code: CodeOf(err), Message: err.Error()}},
		}
	}
	return EditResult{Comment: c, Errors: []ErrorEntry{}}
}

func (e *Editor) edit(ctx context.Context, req EditRequest) (out, prev *Comment, err error) {
	defer e.observe("edit", time.Now(), &err)

	if err := ValidateBody(req.NewBody); err != nil {
		return nil, nil, newError(CodeInvalidBody, err)
	}

	var ev Event
	err = e.attempt(ctx, func(ctx context.Context) error {
		c, err := e.load(ctx, req.CommentID)
		if err != nil {
			return err
		}
		prev = c.Clone()

		if c.AuthorID != req.ActingUserID {
			return newError(CodeForbidden, ErrForbidden)
		}

		settings, err := e.loadSettings(ctx)
		if err != nil {
			return err
		}

		now := e.clock.Now()
		if settings.EditWindow > 0 && now.Sub(c.CreatedAt) > settings.EditWindow {
			return newError(CodeEditWindowExpired, ErrEditWindow)
		}

		if err := RecordEdit(c, req.ActingUserID, req.NewBody, now); err != nil {
			return newError(CodeOf(err), err)
		}

		decision := moderation.Review(c.Body, prev.Status, settings)
		c.Status = decision.Status
		c.UpdatedAt = now

		if err := e.save(ctx, c); err != nil {
			return err
		}

		out = c
		ev = newEvent(EventEdited, c, prev.Status, decision.Flags)
		return nil
	})
	if err != nil {
		e.log.Debug().
			Err(err).
			Str("comment_id", req.CommentID).
			Str("code", string(CodeOf(err))).
			Msg("Edit refused")
		return nil, prev, err
	}

	e.log.Info().
		Str("comment_id", out.ID).
		Str("from", string(ev.PreviousStatus)).
		Str("to", string(ev.NewStatus)).
		Int("history", ev.BodyHistoryLength).
		Msg("Comment edited")

	e.emit(ctx, ev)
	return out, prev, nil
}

// SetStatus records a moderator decision. Setting the status a comment
// already has is a no-op and issues no write.
func (e *Editor) SetStatus(ctx context.Context, id string, status moderation.Status) (out *Comment, err error) {
	defer e.observe("status", time.Now(), &err)

	if !status.Valid() {
		return nil, newError(CodeInvalidRequest, fmt.Errorf("unknown status %q", status))
	}

	var (
		ev      Event
		changed bool
	)
	err = e.attempt(ctx, func(ctx context.Context) error {
		c, err := e.load(ctx, id)
		if err != nil {
			return err
		}
		if c.Status == status {
			out, changed = c, false
			return nil
		}

		prevStatus := c.Status
		c.Status = status
		c.UpdatedAt = e.clock.Now()
		if err := e.save(ctx, c); err != nil {
			return err
		}

		out, changed = c, true
		ev = newEvent(EventStatus, c, prevStatus, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.log.Info().
			Str("comment_id", out.ID).
			Str("from", string(ev.PreviousStatus)).
			Str("to", string(ev.NewStatus)).
			Msg("Comment moderated")
		e.emit(ctx, ev)
	}
	return out, nil
}

// attempt runs f until it succeeds, fails with a non-conflict error, or has
// run MaxEditAttempts times.
func (e *Editor) attempt(ctx context.Context, f func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(uint64(e.cfg.MaxEditAttempts-1), retry.NewConstant(e.cfg.RetryBackoff))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := f(ctx)
		if CodeOf(err) == CodeConflict {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	// retry.Do reports caller cancellation as a bare context error.
	return newError(CodeUnavailable, err)
}

func (e *Editor) load(ctx context.Context, id string) (*Comment, error) {
	c, err := e.store.Load(ctx, id)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, ErrNotFound):
		return nil, newError(CodeNotFound, err)
	default:
		return nil, newError(CodeUnavailable, err)
	}
}

func (e *Editor) loadSettings(ctx context.Context) (moderation.Settings, error) {
	s, err := e.settings.Load(ctx)
	if err != nil {
		return moderation.Settings{}, newError(CodeUnavailable, fmt.Errorf("load settings: %w", err))
	}
	return s, nil
}

func (e *Editor) save(ctx context.Context, c *Comment) error {
	err := e.write(ctx, func(ctx context.Context) error { return e.store.Save(ctx, c) })
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict):
		metrics.EditConflicts.Inc()
		return newError(CodeConflict, err)
	case errors.Is(err, ErrNotFound):
		return newError(CodeNotFound, err)
	}
	return err
}

// write issues one store write. The caller's cancellation is honoured up to
// the moment the write starts; after that the write runs on a detached
// context bounded by SaveTimeout so it either completes or fails as a whole.
func (e *Editor) write(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return newError(CodeUnavailable, err)
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SaveTimeout)
	defer cancel()

	err := op(wctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return newError(CodeUnavailable, err)
}

// emit publishes ev after the write has committed. A delivery failure is
// logged and does not fail the operation.
func (e *Editor) emit(ctx context.Context, ev Event) {
	if ev.StatusChanged() {
		metrics.StatusTransitions.WithLabelValues(string(ev.PreviousStatus), string(ev.NewStatus)).Inc()
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SaveTimeout)
	defer cancel()
	if err := e.publisher.Publish(pctx, ev); err != nil {
		e.log.Warn().
			Err(err).
			Str("comment_id", ev.CommentID).
			Str("kind", string(ev.Kind)).
			Msg("Failed to publish event")
	}
}

func (e *Editor) observe(op string, start time.Time, errp *error) {
	metrics.EditDuration.Observe(time.Since(start).Seconds())
	result := "ok"
	if *errp != nil {
		result = strings.ToLower(string(CodeOf(*errp)))
	}
	metrics.EditsTotal.WithLabelValues(op, result).Inc()
}
