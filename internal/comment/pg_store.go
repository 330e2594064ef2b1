package comment

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore manages comments in PostgreSQL. The body history lives in a
// JSONB column on the comment row, so a save is one UPDATE statement.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a comment store backed by the given handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// history adapts []HistoryEntry to a JSONB column.
type history []HistoryEntry

func (h history) Value() (driver.Value, error) {
	if h == nil {
		h = history{}
	}
	return json.Marshal([]HistoryEntry(h))
}

func (h *history) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*h = nil
		return nil
	default:
		return fmt.Errorf("comment: scan history: unsupported type %T", src)
	}
	return json.Unmarshal(b, (*[]HistoryEntry)(h))
}

type commentRow struct {
	Comment
	History history `db:"body_history"`
}

const selectComment = `
	SELECT id, asset_id, author_id, body, status, body_history, created_at, updated_at, version
	FROM comments
	WHERE id = $1`

func (s *PostgresStore) Load(ctx context.Context, id string) (*Comment, error) {
	var row commentRow
	if err := s.db.GetContext(ctx, &row, selectComment, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("comment: select: %w", err)
	}
	c := row.Comment
	c.BodyHistory = row.History
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *Comment) error {
	const query = `
		INSERT INTO comments (id, asset_id, author_id, body, status, body_history, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		ON CONFLICT (id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.AssetID,
		c.AuthorID,
		c.Body,
		string(c.Status),
		history(c.BodyHistory),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("comment: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("comment: insert: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	c.Version = 1
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, c *Comment) error {
	const query = `
		UPDATE comments
		SET body = $3, status = $4, body_history = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`

	var version int64
	err := s.db.QueryRowxContext(ctx, query,
		c.ID,
		c.Version,
		c.Body,
		string(c.Status),
		history(c.BodyHistory),
		c.UpdatedAt,
	).Scan(&version)
	if err == nil {
		c.Version = version
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("comment: update: %w", err)
	}

	// Nothing matched: tell a stale version apart from a missing row.
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, c.ID); err != nil {
		return fmt.Errorf("comment: update: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}
