package comment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/whisper/comments/internal/moderation"
)

const CommentPrefix = "comment:"

// RedisStore keeps each comment in a hash. Writes go through Lua scripts so
// the version check and every field update happen in one atomic step.
type RedisStore struct {
	rdb          redis.UniversalClient
	createScript *redis.Script
	saveScript   *redis.Script
}

// NewRedisStore creates a comment store backed by Redis.
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{
		rdb:          rdb,
		createScript: redis.NewScript(createCommentLua),
		saveScript:   redis.NewScript(saveCommentLua),
	}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Comment, error) {
	result, err := s.rdb.HGetAll(ctx, CommentPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("comment: redis load: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}

	c := &Comment{
		ID:       id,
		AssetID:  result["asset_id"],
		AuthorID: result["author_id"],
		Body:     result["body"],
		Status:   moderation.Status(result["status"]),
	}
	if c.Version, err = strconv.ParseInt(result["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("comment: redis load %s: version: %w", id, err)
	}
	if c.CreatedAt, err = parseTime(result["created_at"]); err != nil {
		return nil, fmt.Errorf("comment: redis load %s: created_at: %w", id, err)
	}
	if c.UpdatedAt, err = parseTime(result["updated_at"]); err != nil {
		return nil, fmt.Errorf("comment: redis load %s: updated_at: %w", id, err)
	}
	if err := msgpack.Unmarshal([]byte(result["history"]), &c.BodyHistory); err != nil {
		return nil, fmt.Errorf("comment: redis load %s: history: %w", id, err)
	}
	// msgpack decodes timestamps in the local zone.
	for i := range c.BodyHistory {
		c.BodyHistory[i].CreatedAt = c.BodyHistory[i].CreatedAt.UTC()
	}
	return c, nil
}

func (s *RedisStore) Create(ctx context.Context, c *Comment) error {
	args, err := hashArgs(c)
	if err != nil {
		return err
	}
	code, err := s.createScript.Run(ctx, s.rdb, []string{CommentPrefix + c.ID}, args...).Int()
	if err != nil {
		return fmt.Errorf("comment: redis create: %w", err)
	}
	if code == -1 {
		return ErrAlreadyExists
	}
	c.Version = 1
	return nil
}

// Save runs saveCommentLua. Return codes:
//
//	1  = written
//	-1 = comment not found
//	-2 = stored version differs
func (s *RedisStore) Save(ctx context.Context, c *Comment) error {
	args, err := hashArgs(c)
	if err != nil {
		return err
	}
	args = append([]interface{}{c.Version}, args...)

	code, err := s.saveScript.Run(ctx, s.rdb, []string{CommentPrefix + c.ID}, args...).Int()
	if err != nil {
		return fmt.Errorf("comment: redis save: %w", err)
	}
	switch code {
	case 1:
		c.Version++
		return nil
	case -1:
		return ErrNotFound
	case -2:
		return ErrVersionConflict
	}
	return fmt.Errorf("comment: redis save: unexpected script result %d", code)
}

// Ping checks connectivity; used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func hashArgs(c *Comment) ([]interface{}, error) {
	history, err := msgpack.Marshal(c.BodyHistory)
	if err != nil {
		return nil, fmt.Errorf("comment: encode history: %w", err)
	}
	return []interface{}{
		"asset_id", c.AssetID,
		"author_id", c.AuthorID,
		"body", c.Body,
		"status", string(c.Status),
		"history", history,
		"created_at", formatTime(c.CreatedAt),
		"updated_at", formatTime(c.UpdatedAt),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// createCommentLua writes a new hash at version 1 unless the key exists.
const createCommentLua = `
local key = KEYS[1]
if redis.call('EXISTS', key) == 1 then return -1 end
redis.call('HSET', key, unpack(ARGV))
redis.call('HSET', key, 'version', 1)
return 1
`

// saveCommentLua compares ARGV[1] with the stored version, then writes the
// remaining field/value pairs and bumps the version.
const saveCommentLua = `
local key = KEYS[1]
local expected = ARGV[1]

local current = redis.call('HGET', key, 'version')
if not current then return -1 end
if current ~= expected then return -2 end

for i = 2, #ARGV, 2 do
    redis.call('HSET', key, ARGV[i], ARGV[i + 1])
end
redis.call('HINCRBY', key, 'version', 1)
return 1
`
