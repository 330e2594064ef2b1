package featured

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/metrics"
)

// ErrContended is returned when a list kept changing under every attempt.
var ErrContended = errors.New("featured: too many concurrent updates")

const maxUpdateAttempts = 5

// Store keeps each view list as one msgpack value per asset. Updates use
// WATCH/MULTI so concurrent consumers never lose each other's patches.
type Store struct {
	rdb redis.UniversalClient
}

// NewStore creates a view store backed by Redis.
func NewStore(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

// List returns the cached list for an asset, empty when none exists.
func (s *Store) List(ctx context.Context, v View, assetID string) ([]Item, error) {
	return s.read(ctx, s.rdb, v.Key(assetID))
}

// Apply merges ev into v's list for the event's asset.
func (s *Store) Apply(ctx context.Context, v View, ev comment.Event) error {
	return s.update(ctx, v, ev.AssetID, func(items []Item) []Item {
		return v.Merge(items, ev)
	})
}

// Add inserts it into v's list, replacing any entry with the same id.
func (s *Store) Add(ctx context.Context, v View, assetID string, it Item) error {
	return s.update(ctx, v, assetID, func(items []Item) []Item {
		return InsertSorted(items, it, v.Less)
	})
}

// Delete drops the entry for commentID from v's list.
func (s *Store) Delete(ctx context.Context, v View, assetID, commentID string) error {
	return s.update(ctx, v, assetID, func(items []Item) []Item {
		return Remove(items, commentID)
	})
}

func (s *Store) update(ctx context.Context, v View, assetID string, patch func([]Item) []Item) error {
	key := v.Key(assetID)

	txf := func(tx *redis.Tx) error {
		items, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		next := patch(items)

		raw, err := msgpack.Marshal(next)
		if err != nil {
			return fmt.Errorf("featured: encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, raw, 0)
			}
			return nil
		})
		if err == nil {
			metrics.ViewSize.WithLabelValues(v.Name).Set(float64(len(next)))
		}
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("featured: update %s: %w", key, err)
		}
	}
	return ErrContended
}

// getter is the part of redis.Client and redis.Tx that read needs.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) read(ctx context.Context, c getter, key string) ([]Item, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("featured: get %s: %w", key, err)
	}
	var items []Item
	if err := msgpack.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("featured: decode %s: %w", key, err)
	}
	return items, nil
}
