package comment

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and single-node
// development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	comments map[string]*Comment
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{comments: make(map[string]*Comment)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, c *Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[c.ID]; ok {
		return ErrAlreadyExists
	}
	c.Version = 1
	s.comments[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.comments[c.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != c.Version {
		return ErrVersionConflict
	}
	c.Version++
	s.comments[c.ID] = c.Clone()
	return nil
}

// Len returns the number of stored comments.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}
