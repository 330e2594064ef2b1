// Package settings provides sources for the moderation settings snapshot:
// a fixed in-process value and a Redis-backed value shared by every editor
// instance.
package settings

import (
	"context"
	"sync"

	"github.com/whisper/comments/internal/moderation"
)

// Static serves settings held in memory. Update replaces the value
// atomically; snapshots already handed out are unaffected.
type Static struct {
	mu sync.RWMutex
	s  moderation.Settings
}

// NewStatic returns a Static source holding s.
func NewStatic(s moderation.Settings) *Static {
	return &Static{s: s.Clone()}
}

// Load returns a deep copy of the current settings.
func (st *Static) Load(context.Context) (moderation.Settings, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Clone(), nil
}

// Update validates and stores s.
func (st *Static) Update(_ context.Context, s moderation.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	st.s = s.Clone()
	st.mu.Unlock()
	return nil
}
