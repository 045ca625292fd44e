package cache

import (
	"context"
	"sync"
	"time"

	"github.com/postloom/social-auth/internal/store"
)

// MemoryStateStore keeps state in-process. It backs single-instance
// deployments that run without Redis, and tests.
type MemoryStateStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

var _ store.StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore constructs an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, expiring it lazily.
func (s *MemoryStateStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key; a non-positive TTL means no expiry.
func (s *MemoryStateStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes key; absent keys are ignored.
func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
