package refresh

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

// MemoryStore is the process-local default registry. Entries live in a
// mutex-guarded map; a background sweeper drops expired ones so abandoned
// sessions do not accumulate. All state is lost on process exit, which
// invalidates every outstanding refresh token by design of the deployment.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore starts the store and its expiry sweeper.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Entry),
		done:    make(chan struct{}),
	}
	go s.sweep(defaultSweepInterval)
	return s
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, e := range s.entries {
				if now.After(e.ExpiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

// Register implements [Store].
func (s *MemoryStore) Register(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.PairID]; ok && !time.Now().After(existing.ExpiresAt) {
		return ErrTokenExists
	}
	s.entries[entry.PairID] = entry
	return nil
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, pairID string) (Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[pairID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.ExpiresAt) {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Rotate implements [Store]. The check and swap happen under one lock, so
// concurrent rotations of the same token see exactly one winner.
func (s *MemoryStore) Rotate(_ context.Context, pairID string, providedHash, nextHash [32]byte, nextAccessTokenID string, nextExpiry time.Time) (Entry, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[pairID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if now.After(entry.ExpiresAt) {
		delete(s.entries, pairID)
		return Entry{}, ErrNotFound
	}
	if entry.SecretHash != providedHash {
		return Entry{}, ErrSecretMismatch
	}

	entry.SecretHash = nextHash
	entry.AccessTokenID = nextAccessTokenID
	entry.IssuedAt = now
	entry.ExpiresAt = nextExpiry
	s.entries[pairID] = entry

	return entry, nil
}

// Delete implements [Store].
func (s *MemoryStore) Delete(_ context.Context, pairID string) error {
	s.mu.Lock()
	delete(s.entries, pairID)
	s.mu.Unlock()
	return nil
}

// DeleteAllForUser implements [Store].
func (s *MemoryStore) DeleteAllForUser(_ context.Context, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, e := range s.entries {
		if e.Username == username {
			delete(s.entries, id)
			dropped++
		}
	}
	return dropped, nil
}

// Len reports the number of entries, expired ones included until the next
// sweep. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the sweeper. Idempotent.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
