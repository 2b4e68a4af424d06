// Package credstore provides an in-memory [authcore.UserStore] for tests,
// examples, and single-node deployments that seed users at startup.
// Production systems implement UserStore against their own database instead.
package credstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	authcore "github.com/modernwms/authcore"
)

// ErrUsernameTaken is returned by CreateUser for a duplicate username.
var ErrUsernameTaken = errors.New("username already taken")

// MemoryStore keeps user records in a mutex-guarded map keyed by username.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]authcore.UserRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]authcore.UserRecord),
	}
}

// GetByUsername implements [authcore.UserStore].
func (s *MemoryStore) GetByUsername(_ context.Context, username string) (authcore.UserRecord, error) {
	s.mu.RLock()
	rec, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return rec, nil
}

// CreateUser implements [authcore.UserStore]. New accounts start active.
func (s *MemoryStore) CreateUser(_ context.Context, input authcore.CreateUserInput) (authcore.UserRecord, error) {
	if input.Username == "" {
		return authcore.UserRecord{}, errors.New("username required")
	}
	if !input.Role.Valid() {
		return authcore.UserRecord{}, authcore.ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[input.Username]; ok {
		return authcore.UserRecord{}, ErrUsernameTaken
	}

	rec := authcore.UserRecord{
		UserID:       uuid.NewString(),
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	s.users[input.Username] = rec
	return rec, nil
}

// UpdatePasswordHash implements [authcore.UserStore].
func (s *MemoryStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, rec := range s.users {
		if rec.UserID == userID {
			rec.PasswordHash = newHash
			s.users[username] = rec
			return nil
		}
	}
	return authcore.ErrUserNotFound
}

// SetActive flips the account's active flag. Disabled accounts fail login
// with invalid credentials.
func (s *MemoryStore) SetActive(username string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		return authcore.ErrUserNotFound
	}
	rec.Active = active
	s.users[username] = rec
	return nil
}

// Len reports the number of stored accounts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
