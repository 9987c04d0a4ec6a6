package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Ensure MemoryStorage implements required interfaces
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps the user directory in process memory.
// Contents are lost on restart.
type MemoryStorage struct {
	users      map[string]*UserRecord
	usersMutex sync.RWMutex
	now        func() time.Time
}

// NewMemoryStorage creates a new storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[string]*UserRecord),
		now:   time.Now,
	}
}

// UpsertUser creates or updates a user record
func (s *MemoryStorage) UpsertUser(_ context.Context, user UserRecord) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}

	now := s.now()

	s.usersMutex.Lock()
	defer s.usersMutex.Unlock()

	if existing, ok := s.users[user.ID]; ok {
		user.FirstSeen = existing.FirstSeen
	} else {
		user.FirstSeen = now
	}
	user.LastSeen = now
	s.users[user.ID] = &user
	return nil
}

// GetUser returns a copy of the user record for id
func (s *MemoryStorage) GetUser(_ context.Context, id string) (*UserRecord, error) {
	s.usersMutex.RLock()
	defer s.usersMutex.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

// ListUsers returns all users ordered by login
func (s *MemoryStorage) ListUsers(_ context.Context) ([]UserRecord, error) {
	s.usersMutex.RLock()
	users := make([]UserRecord, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, *user)
	}
	s.usersMutex.RUnlock()

	slices.SortFunc(users, func(a, b UserRecord) int {
		return strings.Compare(a.Login, b.Login)
	})
	return users, nil
}

// Close is a no-op for memory storage
func (s *MemoryStorage) Close() error {
	return nil
}
