package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a user doesn't exist
var ErrUserNotFound = errors.New("user not found")

// UserRecord tracks a GitHub user who has signed in at least once.
// It is a login directory, not a session store: sessions live in the
// signed cookie only.
type UserRecord struct {
	ID        string    `json:"id" firestore:"id"`
	Login     string    `json:"login" firestore:"login"`
	Name      string    `json:"name,omitempty" firestore:"name,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty" firestore:"avatar_url,omitempty"`
	FirstSeen time.Time `json:"firstSeen" firestore:"first_seen"`
	LastSeen  time.Time `json:"lastSeen" firestore:"last_seen"`
}

// Storage is the user directory
type Storage interface {
	// UpsertUser records a login. FirstSeen is kept from the existing record;
	// the profile fields and LastSeen are overwritten.
	UpsertUser(ctx context.Context, user UserRecord) error
	GetUser(ctx context.Context, id string) (*UserRecord, error)
	ListUsers(ctx context.Context) ([]UserRecord, error)
	Close() error
}
