package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/readmeforge/readme-front/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStorage keeps the user directory in Google Cloud Firestore,
// one document per GitHub user id.
type FirestoreStorage struct {
	client     *firestore.Client
	projectID  string
	collection string
	now        func() time.Time
}

// Ensure FirestoreStorage implements Storage interface
var _ Storage = (*FirestoreStorage)(nil)

// FirestoreOptions configures NewFirestoreStorage
type FirestoreOptions struct {
	ProjectID       string
	Database        string
	Collection      string
	CredentialsFile string
}

// NewFirestoreStorage creates a new Firestore storage instance
func NewFirestoreStorage(ctx context.Context, opts FirestoreOptions) (*FirestoreStorage, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	var client *firestore.Client
	var err error

	// Firestore client with custom database
	if opts.Database != "" && opts.Database != firestore.DefaultDatabaseID {
		client, err = firestore.NewClientWithDatabase(ctx, opts.ProjectID, opts.Database, clientOpts...)
	} else {
		client, err = firestore.NewClient(ctx, opts.ProjectID, clientOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Connected to Firestore", map[string]any{
		"project":    opts.ProjectID,
		"database":   opts.Database,
		"collection": opts.Collection,
	})

	return &FirestoreStorage{
		client:     client,
		projectID:  opts.ProjectID,
		collection: opts.Collection,
		now:        time.Now,
	}, nil
}

// Close closes the Firestore client
func (s *FirestoreStorage) Close() error {
	return s.client.Close()
}

// UpsertUser creates or updates a user record in a transaction so
// concurrent logins never reset FirstSeen.
func (s *FirestoreStorage) UpsertUser(ctx context.Context, user UserRecord) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}

	ref := s.client.Collection(s.collection).Doc(user.ID)
	now := s.now()

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		switch {
		case err == nil:
			return tx.Update(ref, []firestore.Update{
				{Path: "login", Value: user.Login},
				{Path: "name", Value: user.Name},
				{Path: "avatar_url", Value: user.AvatarURL},
				{Path: "last_seen", Value: now},
			})
		case status.Code(err) == codes.NotFound:
			user.FirstSeen = now
			user.LastSeen = now
			return tx.Set(ref, user)
		default:
			return fmt.Errorf("failed to read user %s: %w", user.ID, err)
		}
	})
}

// GetUser returns the user record for id
func (s *FirestoreStorage) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	doc, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user UserRecord
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by login
func (s *FirestoreStorage) ListUsers(ctx context.Context) ([]UserRecord, error) {
	iter := s.client.Collection(s.collection).OrderBy("login", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var users []UserRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}

		var user UserRecord
		if err := doc.DataTo(&user); err != nil {
			log.LogErrorWithFields("storage", "Failed to unmarshal user", map[string]any{
				"id":    doc.Ref.ID,
				"error": err.Error(),
			})
			continue
		}
		users = append(users, user)
	}

	return users, nil
}
