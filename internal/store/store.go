package store

import (
	"context"
	"errors"

	"github.com/nova-labs/nova-chat/server/internal/model/chat"
)

var (
	ErrNotFound   = errors.New("chat not found")
	ErrConflict   = errors.New("chat id already exists")
	ErrValidation = errors.New("missing required fields")
)

// Store is durable CRUD over chat sessions. Every mutation either fully
// applies or has no effect; a concurrent Get never observes a partial write.
type Store interface {
	// List returns all sessions, most recently updated first.
	List(ctx context.Context) ([]chat.Session, error)
	// Get returns one session or ErrNotFound.
	Get(ctx context.Context, id string) (chat.Session, error)
	// Create persists a new session and returns its id. The id is taken from
	// the input or derived when absent. Fails with ErrValidation when a
	// mandatory field is missing and ErrConflict when the id already exists.
	Create(ctx context.Context, session chat.Session) (string, error)
	// Update replaces the mutable fields of an existing session and returns
	// its id. Fails with ErrValidation or ErrNotFound.
	Update(ctx context.Context, session chat.Session) (string, error)
	// Delete removes a session, ErrNotFound when it does not exist.
	Delete(ctx context.Context, id string) error
}
