package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("users: not found")
	ErrConflict = errors.New("users: email already registered")
)

// Repository is the persistence contract for identities.
// Implementations enforce email uniqueness and return ErrConflict on violation.
type Repository interface {
	Create(ctx context.Context, u Identity) (Identity, error)
	FindByID(ctx context.Context, id string) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	List(ctx context.Context) ([]Identity, error)
	// Update applies every non-nil field of upd atomically.
	Update(ctx context.Context, id string, upd Update) (Identity, error)
	Delete(ctx context.Context, id string) error
}
