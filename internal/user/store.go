package user

import (
	"context"

	"enroll/pkg/domainerrors"
)

var (
	// ErrNotFound keeps storage-specific lookups consistent across
	// implementations.
	ErrNotFound = domainerrors.New(domainerrors.CodeNotFound, "user not found")
	// ErrEmailExists is returned by Create when the email is already bound
	// to an account. The store's uniqueness constraint serializes
	// concurrent creations; a race surfaces as this error, not as a
	// generic failure.
	ErrEmailExists = domainerrors.New(domainerrors.CodeAlreadyExists, "email already registered")
)

// Store persists user accounts. Create must be atomic: either the full
// record (attributes and credential included) exists afterwards, or nothing
// does.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
