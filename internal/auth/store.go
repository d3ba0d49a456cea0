package auth

import (
	"context"

	"backend/internal/models"
)

// UserUpdate is a partial update. Nil fields are left untouched; a pointer
// to an empty string clears the stored value.
type UserUpdate struct {
	Username           *string
	RefreshFingerprint *string
}

// UserStore is the persistence contract the auth core depends on. Default
// reads exclude passwordHash and refreshFingerprint; the WithSecret and
// WithFingerprint variants include the respective field. Lookups return
// ErrUserNotFound when no document matches. Update is a no-op (not an
// error) when the id does not match, which keeps logout idempotent.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmailWithSecret(ctx context.Context, email string) (*models.User, error)
	FindByIDWithFingerprint(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, update UserUpdate) error
	Count(ctx context.Context) (int64, error)
}
