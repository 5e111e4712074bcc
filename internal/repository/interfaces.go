package repository

import (
	"context"
	"time"

	"github.com/fxrumble/identity-service/internal/domain"
)

// UserRepository defines methods for user persistence.
// All operations are atomic at the single-record level; callers must not
// assume multi-statement transactions.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePhoto(ctx context.Context, userID, photoID string) error

	// SetResetToken stores a reset token and its expiry on the user with the
	// given email. A later call overwrites any active token.
	SetResetToken(ctx context.Context, email, token string, expires time.Time) error

	// ConsumeVerificationToken marks the owning user verified and clears the
	// token in a single conditional update. Returns ErrNotFound if no user
	// currently holds the token, so a replayed token loses.
	ConsumeVerificationToken(ctx context.Context, token string) (*domain.User, error)

	// ConsumeResetToken sets the new password hash and clears the reset token
	// and expiry in a single conditional update, matching only a token that is
	// still present and not expired at now. Returns ErrNotFound otherwise;
	// unknown and expired tokens are indistinguishable to the caller.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*domain.User, error)
}

// ProviderLinkRepository defines methods for OAuth provider link persistence
type ProviderLinkRepository interface {
	Create(ctx context.Context, link *domain.ProviderLink) error
	GetByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.ProviderLink, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.ProviderLink, error)
}
