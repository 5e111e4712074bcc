package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fxrumble/identity-service/internal/domain"
	"github.com/fxrumble/identity-service/internal/oauth"
	"github.com/fxrumble/identity-service/internal/repository"
	"github.com/fxrumble/identity-service/internal/utils"
)

// IdentityLinker resolves an inbound provider profile to exactly one local
// user, creating or linking as needed. It is the only component that writes
// provider links.
type IdentityLinker struct {
	userRepo   repository.UserRepository
	linkRepo   repository.ProviderLinkRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewIdentityLinker creates a new identity linker
func NewIdentityLinker(
	userRepo repository.UserRepository,
	linkRepo repository.ProviderLinkRepository,
	bcryptCost int,
	logger *zap.Logger,
) *IdentityLinker {
	return &IdentityLinker{
		userRepo:   userRepo,
		linkRepo:   linkRepo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Resolve maps a provider profile to a user.
//
// Fast path: an existing link wins regardless of what email the provider
// reports today. Otherwise the profile email merges into an existing local
// account, or a new verified user is created. Profiles without an email
// (Steam) create a user keyed only by the link; such an account can never be
// merged with a later local registration.
//
// Two near-simultaneous first logins for the same identity may both miss the
// link lookup and race on create. A unique violation is treated as "someone
// else already created this": the lookup is re-run once and the loser
// degrades to the merge path.
func (l *IdentityLinker) Resolve(ctx context.Context, provider domain.Provider, profile *oauth.Profile) (*domain.User, error) {
	if profile == nil || profile.ProviderID == "" {
		return nil, ErrProviderProfileIncomplete
	}

	user, err := l.resolveOnce(ctx, provider, profile)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateProviderLink) {
		l.logger.Info("lost creation race, retrying provider resolution",
			zap.String("provider", provider.String()),
			zap.String("provider_id", profile.ProviderID),
		)
		return l.resolveOnce(ctx, provider, profile)
	}

	return nil, err
}

func (l *IdentityLinker) resolveOnce(ctx context.Context, provider domain.Provider, profile *oauth.Profile) (*domain.User, error) {
	link, err := l.linkRepo.GetByProvider(ctx, provider, profile.ProviderID)
	if err == nil {
		return l.userRepo.GetByID(ctx, link.UserID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up provider link: %w", err)
	}

	if profile.Email != "" {
		existing, err := l.userRepo.GetByEmail(ctx, profile.Email)
		if err == nil {
			// Merge: attach the provider identity to the account that
			// registered locally with the same email.
			if err := l.createLink(ctx, provider, profile.ProviderID, existing.ID); err != nil {
				return nil, err
			}
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	return l.createUser(ctx, provider, profile)
}

func (l *IdentityLinker) createUser(ctx context.Context, provider domain.Provider, profile *oauth.Profile) (*domain.User, error) {
	// The local credential is a hashed random placeholder so password login
	// can never succeed for a provider-created account.
	placeholder, err := utils.NewUnusablePassword()
	if err != nil {
		return nil, err
	}
	passwordHash, err := utils.HashPassword(placeholder, l.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        profile.Email,
		PasswordHash: passwordHash,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		IsVerified:   true, // the provider's identity assertion substitutes for email verification
	}

	if err := l.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := l.createLink(ctx, provider, profile.ProviderID, user.ID); err != nil {
		return nil, err
	}

	l.logger.Info("created user from provider profile",
		zap.String("provider", provider.String()),
		zap.String("user_id", user.ID),
		zap.Bool("has_email", profile.Email != ""),
	)

	return user, nil
}

func (l *IdentityLinker) createLink(ctx context.Context, provider domain.Provider, providerID, userID string) error {
	link := &domain.ProviderLink{
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
	}
	if err := l.linkRepo.Create(ctx, link); err != nil {
		return err
	}
	return nil
}
