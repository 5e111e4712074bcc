package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fxrumble/identity-service/internal/domain"
	"github.com/fxrumble/identity-service/pkg/database"
)

// providerLinkRepository implements ProviderLinkRepository interface
type providerLinkRepository struct {
	db *database.Postgres
}

// NewProviderLinkRepository creates a new provider link repository
func NewProviderLinkRepository(db *database.Postgres) ProviderLinkRepository {
	return &providerLinkRepository{db: db}
}

// Create creates a new provider link
func (r *providerLinkRepository) Create(ctx context.Context, link *domain.ProviderLink) error {
	query := `
		INSERT INTO user_providers (id, user_id, provider, provider_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Generate UUID if not provided
	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		link.ID,
		link.UserID,
		link.Provider,
		link.ProviderID,
		link.CreatedAt,
	)

	if err != nil {
		// Check for unique constraint violation (duplicate provider + provider_id)
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("provider link already exists: %w", ErrDuplicateProviderLink)
			}
		}
		return fmt.Errorf("failed to create provider link: %w", err)
	}

	return nil
}

// GetByProvider retrieves a provider link by provider and provider-scoped id
func (r *providerLinkRepository) GetByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.ProviderLink, error) {
	query := `
		SELECT id, user_id, provider, provider_id, created_at
		FROM user_providers
		WHERE provider = $1 AND provider_id = $2
	`

	link := &domain.ProviderLink{}
	err := r.db.DB.QueryRowContext(ctx, query, provider, providerID).Scan(
		&link.ID,
		&link.UserID,
		&link.Provider,
		&link.ProviderID,
		&link.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider link not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider link: %w", err)
	}

	return link, nil
}

// GetByUserID retrieves all provider links for a user
func (r *providerLinkRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.ProviderLink, error) {
	query := `
		SELECT id, user_id, provider, provider_id, created_at
		FROM user_providers
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider links by user id: %w", err)
	}
	defer rows.Close()

	var links []*domain.ProviderLink
	for rows.Next() {
		link := &domain.ProviderLink{}
		err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.Provider,
			&link.ProviderID,
			&link.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate provider links: %w", err)
	}

	return links, nil
}
