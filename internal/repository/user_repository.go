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

const userColumns = `id, email, password_hash, first_name, last_name, about_me, photo_id,
		is_verified, verification_token, reset_password_token, reset_password_expires,
		created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, about_me, photo_id,
			is_verified, verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	// Generate UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.AboutMe,
		user.PhotoID,
		user.IsVerified,
		user.VerificationToken,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Check for unique constraint violation (duplicate email)
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// Update updates the mutable profile fields of an existing user
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, about_me = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.AboutMe,
		time.Now(),
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return checkAffected(result, user.ID)
}

// UpdatePhoto sets the photo reference for a user
func (r *userRepository) UpdatePhoto(ctx context.Context, userID, photoID string) error {
	query := `
		UPDATE users
		SET photo_id = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, photoID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update user photo: %w", err)
	}

	return checkAffected(result, userID)
}

// SetResetToken stores a reset token and expiry on the user with the given email
func (r *userRepository) SetResetToken(ctx context.Context, email, token string, expires time.Time) error {
	query := `
		UPDATE users
		SET reset_password_token = $2, reset_password_expires = $3, updated_at = $4
		WHERE email = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, email, token, expires, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
	}

	return nil
}

// ConsumeVerificationToken verifies the owning user and clears the token in
// one statement. The WHERE clause makes the consume single-use under
// concurrent requests: the loser sees zero rows.
func (r *userRepository) ConsumeVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, updated_at = $2
		WHERE verification_token = $1
		RETURNING %s
	`, userColumns)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, token, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return user, nil
}

// ConsumeResetToken applies the new password hash and clears the token and
// expiry in one statement, matching only a still-active token. Expired and
// unknown tokens both come back as ErrNotFound.
func (r *userRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*domain.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET password_hash = $2, reset_password_token = NULL, reset_password_expires = NULL, updated_at = $3
		WHERE reset_password_token = $1 AND reset_password_expires > $3
		RETURNING %s
	`, userColumns)

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, token, passwordHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reset token not found or expired: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return user, nil
}

// scanUser scans a user row including its nullable columns
func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var aboutMe, photoID, verificationToken, resetToken sql.NullString
	var resetExpires sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&aboutMe,
		&photoID,
		&user.IsVerified,
		&verificationToken,
		&resetToken,
		&resetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if aboutMe.Valid {
		user.AboutMe = &aboutMe.String
	}
	if photoID.Valid {
		user.PhotoID = &photoID.String
	}
	if verificationToken.Valid {
		user.VerificationToken = &verificationToken.String
	}
	if resetToken.Valid {
		user.ResetPasswordToken = &resetToken.String
	}
	if resetExpires.Valid {
		user.ResetPasswordExpires = &resetExpires.Time
	}

	return user, nil
}

func checkAffected(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}
