package domain

import "time"

// User represents an identity record in the system
type User struct {
	ID                   string     `json:"id" db:"id"`
	Email                string     `json:"email" db:"email"`
	PasswordHash         string     `json:"-" db:"password_hash"`
	FirstName            string     `json:"first_name" db:"first_name"`
	LastName             string     `json:"last_name" db:"last_name"`
	AboutMe              *string    `json:"about_me" db:"about_me"`
	PhotoID              *string    `json:"photo_id" db:"photo_id"`
	IsVerified           bool       `json:"is_verified" db:"is_verified"`
	VerificationToken    *string    `json:"-" db:"verification_token"`
	ResetPasswordToken   *string    `json:"-" db:"reset_password_token"`
	ResetPasswordExpires *time.Time `json:"-" db:"reset_password_expires"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// ProviderLink maps an external identity (provider + provider-scoped id)
// to exactly one local user. The pair (provider, provider_id) is unique;
// links are created once and never mutated.
type ProviderLink struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Provider   Provider  `json:"provider" db:"provider"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
