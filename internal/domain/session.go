package domain

import "time"

// SessionClaims is the claim set embedded in a signed session token.
// It is never persisted: validity is entirely a function of the token
// signature and expiry.
type SessionClaims struct {
	UserID    string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	AboutMe   *string `json:"about_me"`
	PhotoID   *string `json:"photo_id"`
	Exp       int64   `json:"exp"`
	Iat       int64   `json:"iat"`
}

// IsExpired checks if the session is expired
func (c SessionClaims) IsExpired() bool {
	return time.Now().Unix() > c.Exp
}

// ClaimsForUser builds session claims for a user with the given ttl
func ClaimsForUser(u *User, ttl time.Duration) *SessionClaims {
	now := time.Now()
	return &SessionClaims{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AboutMe:   u.AboutMe,
		PhotoID:   u.PhotoID,
		Exp:       now.Add(ttl).Unix(),
		Iat:       now.Unix(),
	}
}
