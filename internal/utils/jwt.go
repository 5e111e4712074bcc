package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fxrumble/identity-service/internal/domain"
)

// JWTManager mints and verifies signed session tokens
type JWTManager struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, sessionTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// IssueSessionToken signs session claims for the given user
func (j *JWTManager) IssueSessionToken(user *domain.User) (string, error) {
	claims := domain.ClaimsForUser(user, j.sessionTTL)

	mapClaims := jwt.MapClaims{
		"id":         claims.UserID,
		"email":      claims.Email,
		"first_name": claims.FirstName,
		"last_name":  claims.LastName,
		"exp":        claims.Exp,
		"iat":        claims.Iat,
	}
	if claims.AboutMe != nil {
		mapClaims["about_me"] = *claims.AboutMe
	}
	if claims.PhotoID != nil {
		mapClaims["photo_id"] = *claims.PhotoID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// VerifySessionToken validates a session token and returns its claims.
// Rejects bad signatures, malformed payloads and expired tokens.
func (j *JWTManager) VerifySessionToken(tokenString string) (*domain.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := mapClaims["id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid id in token")
	}

	email, ok := mapClaims["email"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid email in token")
	}

	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in token")
	}

	iat, ok := mapClaims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat in token")
	}

	claims := &domain.SessionClaims{
		UserID: userID,
		Email:  email,
		Exp:    int64(exp),
		Iat:    int64(iat),
	}

	if firstName, ok := mapClaims["first_name"].(string); ok {
		claims.FirstName = firstName
	}
	if lastName, ok := mapClaims["last_name"].(string); ok {
		claims.LastName = lastName
	}
	if aboutMe, ok := mapClaims["about_me"].(string); ok {
		claims.AboutMe = &aboutMe
	}
	if photoID, ok := mapClaims["photo_id"].(string); ok {
		claims.PhotoID = &photoID
	}

	if claims.IsExpired() {
		return nil, fmt.Errorf("token is expired")
	}

	return claims, nil
}

// SessionTTL returns the session token lifetime
func (j *JWTManager) SessionTTL() time.Duration {
	return j.sessionTTL
}
