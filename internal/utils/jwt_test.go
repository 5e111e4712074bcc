package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxrumble/identity-service/internal/domain"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func testUser() *domain.User {
	about := "currency trader"
	photo := "photo-123"
	return &domain.User{
		ID:        "user-1",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		AboutMe:   &about,
		PhotoID:   &photo,
	}
}

func TestIssueAndVerifySessionToken(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour)

	token, err := manager.IssueSessionToken(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.VerifySessionToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane", claims.FirstName)
	assert.Equal(t, "Doe", claims.LastName)
	require.NotNil(t, claims.AboutMe)
	assert.Equal(t, "currency trader", *claims.AboutMe)
	require.NotNil(t, claims.PhotoID)
	assert.Equal(t, "photo-123", *claims.PhotoID)

	assert.Greater(t, claims.Exp, claims.Iat)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), claims.Exp, 5)
}

func TestVerifySessionToken_OptionalClaimsOmitted(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour)

	user := testUser()
	user.AboutMe = nil
	user.PhotoID = nil

	token, err := manager.IssueSessionToken(user)
	require.NoError(t, err)

	claims, err := manager.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.AboutMe)
	assert.Nil(t, claims.PhotoID)
}

func TestVerifySessionToken_Expired(t *testing.T) {
	manager := NewJWTManager(testSecret, -time.Minute)

	token, err := manager.IssueSessionToken(testUser())
	require.NoError(t, err)

	_, err = manager.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestVerifySessionToken_WrongSecret(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour)
	other := NewJWTManager("another-secret-that-is-also-32-characters-xx", time.Hour)

	token, err := other.IssueSessionToken(testUser())
	require.NoError(t, err)

	_, err = manager.VerifySessionToken(token)
	assert.Error(t, err)
}

func TestVerifySessionToken_Garbage(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := manager.VerifySessionToken(token)
		assert.Error(t, err, "token %q must be rejected", token)
	}
}
