package service

import (
	"context"

	"github.com/fxrumble/identity-service/internal/domain"
	"github.com/fxrumble/identity-service/internal/dto"
	"github.com/fxrumble/identity-service/internal/oauth"
)

// AuthService defines the identity and session entry operations
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	VerifyEmail(ctx context.Context, token string) error
	OAuthLogin(ctx context.Context, provider domain.Provider, profile *oauth.Profile) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	EditUser(ctx context.Context, req *dto.EditUserRequest) (*dto.UserResponse, error)
	EditUserPhoto(ctx context.Context, userID, photoID string) (*dto.UserResponse, error)
	VerifySession(token string) (*domain.SessionClaims, error)
}

// LoginResult carries the signed session token alongside the sanitized user
type LoginResult struct {
	Token string
	User  dto.UserResponse
}
