package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fxrumble/identity-service/internal/domain"
	"github.com/fxrumble/identity-service/internal/dto"
	"github.com/fxrumble/identity-service/internal/mailer"
	"github.com/fxrumble/identity-service/internal/oauth"
	"github.com/fxrumble/identity-service/internal/repository"
	"github.com/fxrumble/identity-service/internal/utils"
)

// mailTimeout bounds the fire-and-forget email sends, which outlive the
// originating request context.
const mailTimeout = 30 * time.Second

// Links holds the base URLs embedded into outbound emails
type Links struct {
	APIBaseURL  string
	FrontendURL string
}

// authService implements AuthService interface
type authService struct {
	userRepo     repository.UserRepository
	linker       *IdentityLinker
	jwtManager   *utils.JWTManager
	mail         mailer.Mailer
	logger       *zap.Logger
	bcryptCost   int
	links        Links
	loginCounter metric.Int64Counter
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	linker *IdentityLinker,
	jwtManager *utils.JWTManager,
	mail mailer.Mailer,
	logger *zap.Logger,
	bcryptCost int,
	links Links,
) AuthService {
	meter := otel.Meter("identity-service")
	loginCounter, err := meter.Int64Counter("auth_login_attempts_total",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		logger.Warn("failed to create login counter", zap.Error(err))
	}

	return &authService{
		userRepo:     userRepo,
		linker:       linker,
		jwtManager:   jwtManager,
		mail:         mail,
		logger:       logger,
		bcryptCost:   bcryptCost,
		links:        links,
		loginCounter: loginCounter,
	}
}

// Login authenticates a local user and issues a session token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error) {
	email := utils.SanitizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.countLogin(ctx, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.countLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		s.countLogin(ctx, "email_not_verified")
		return nil, ErrEmailNotVerified
	}

	s.countLogin(ctx, "success")
	return s.issueSession(user)
}

// Register creates an unverified user and sends the verification email.
// Mail delivery is fire-and-forget: the user exists either way and stays
// unverified until they follow the link.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	email := utils.SanitizeEmail(req.Email)

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := utils.NewSecureToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	user := &domain.User{
		Email:             email,
		PasswordHash:      passwordHash,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		IsVerified:        false,
		VerificationToken: &verificationToken,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	verificationURL := fmt.Sprintf("%s/auth/verify-email?token=%s", s.links.APIBaseURL, verificationToken)
	s.sendAsync(user.Email, func(ctx context.Context) error {
		return s.mail.SendVerificationEmail(ctx, user.Email, verificationURL)
	})

	response := userResponse(user)
	return &response, nil
}

// VerifyEmail consumes a verification token, marking the owner verified
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	_, err := s.userRepo.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to verify email: %w", err)
	}

	return nil
}

// OAuthLogin resolves a provider profile through the linker and issues a
// session the same way Login does. Provider accounts are verified by
// construction, so no is_verified gate applies.
func (s *authService) OAuthLogin(ctx context.Context, provider domain.Provider, profile *oauth.Profile) (*LoginResult, error) {
	user, err := s.linker.Resolve(ctx, provider, profile)
	if err != nil {
		s.countLogin(ctx, "oauth_failed")
		return nil, err
	}

	s.countLogin(ctx, "oauth_success")
	return s.issueSession(user)
}

// ForgotPassword issues a reset token with a one-hour expiry and sends the
// reset email. A later call replaces the active token entirely.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = utils.SanitizeEmail(email)

	token, err := utils.NewSecureToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expires := time.Now().Add(time.Hour)
	if err := s.userRepo.SetResetToken(ctx, email, token, expires); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.links.FrontendURL, token)
	s.sendAsync(email, func(ctx context.Context) error {
		return s.mail.SendPasswordResetEmail(ctx, email, resetURL)
	})

	return nil
}

// ResetPassword consumes a still-active reset token and applies the new
// password. The conditional update in the store guarantees exactly one of
// two concurrent calls with the same token succeeds.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	passwordHash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.userRepo.ConsumeResetToken(ctx, token, passwordHash, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	return nil
}

// GetUser gets the public view of a user
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	response := userResponse(user)
	return &response, nil
}

// EditUser applies a profile update; the target is addressed by email
func (s *authService) EditUser(ctx context.Context, req *dto.EditUserRequest) (*dto.UserResponse, error) {
	email := utils.SanitizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.AboutMe = req.AboutMe

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	response := userResponse(user)
	return &response, nil
}

// EditUserPhoto sets the photo reference for a user
func (s *authService) EditUserPhoto(ctx context.Context, userID, photoID string) (*dto.UserResponse, error) {
	if err := s.userRepo.UpdatePhoto(ctx, userID, photoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user photo: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	response := userResponse(user)
	return &response, nil
}

// VerifySession validates a session token
func (s *authService) VerifySession(token string) (*domain.SessionClaims, error) {
	claims, err := s.jwtManager.VerifySessionToken(token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (s *authService) issueSession(user *domain.User) (*LoginResult, error) {
	token, err := s.jwtManager.IssueSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &LoginResult{
		Token: token,
		User:  userResponse(user),
	}, nil
}

// sendAsync hands an email send to a goroutine. A delivery failure is
// logged, never surfaced: the side effect that authorized the email has
// already been committed.
func (s *authService) sendAsync(to string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.logger.Error("failed to send email",
				zap.String("to", to),
				zap.Error(err),
			)
		}
	}()
}

func (s *authService) countLogin(ctx context.Context, outcome string) {
	if s.loginCounter == nil {
		return
	}
	s.loginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		AboutMe:    user.AboutMe,
		PhotoID:    user.PhotoID,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}
