package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/fxrumble/identity-service/internal/config"
	"github.com/fxrumble/identity-service/internal/handler"
	"github.com/fxrumble/identity-service/internal/mailer"
	"github.com/fxrumble/identity-service/internal/oauth"
	"github.com/fxrumble/identity-service/internal/repository"
	"github.com/fxrumble/identity-service/internal/service"
	"github.com/fxrumble/identity-service/internal/utils"
	"github.com/fxrumble/identity-service/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.SessionTTL.Duration)

	mail, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	linker := service.NewIdentityLinker(repos.User, repos.ProviderLink, cfg.Security.BCryptCost, infra.Logger())

	authService := service.NewAuthService(
		repos.User,
		linker,
		jwtManager,
		mail,
		infra.Logger(),
		cfg.Security.BCryptCost,
		service.Links{
			APIBaseURL:  cfg.APIBaseURL,
			FrontendURL: cfg.FrontendURL,
		},
	)

	providers := oauth.NewRegistry(
		oauth.NewFacebook(oauth.Credentials{
			ClientID:     cfg.OAuth.Facebook.ClientID,
			ClientSecret: cfg.OAuth.Facebook.ClientSecret,
			CallbackURL:  cfg.OAuth.Facebook.CallbackURL,
		}),
		oauth.NewGitHub(oauth.Credentials{
			ClientID:     cfg.OAuth.GitHub.ClientID,
			ClientSecret: cfg.OAuth.GitHub.ClientSecret,
			CallbackURL:  cfg.OAuth.GitHub.CallbackURL,
		}),
		oauth.NewGoogle(oauth.Credentials{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			CallbackURL:  cfg.OAuth.Google.CallbackURL,
		}),
		oauth.NewSteam(oauth.SteamConfig{
			APIKey:    cfg.OAuth.Steam.APIKey,
			ReturnURL: cfg.OAuth.Steam.ReturnURL,
			Realm:     cfg.OAuth.Steam.Realm,
		}),
	)

	states := oauth.NewStateStore(infra.Redis(), cfg.OAuth.StateTTL.Duration)
	cookies := handler.NewSessionCookieManager(cfg.JWT.SessionTTL.Duration, cfg.IsProduction())
	healthChecker := NewHealthChecker(infra)

	authHandler := handler.NewAuthHandler(authService, cookies, cfg.FrontendURL)
	oauthHandler := handler.NewOAuthHandler(authService, providers, states, cookies, cfg.FrontendURL, infra.Logger())

	router := gin.Default()
	router.Use(otelgin.Middleware("identity-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, authHandler, oauthHandler, authService, cookies, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	authHandler *handler.AuthHandler,
	oauthHandler *handler.OAuthHandler,
	authService service.AuthService,
	cookies *handler.SessionCookieManager,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	requireSession := handler.AuthMiddleware(authService, cookies)

	auth := router.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.GET("/verify-email", authHandler.VerifyEmail)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.PUT("/reset-password", authHandler.ResetPassword)

		auth.POST("/logout", requireSession, authHandler.Logout)
		auth.GET("/me", requireSession, authHandler.GetMe)
		auth.GET("/user/:id", requireSession, authHandler.GetUserByID)
		auth.PUT("/edit", requireSession, authHandler.Edit)
		auth.PUT("/update-photo", requireSession, authHandler.UpdatePhoto)

		auth.GET("/:provider", oauthHandler.Start)
		auth.GET("/:provider/callback", oauthHandler.Callback)
		// Steam's registered return path
		auth.GET("/:provider/return", oauthHandler.Callback)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
