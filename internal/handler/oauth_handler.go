package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fxrumble/identity-service/internal/domain"
	"github.com/fxrumble/identity-service/internal/dto"
	"github.com/fxrumble/identity-service/internal/oauth"
	"github.com/fxrumble/identity-service/internal/service"
)

// OAuthHandler drives the provider redirect flows
type OAuthHandler struct {
	authService service.AuthService
	providers   *oauth.Registry
	states      *oauth.StateStore
	cookies     *SessionCookieManager
	frontendURL string
	logger      *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(
	authService service.AuthService,
	providers *oauth.Registry,
	states *oauth.StateStore,
	cookies *SessionCookieManager,
	frontendURL string,
	logger *zap.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		authService: authService,
		providers:   providers,
		states:      states,
		cookies:     cookies,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Start redirects the user agent to the provider's consent page
// @Summary Start provider login
// @Tags auth
// @Success 302
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/{provider} [get]
func (h *OAuthHandler) Start(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}

	state, err := h.states.Issue(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to issue oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "failed to start provider login",
		})
		return
	}

	c.Redirect(http.StatusFound, provider.AuthURL(state))
}

// Callback consumes the provider redirect, resolves the user and issues the
// session cookie. Any failure here is a 500 with a redirect-free body; the
// front end retries from the start URL.
// @Summary Provider login callback
// @Tags auth
// @Success 302
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}

	ok, err := h.states.Consume(c.Request.Context(), c.Query("state"))
	if err != nil {
		h.fail(c, provider.Name(), "failed to check oauth state", err)
		return
	}
	if !ok {
		h.fail(c, provider.Name(), "invalid or expired oauth state", nil)
		return
	}

	profile, err := provider.Callback(c.Request.Context(), c.Request)
	if err != nil {
		h.fail(c, provider.Name(), "provider callback failed", err)
		return
	}

	result, err := h.authService.OAuthLogin(c.Request.Context(), provider.Name(), profile)
	if err != nil {
		h.fail(c, provider.Name(), "failed to resolve provider login", err)
		return
	}

	h.cookies.Attach(c, result.Token)
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/dashboard", h.frontendURL))
}

func (h *OAuthHandler) provider(c *gin.Context) (oauth.Provider, bool) {
	name := domain.Provider(c.Param("provider"))
	provider, ok := h.providers.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: fmt.Sprintf("unknown provider %q", name),
		})
		return nil, false
	}
	return provider, true
}

func (h *OAuthHandler) fail(c *gin.Context, provider domain.Provider, msg string, err error) {
	h.logger.Error(msg,
		zap.String("provider", provider.String()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "Internal server error",
		Message: fmt.Sprintf("%s login failed", provider),
	})
}
