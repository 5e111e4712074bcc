package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fxrumble/identity-service/internal/dto"
	"github.com/fxrumble/identity-service/internal/service"
)

// AuthMiddleware validates the session cookie and adds user info to context
func AuthMiddleware(authService service.AuthService, cookies *SessionCookieManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := cookies.Token(c)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "session cookie is required",
			})
			c.Abort()
			return
		}

		claims, err := authService.VerifySession(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "invalid or expired session",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("claims", claims)

		c.Next()
	}
}
