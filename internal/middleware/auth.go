package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by VerifyToken.
const (
	ContextUserID = "userID"
)

// ErrorResponse is the JSON body of middleware rejections.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	disabled bool
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. With disabled set every request is let
// through as the "local" user; this is meant for running on the memory backends only.
func NewAuthMiddleware(verifier TokenVerifier, disabled bool, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	if verifier == nil && !disabled {
		logger.Fatal("CRITICAL_ERROR: Firebase Auth client is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{verifier: verifier, disabled: disabled, logger: logger}
}

// bearerToken extracts the ID token from the Authorization header. Browsers cannot set
// headers on WebSocket or EventSource requests, so a "token" query parameter is accepted too.
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, ""
		}
		return "", "Authorization header is required"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "Authorization header format must be 'Bearer {token}'"
	}
	return parts[1], ""
}

// VerifyToken is a Gin middleware handler function that verifies a Firebase ID token.
// If valid, it sets the caller's uid in the Gin context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.disabled {
			c.Set(ContextUserID, "local")
			c.Next()
			return
		}

		idToken, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: problem})
			return
		}

		token, err := m.verifier.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.logger.Warn("AuthMiddleware: Error verifying Firebase ID token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Set(ContextUserID, token.UID)
		c.Next()
	}
}
