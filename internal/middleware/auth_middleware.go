package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hairpin-store/hairpin-backend/internal/app/model"
	apperrors "github.com/hairpin-store/hairpin-backend/internal/errors"
	"github.com/hairpin-store/hairpin-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey      = "user_id"
	UserEmailKey   = "user_email"
	TokenKey       = "access_token"
	TokenExpiryKey = "access_token_expires_at"
)

// RevocationChecker reports tokens revoked by logout.
type RevocationChecker interface {
	IsTokenBlacklisted(ctx context.Context, token string) (bool, error)
}

// RoleChecker resolves role membership from storage.
type RoleChecker interface {
	HasRole(ctx context.Context, userID uint, roleName string) (bool, error)
	IsPrivileged(ctx context.Context, userID uint) (bool, error)
}

type AuthMiddleware struct {
	jwtSecret string
	revoked   RevocationChecker
	roles     RoleChecker
}

// NewAuthMiddleware builds the auth guards. revoked may be nil when no token
// store is configured.
func NewAuthMiddleware(jwtSecret string, revoked RevocationChecker, roles RoleChecker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		revoked:   revoked,
		roles:     roles,
	}
}

// Authenticate validates the bearer access token (required).
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Authorization header must be: Bearer <token>")
			c.Abort()
			return
		}
		token := parts[1]

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if errors.Is(err, util.ErrExpiredToken) {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Token has expired")
			} else {
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid token")
			}
			c.Abort()
			return
		}

		if claims.TokenType != util.TokenTypeAccess {
			log.Warn("Refresh token used as access token", map[string]interface{}{
				"user_id": claims.UserID,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid token")
			c.Abort()
			return
		}

		if m.revoked != nil {
			revoked, err := m.revoked.IsTokenBlacklisted(c.Request.Context(), token)
			if err != nil {
				log.Error("Token revocation check failed", err, map[string]interface{}{
					"user_id": claims.UserID,
				})
				apperrors.InternalError(c, "")
				c.Abort()
				return
			}
			if revoked {
				log.Warn("Revoked token presented", map[string]interface{}{
					"user_id": claims.UserID,
				})
				apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenRevoked, "Token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(TokenKey, token)
		if claims.ExpiresAt != nil {
			c.Set(TokenExpiryKey, claims.ExpiresAt.Time)
		}

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"email":   claims.Email,
		})

		c.Next()
	}
}

// RequirePrivileged admits Administrators and Managers. Membership is read
// from the database, not from token claims, so revocations apply at once.
func (m *AuthMiddleware) RequirePrivileged() gin.HandlerFunc {
	return m.requireRole("privileged", apperrors.AuthzForbidden, m.roles.IsPrivileged)
}

// RequireAdministrator admits Administrators only.
func (m *AuthMiddleware) RequireAdministrator() gin.HandlerFunc {
	return m.requireRole(model.RoleAdministrator, apperrors.AuthzAdminOnly, func(ctx context.Context, userID uint) (bool, error) {
		return m.roles.HasRole(ctx, userID, model.RoleAdministrator)
	})
}

func (m *AuthMiddleware) requireRole(label, code string, check func(context.Context, uint) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userID, ok := GetUserID(c)
		if !ok {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		allowed, err := check(c.Request.Context(), userID)
		if err != nil {
			log.Error("Role check failed", err, map[string]interface{}{
				"user_id":  userID,
				"required": label,
			})
			apperrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !allowed {
			log.Warn("Insufficient permissions", map[string]interface{}{
				"user_id":  userID,
				"required": label,
				"path":     c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusForbidden, code, "You do not have permission to perform this action")
			c.Abort()
			return
		}

		log.Debug("Role check passed", map[string]interface{}{
			"user_id":  userID,
			"required": label,
		})
		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// GetAccessToken returns the raw bearer token and its expiry.
func GetAccessToken(c *gin.Context) (string, time.Time, bool) {
	token := c.GetString(TokenKey)
	if token == "" {
		return "", time.Time{}, false
	}
	return token, c.GetTime(TokenExpiryKey), true
}
