package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"numerologist/pkg/auth"
	pkgerrors "numerologist/pkg/errors"
)

const (
	// UserIDKey gin 上下文中的用户 ID 键
	UserIDKey = "user_id"

	// UserIDHeader 未启用认证时由网关注入的用户头
	UserIDHeader = "X-User-ID"
)

// AuthMiddleware JWT authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				abortUnauthorized(c, "Token expired")
			} else {
				abortUnauthorized(c, "Invalid token")
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set("claims", claims)
		c.Next()
	}
}

// HeaderAuthMiddleware 从 X-User-ID 头读取用户（认证由上游网关完成）
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			abortUnauthorized(c, UserIDHeader+" header required")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	e := pkgerrors.NewUnauthorized("UNAUTHORIZED", message)
	c.AbortWithStatusJSON(int(e.Code), gin.H{
		"code":    e.Code,
		"message": e.Message,
		"reason":  e.Reason,
	})
}
