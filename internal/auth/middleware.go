package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/approval"
)

// UserContextKey 用户上下文在 gin.Context 中的键
const UserContextKey = "user_context"

// UserContext 经过认证的用户上下文
type UserContext struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearerToken := c.GetHeader("Authorization")
		if bearerToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		tokenString := ExtractTokenFromBearer(bearerToken)
		claims, err := jwtService.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		if claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "access token required",
			})
			return
		}

		c.Set(UserContextKey, &UserContext{
			UserID: claims.UserID,
			Name:   claims.Name,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// GetUserContext 从 gin.Context 中取出用户上下文
func GetUserContext(c *gin.Context) (*UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, false
	}
	uc, ok := value.(*UserContext)
	return uc, ok
}

// RequireAdmin 仅允许管理员角色访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		uc, ok := GetUserContext(c)
		if !ok || !approval.IsAdmin(uc.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin role required",
			})
			return
		}
		c.Next()
	}
}
