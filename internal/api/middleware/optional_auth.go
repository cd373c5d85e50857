package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"resumeforge/internal/auth"
)

// OptionalAuthMiddleware 在令牌存在且有效时注入 userID，否则作为匿名请求放行。
// 公开简历的读取端点用它区分所有者视角与访客视角。
func OptionalAuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil || claims.TokenType != "access" {
			c.Next()
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}
