// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"strings"

	"storyforge-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader 用户身份头（由上游网关注入）
	UserIDHeader = "X-User-ID"
)

// Identity 用户身份中间件
// 服务部署在认证网关之后，信任网关注入的用户标识头。
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "missing user identity",
			})
			return
		}

		c.Set("user_id", userID)

		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
