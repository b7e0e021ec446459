// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/knowledge"
)

// scopeFromRequest 从请求中提取 (user, project) 作用域
// user_id 由身份中间件写入 Gin Context，project_id 取路径参数。
func scopeFromRequest(c *gin.Context) (knowledge.Scope, bool) {
	userID := c.GetString("user_id")
	projectID := strings.TrimSpace(c.Param("project_id"))
	if userID == "" || projectID == "" {
		return knowledge.Scope{}, false
	}
	return knowledge.Scope{UserID: userID, ProjectID: projectID}, true
}
