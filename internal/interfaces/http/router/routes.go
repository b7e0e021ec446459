// Package router 提供 HTTP 路由配置
package router

import (
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/interfaces/http/middleware"
)

// RegisterRoutes 注册全部路由
func (r *Router) RegisterRoutes(
	healthHandler *handler.HealthHandler,
	generationHandler *handler.GenerationHandler,
	chapterHandler *handler.ChapterHandler,
	knowledgeHandler *handler.KnowledgeHandler,
) {
	// 系统路由（无需身份）
	r.engine.GET("/health", healthHandler.Health)
	r.engine.GET("/ready", healthHandler.Ready)
	r.engine.GET("/live", healthHandler.Live)

	// API v1 路由组
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.Identity())
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
	}, r.limiter))

	projects := v1.Group("/projects/:project_id")
	{
		// 章节生成
		projects.POST("/generations", generationHandler.GenerateChapters)
		projects.GET("/generations/status", generationHandler.GenerationStatus)

		// 章节查询
		projects.GET("/chapters", chapterHandler.ListChapters)
		projects.GET("/chapters/:chapter_id", chapterHandler.GetChapter)
		projects.GET("/chapters/:chapter_id/report", chapterHandler.GetChapterReport)
		projects.GET("/reports", chapterHandler.ListReports)

		// 知识库
		projects.GET("/knowledge", knowledgeHandler.List)
		projects.POST("/knowledge/search", knowledgeHandler.Search)
		projects.POST("/knowledge/refresh", knowledgeHandler.Refresh)
	}
}
