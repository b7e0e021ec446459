package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/interfaces/http/dto"
)

const chapterListCacheTTL = 30 * time.Second

// ChapterHandler 章节查询处理器
type ChapterHandler struct {
	chapters repository.ChapterRepository
	reports  repository.ValidityReportRepository
	cache    *redis.Cache
}

// NewChapterHandler 创建章节查询处理器
func NewChapterHandler(chapters repository.ChapterRepository, reports repository.ValidityReportRepository, cache *redis.Cache) *ChapterHandler {
	return &ChapterHandler{chapters: chapters, reports: reports, cache: cache}
}

// ListChapters 列出项目章节
// @Summary 列出项目章节
// @Tags Chapter
// @Produce json
// @Param project_id path string true "项目 ID"
// @Success 200 {object} dto.ChapterListResponse
// @Router /api/v1/projects/{project_id}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}
	ctx := c.Request.Context()
	rs := repository.Scope{UserID: scope.UserID, ProjectID: scope.ProjectID}

	load := func() (interface{}, error) {
		chapters, err := h.chapters.ListByProject(ctx, rs)
		if err != nil {
			return nil, err
		}
		return dto.NewChapterListResponse(chapters), nil
	}

	if h.cache != nil {
		key := redis.ChapterListKey(scope.UserID, scope.ProjectID)
		bytes, err := h.cache.GetOrLoadSafe(ctx, key, chapterListCacheTTL, load)
		if err == nil {
			var resp dto.ChapterListResponse
			if err := json.Unmarshal(bytes, &resp); err == nil {
				dto.Success(c, &resp)
				return
			}
		}
		// 缓存路径失败时回退直查
	}

	data, err := load()
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, data.(*dto.ChapterListResponse))
}

// GetChapter 获取章节详情（含正文）
// @Summary 获取章节详情
// @Tags Chapter
// @Produce json
// @Param project_id path string true "项目 ID"
// @Param chapter_id path string true "章节 ID"
// @Success 200 {object} entity.Chapter
// @Router /api/v1/projects/{project_id}/chapters/{chapter_id} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	chapter, err := h.chapters.GetByID(c.Request.Context(), c.Param("chapter_id"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	if chapter == nil || chapter.UserID != scope.UserID || chapter.ProjectID != scope.ProjectID {
		dto.NotFound(c, "chapter not found")
		return
	}
	dto.Success(c, chapter)
}

// GetChapterReport 获取章节评审报告
// @Summary 获取章节评审报告
// @Tags Chapter
// @Produce json
// @Param project_id path string true "项目 ID"
// @Param chapter_id path string true "章节 ID"
// @Success 200 {object} entity.ValidityReport
// @Router /api/v1/projects/{project_id}/chapters/{chapter_id}/report [get]
func (h *ChapterHandler) GetChapterReport(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	report, err := h.reports.GetByChapter(c.Request.Context(), c.Param("chapter_id"))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	if report == nil || report.UserID != scope.UserID || report.ProjectID != scope.ProjectID {
		dto.NotFound(c, "validity report not found")
		return
	}
	dto.Success(c, report)
}

// ListReports 列出项目评审报告
// @Summary 列出项目评审报告
// @Tags Chapter
// @Produce json
// @Param project_id path string true "项目 ID"
// @Success 200 {object} dto.ValidityReportListResponse
// @Router /api/v1/projects/{project_id}/reports [get]
func (h *ChapterHandler) ListReports(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	reports, err := h.reports.ListByProject(c.Request.Context(), repository.Scope{UserID: scope.UserID, ProjectID: scope.ProjectID})
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, &dto.ValidityReportListResponse{Reports: reports, Total: len(reports)})
}
