package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/generation"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/interfaces/http/dto"
	"storyforge-api/pkg/logger"
)

// GenerationHandler 章节生成处理器
type GenerationHandler struct {
	service *generation.Service
	cache   *redis.Cache
}

// NewGenerationHandler 创建章节生成处理器
func NewGenerationHandler(service *generation.Service, cache *redis.Cache) *GenerationHandler {
	return &GenerationHandler{service: service, cache: cache}
}

// GenerateChapters 批量生成章节
// @Summary 批量生成章节
// @Description 顺序生成 N 个章节并落库；同项目并发生成会被拒绝（409）
// @Tags Generation
// @Accept json
// @Produce json
// @Param project_id path string true "项目 ID"
// @Param request body dto.GenerateChaptersRequest true "生成请求"
// @Success 201 {object} dto.GenerateChaptersResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/projects/{project_id}/generations [post]
func (h *GenerationHandler) GenerateChapters(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	var req dto.GenerateChaptersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, scope.UserID)
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, scope.ProjectID)

	outcomes, err := h.service.GenerateChapters(ctx, scope, req.ToBatchRequest())
	if err != nil {
		dto.FromError(c, err)
		return
	}

	// 新章节落库后章节/报告列表缓存已失效
	if h.cache != nil {
		if err := h.cache.InvalidateProject(ctx, scope.UserID, scope.ProjectID); err != nil {
			logger.Warn(ctx, "项目缓存失效失败", "error", err)
		}
	}

	dto.Created(c, dto.GenerateChaptersResponse{Outcomes: outcomes})
}

// GenerationStatus 查询当前项目是否有生成在跑
// @Summary 查询生成状态
// @Tags Generation
// @Produce json
// @Param project_id path string true "项目 ID"
// @Success 200 {object} dto.GenerationStatusResponse
// @Router /api/v1/projects/{project_id}/generations/status [get]
func (h *GenerationHandler) GenerationStatus(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	dto.Success(c, dto.GenerationStatusResponse{
		Running: h.service.Guard().Running(scope),
	})
}
