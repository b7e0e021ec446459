package handler

import (
	"github.com/gin-gonic/gin"

	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/interfaces/http/dto"
	"storyforge-api/pkg/logger"
)

const defaultSearchTopK = 10

// KnowledgeHandler 知识库处理器
type KnowledgeHandler struct {
	store *knowledge.Store
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(store *knowledge.Store) *KnowledgeHandler {
	return &KnowledgeHandler{store: store}
}

// Search 相似检索（调试接口）
// @Summary 知识库相似检索
// @Tags Knowledge
// @Accept json
// @Produce json
// @Param project_id path string true "项目 ID"
// @Param request body dto.KnowledgeSearchRequest true "检索请求"
// @Success 200 {object} dto.KnowledgeSearchResponse
// @Router /api/v1/projects/{project_id}/knowledge/search [post]
func (h *KnowledgeHandler) Search(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	var req dto.KnowledgeSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err.Error())
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	var filter *knowledge.TypeFilter
	if len(req.IncludeTypes) > 0 || len(req.ExcludeTypes) > 0 {
		filter = &knowledge.TypeFilter{
			IncludeTypes: req.IncludeTypes,
			ExcludeTypes: req.ExcludeTypes,
		}
	}

	results, err := h.store.SimilaritySearch(c.Request.Context(), scope, req.Query, topK, filter)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.NewKnowledgeSearchResponse(results))
}

// List 导出作用域内全部知识条目
// @Summary 列出知识库条目
// @Tags Knowledge
// @Produce json
// @Param project_id path string true "项目 ID"
// @Success 200 {object} dto.KnowledgeListResponse
// @Router /api/v1/projects/{project_id}/knowledge [get]
func (h *KnowledgeHandler) List(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	items, err := h.store.ListAll(c.Request.Context(), scope)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.NewKnowledgeListResponse(items))
}

// Refresh 重算作用域内所有条目的向量
// @Summary 重建知识库向量
// @Description 换嵌入模型或索引受损后重算全部向量
// @Tags Knowledge
// @Produce json
// @Param project_id path string true "项目 ID"
// @Success 200 {object} dto.KnowledgeRefreshResponse
// @Router /api/v1/projects/{project_id}/knowledge/refresh [post]
func (h *KnowledgeHandler) Refresh(c *gin.Context) {
	scope, ok := scopeFromRequest(c)
	if !ok {
		dto.BadRequest(c, "missing user or project identifier")
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, scope.ProjectID)
	count, err := h.store.Refresh(ctx, scope)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	logger.Info(ctx, "知识库向量重建完成", "refreshed", count)
	dto.Success(c, dto.KnowledgeRefreshResponse{Refreshed: count})
}
