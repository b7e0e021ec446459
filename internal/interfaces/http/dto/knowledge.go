package dto

import (
	"storyforge-api/internal/application/knowledge"
)

// KnowledgeSearchRequest 知识库相似检索请求（调试用）
type KnowledgeSearchRequest struct {
	Query        string   `json:"query" binding:"required"`
	TopK         int      `json:"top_k,omitempty"`
	IncludeTypes []string `json:"include_types,omitempty"`
	ExcludeTypes []string `json:"exclude_types,omitempty"`
}

// KnowledgeHit 检索命中结果
type KnowledgeHit struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// KnowledgeSearchResponse 知识库相似检索响应
type KnowledgeSearchResponse struct {
	Results []KnowledgeHit `json:"results"`
	Total   int            `json:"total"`
}

// NewKnowledgeSearchResponse 从检索结果构建响应
func NewKnowledgeSearchResponse(results []*knowledge.SearchResult) *KnowledgeSearchResponse {
	hits := make([]KnowledgeHit, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		hits = append(hits, KnowledgeHit{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}
	return &KnowledgeSearchResponse{Results: hits, Total: len(hits)}
}

// KnowledgeItem 知识库条目
type KnowledgeItem struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// KnowledgeListResponse 知识库条目列表响应
type KnowledgeListResponse struct {
	Items []KnowledgeItem `json:"items"`
	Total int             `json:"total"`
}

// NewKnowledgeListResponse 从条目列表构建响应
func NewKnowledgeListResponse(items []*knowledge.Item) *KnowledgeListResponse {
	out := make([]KnowledgeItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, KnowledgeItem{
			ID:       item.ID,
			Content:  item.Content,
			Metadata: item.Metadata,
		})
	}
	return &KnowledgeListResponse{Items: out, Total: len(out)}
}

// KnowledgeRefreshResponse 知识库重建响应
type KnowledgeRefreshResponse struct {
	Refreshed int `json:"refreshed"`
}
