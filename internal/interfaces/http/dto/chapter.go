package dto

import (
	"time"

	"storyforge-api/internal/domain/entity"
)

// ChapterSummary 章节列表项（不含正文）
type ChapterSummary struct {
	ID            string    `json:"id"`
	Number        int       `json:"number"`
	Title         string    `json:"title,omitempty"`
	WordCount     int       `json:"word_count"`
	Status        string    `json:"status"`
	ReachedTarget bool      `json:"reached_target"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Chapters []ChapterSummary `json:"chapters"`
	Total    int              `json:"total"`
}

// NewChapterListResponse 从实体构建章节列表
func NewChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	out := make([]ChapterSummary, 0, len(chapters))
	for _, ch := range chapters {
		if ch == nil {
			continue
		}
		summary := ChapterSummary{
			ID:        ch.ID,
			Number:    ch.Number,
			Title:     ch.Title,
			WordCount: ch.WordCount,
			Status:    string(ch.Status),
			CreatedAt: ch.CreatedAt,
		}
		if ch.GenerationMetadata != nil {
			summary.ReachedTarget = ch.GenerationMetadata.ReachedTarget
		}
		out = append(out, summary)
	}
	return &ChapterListResponse{Chapters: out, Total: len(out)}
}

// ValidityReportListResponse 评审报告列表响应
type ValidityReportListResponse struct {
	Reports []*entity.ValidityReport `json:"reports"`
	Total   int                      `json:"total"`
}
