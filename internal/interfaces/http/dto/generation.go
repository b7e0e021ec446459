package dto

import (
	"fmt"

	"storyforge-api/internal/application/generation"
)

// GenerateChaptersRequest 批量生成章节请求
// 顶层键以 camelCase 为准，同时兼容 snake_case 拼写
type GenerateChaptersRequest struct {
	NumChapters  int            `json:"numChapters"`
	Plot         string         `json:"plot,omitempty"`
	WritingStyle string         `json:"writingStyle,omitempty"`
	Instructions map[string]any `json:"instructions,omitempty"`

	NumChaptersSnake  int    `json:"num_chapters,omitempty"`
	WritingStyleSnake string `json:"writing_style,omitempty"`
}

// Normalize 合并两种拼写，camelCase 优先
func (r *GenerateChaptersRequest) Normalize() {
	if r.NumChapters == 0 {
		r.NumChapters = r.NumChaptersSnake
	}
	if r.WritingStyle == "" {
		r.WritingStyle = r.WritingStyleSnake
	}
}

// Validate 基本参数校验
func (r *GenerateChaptersRequest) Validate() error {
	if r.NumChapters < 1 || r.NumChapters > 20 {
		return fmt.Errorf("numChapters must be between 1 and 20")
	}
	return nil
}

// GenerateChaptersResponse 批量生成章节响应
type GenerateChaptersResponse struct {
	Outcomes []generation.ChapterOutcome `json:"outcomes"`
}

// GenerationStatusResponse 生成状态响应
type GenerationStatusResponse struct {
	Running bool `json:"running"`
}

// ToBatchRequest 转换为应用层请求
func (r *GenerateChaptersRequest) ToBatchRequest() *generation.BatchRequest {
	return &generation.BatchRequest{
		NumChapters:  r.NumChapters,
		Plot:         r.Plot,
		WritingStyle: r.WritingStyle,
		Instructions: r.Instructions,
	}
}
