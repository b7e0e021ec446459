// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// Update 更新章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// Delete 删除章节
	Delete(ctx context.Context, id string) error

	// ListByProject 按章节序号升序获取项目全部章节
	ListByProject(ctx context.Context, scope Scope) ([]*entity.Chapter, error)

	// MaxNumber 获取项目当前最大章节序号（无章节时返回 0）
	MaxNumber(ctx context.Context, scope Scope) (int, error)

	// SetEmbeddingID 写回向量索引标识
	SetEmbeddingID(ctx context.Context, id, embeddingID string) error
}
