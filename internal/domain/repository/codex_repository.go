// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// CodexRepository 设定条目仓储接口
type CodexRepository interface {
	// Create 创建设定条目
	Create(ctx context.Context, item *entity.CodexItem) error

	// GetByID 根据 ID 获取设定条目
	GetByID(ctx context.Context, id string) (*entity.CodexItem, error)

	// Update 更新设定条目
	Update(ctx context.Context, item *entity.CodexItem) error

	// Delete 删除设定条目
	Delete(ctx context.Context, id string) error

	// ListByProject 获取项目全部设定条目
	ListByProject(ctx context.Context, scope Scope) ([]*entity.CodexItem, error)

	// ListByType 获取项目指定类型的设定条目
	ListByType(ctx context.Context, scope Scope, itemType entity.CodexItemType) ([]*entity.CodexItem, error)

	// SetEmbeddingID 写回向量索引标识
	SetEmbeddingID(ctx context.Context, id, embeddingID string) error
}
