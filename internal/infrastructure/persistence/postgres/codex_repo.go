package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// CodexRepository 设定条目仓储实现
type CodexRepository struct {
	client *Client
}

// NewCodexRepository 创建设定条目仓储
func NewCodexRepository(client *Client) *CodexRepository {
	return &CodexRepository{client: client}
}

var _ repository.CodexRepository = (*CodexRepository)(nil)

// Create 创建设定条目
func (r *CodexRepository) Create(ctx context.Context, item *entity.CodexItem) error {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(item).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create codex item: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取设定条目
func (r *CodexRepository) GetByID(ctx context.Context, id string) (*entity.CodexItem, error) {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var item entity.CodexItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get codex item: %w", err)
	}
	return &item, nil
}

// Update 更新设定条目
func (r *CodexRepository) Update(ctx context.Context, item *entity.CodexItem) error {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(item).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update codex item: %w", err)
	}
	return nil
}

// Delete 删除设定条目
func (r *CodexRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.CodexItem{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete codex item: %w", err)
	}
	return nil
}

// ListByProject 获取项目全部设定条目
func (r *CodexRepository) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.CodexItem, error) {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var items []*entity.CodexItem
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list codex items: %w", err)
	}
	return items, nil
}

// ListByType 获取项目指定类型的设定条目
func (r *CodexRepository) ListByType(ctx context.Context, scope repository.Scope, itemType entity.CodexItemType) ([]*entity.CodexItem, error) {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.ListByType")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var items []*entity.CodexItem
	if err := db.Where("user_id = ? AND project_id = ? AND type = ?", scope.UserID, scope.ProjectID, itemType).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list codex items by type: %w", err)
	}
	return items, nil
}

// SetEmbeddingID 写回向量索引标识
func (r *CodexRepository) SetEmbeddingID(ctx context.Context, id, embeddingID string) error {
	ctx, span := tracer.Start(ctx, "postgres.CodexRepository.SetEmbeddingID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.CodexItem{}).Where("id = ?", id).
		Update("embedding_id", embeddingID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set codex embedding id: %w", err)
	}
	return nil
}
