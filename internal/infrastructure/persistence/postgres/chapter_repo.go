package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

var _ repository.ChapterRepository = (*ChapterRepository)(nil)

// Create 创建章节
func (r *ChapterRepository) Create(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取章节
func (r *ChapterRepository) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapter entity.Chapter
	if err := db.First(&chapter, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// Update 更新章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// Delete 删除章节
func (r *ChapterRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Chapter{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return nil
}

// ListByProject 按章节序号升序获取项目全部章节
func (r *ChapterRepository) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Order("number ASC").
		Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// MaxNumber 获取项目当前最大章节序号（无章节时返回 0）
func (r *ChapterRepository) MaxNumber(ctx context.Context, scope repository.Scope) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.MaxNumber")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var maxNumber *int
	err := db.Model(&entity.Chapter{}).
		Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Select("MAX(number)").
		Scan(&maxNumber).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to get max chapter number: %w", err)
	}
	if maxNumber == nil {
		return 0, nil
	}
	return *maxNumber, nil
}

// SetEmbeddingID 写回向量索引标识
func (r *ChapterRepository) SetEmbeddingID(ctx context.Context, id, embeddingID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.SetEmbeddingID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Chapter{}).Where("id = ?", id).
		Update("embedding_id", embeddingID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set chapter embedding id: %w", err)
	}
	return nil
}
