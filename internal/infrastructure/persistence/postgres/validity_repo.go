package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// ValidityReportRepository 评审报告仓储实现
type ValidityReportRepository struct {
	client *Client
}

// NewValidityReportRepository 创建评审报告仓储
func NewValidityReportRepository(client *Client) *ValidityReportRepository {
	return &ValidityReportRepository{client: client}
}

var _ repository.ValidityReportRepository = (*ValidityReportRepository)(nil)

func (r *ValidityReportRepository) Create(ctx context.Context, report *entity.ValidityReport) error {
	ctx, span := tracer.Start(ctx, "postgres.ValidityReportRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(report).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create validity report: %w", err)
	}
	return nil
}

func (r *ValidityReportRepository) GetByChapter(ctx context.Context, chapterID string) (*entity.ValidityReport, error) {
	ctx, span := tracer.Start(ctx, "postgres.ValidityReportRepository.GetByChapter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var report entity.ValidityReport
	if err := db.First(&report, "chapter_id = ?", chapterID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get validity report: %w", err)
	}
	return &report, nil
}

func (r *ValidityReportRepository) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.ValidityReport, error) {
	ctx, span := tracer.Start(ctx, "postgres.ValidityReportRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var reports []*entity.ValidityReport
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list validity reports: %w", err)
	}
	return reports, nil
}
