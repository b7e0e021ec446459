// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	Update(ctx context.Context, project *entity.Project) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*entity.Project, error)
}

// ValidityReportRepository 评审报告仓储接口
type ValidityReportRepository interface {
	// Create 持久化评审报告（报告创建后不可变，仅有写入与读取）
	Create(ctx context.Context, report *entity.ValidityReport) error
	GetByChapter(ctx context.Context, chapterID string) (*entity.ValidityReport, error)
	ListByProject(ctx context.Context, scope Scope) ([]*entity.ValidityReport, error)
}
