// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"storyforge-api/internal/domain/entity"
)

// RelationshipRepository 关系仓储接口
type RelationshipRepository interface {
	Create(ctx context.Context, rel *entity.Relationship) error
	GetByID(ctx context.Context, id string) (*entity.Relationship, error)
	Update(ctx context.Context, rel *entity.Relationship) error
	Delete(ctx context.Context, id string) error

	// ListByProject 获取项目全部关系
	ListByProject(ctx context.Context, scope Scope) ([]*entity.Relationship, error)

	// DeleteByCodexItem 删除与指定设定条目相关的所有关系
	DeleteByCodexItem(ctx context.Context, itemID string) error
}

// EventRepository 事件仓储接口
type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, scope Scope) ([]*entity.Event, error)
}

// LocationRepository 地点仓储接口
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	GetByID(ctx context.Context, id string) (*entity.Location, error)
	Update(ctx context.Context, location *entity.Location) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, scope Scope) ([]*entity.Location, error)
}

// ConnectionRepository 事件/地点关联仓储接口
type ConnectionRepository interface {
	CreateEventConnection(ctx context.Context, conn *entity.EventConnection) error
	CreateLocationConnection(ctx context.Context, conn *entity.LocationConnection) error
	DeleteEventConnection(ctx context.Context, id string) error
	DeleteLocationConnection(ctx context.Context, id string) error
	ListEventConnections(ctx context.Context, scope Scope) ([]*entity.EventConnection, error)
	ListLocationConnections(ctx context.Context, scope Scope) ([]*entity.LocationConnection, error)
}
