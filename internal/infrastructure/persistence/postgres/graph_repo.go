package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
)

// RelationshipRepository 关系仓储实现
type RelationshipRepository struct {
	client *Client
}

// NewRelationshipRepository 创建关系仓储
func NewRelationshipRepository(client *Client) *RelationshipRepository {
	return &RelationshipRepository{client: client}
}

var _ repository.RelationshipRepository = (*RelationshipRepository)(nil)

func (r *RelationshipRepository) Create(ctx context.Context, rel *entity.Relationship) error {
	ctx, span := tracer.Start(ctx, "postgres.RelationshipRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(rel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) GetByID(ctx context.Context, id string) (*entity.Relationship, error) {
	ctx, span := tracer.Start(ctx, "postgres.RelationshipRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rel entity.Relationship
	if err := db.First(&rel, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return &rel, nil
}

func (r *RelationshipRepository) Update(ctx context.Context, rel *entity.Relationship) error {
	ctx, span := tracer.Start(ctx, "postgres.RelationshipRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(rel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.RelationshipRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Relationship{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

// ListByProject 获取项目全部关系
func (r *RelationshipRepository) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Relationship, error) {
	ctx, span := tracer.Start(ctx, "postgres.RelationshipRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var rels []*entity.Relationship
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Find(&rels).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return rels, nil
}

// DeleteByCodexItem 删除与指定设定条目相关的所有关系
func (r *RelationshipRepository) DeleteByCodexItem(ctx context.Context, itemID string) error {
	ctx, span := tracer.Start(ctx, "postgres.RelationshipRepository.DeleteByCodexItem")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Relationship{}, "source_id = ? OR target_id = ?", itemID, itemID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete relationships by codex item: %w", err)
	}
	return nil
}

// EventRepository 事件仓储实现
type EventRepository struct {
	client *Client
}

// NewEventRepository 创建事件仓储
func NewEventRepository(client *Client) *EventRepository {
	return &EventRepository{client: client}
}

var _ repository.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) Create(ctx context.Context, event *entity.Event) error {
	ctx, span := tracer.Start(ctx, "postgres.EventRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	ctx, span := tracer.Start(ctx, "postgres.EventRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var event entity.Event
	if err := db.First(&event, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, event *entity.Event) error {
	ctx, span := tracer.Start(ctx, "postgres.EventRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.EventRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Event{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Event, error) {
	ctx, span := tracer.Start(ctx, "postgres.EventRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var events []*entity.Event
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Find(&events).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// LocationRepository 地点仓储实现
type LocationRepository struct {
	client *Client
}

// NewLocationRepository 创建地点仓储
func NewLocationRepository(client *Client) *LocationRepository {
	return &LocationRepository{client: client}
}

var _ repository.LocationRepository = (*LocationRepository)(nil)

func (r *LocationRepository) Create(ctx context.Context, location *entity.Location) error {
	ctx, span := tracer.Start(ctx, "postgres.LocationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(location).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	ctx, span := tracer.Start(ctx, "postgres.LocationRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var location entity.Location
	if err := db.First(&location, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &location, nil
}

func (r *LocationRepository) Update(ctx context.Context, location *entity.Location) error {
	ctx, span := tracer.Start(ctx, "postgres.LocationRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(location).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update location: %w", err)
	}
	return nil
}

func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.LocationRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Location{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return nil
}

func (r *LocationRepository) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Location, error) {
	ctx, span := tracer.Start(ctx, "postgres.LocationRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var locations []*entity.Location
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Find(&locations).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// ConnectionRepository 事件/地点关联仓储实现
type ConnectionRepository struct {
	client *Client
}

// NewConnectionRepository 创建关联仓储
func NewConnectionRepository(client *Client) *ConnectionRepository {
	return &ConnectionRepository{client: client}
}

var _ repository.ConnectionRepository = (*ConnectionRepository)(nil)

func (r *ConnectionRepository) CreateEventConnection(ctx context.Context, conn *entity.EventConnection) error {
	ctx, span := tracer.Start(ctx, "postgres.ConnectionRepository.CreateEventConnection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(conn).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create event connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) CreateLocationConnection(ctx context.Context, conn *entity.LocationConnection) error {
	ctx, span := tracer.Start(ctx, "postgres.ConnectionRepository.CreateLocationConnection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(conn).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create location connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) DeleteEventConnection(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConnectionRepository.DeleteEventConnection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.EventConnection{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete event connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) DeleteLocationConnection(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConnectionRepository.DeleteLocationConnection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.LocationConnection{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete location connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) ListEventConnections(ctx context.Context, scope repository.Scope) ([]*entity.EventConnection, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConnectionRepository.ListEventConnections")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var conns []*entity.EventConnection
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Find(&conns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list event connections: %w", err)
	}
	return conns, nil
}

func (r *ConnectionRepository) ListLocationConnections(ctx context.Context, scope repository.Scope) ([]*entity.LocationConnection, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConnectionRepository.ListLocationConnections")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var conns []*entity.LocationConnection
	if err := db.Where("user_id = ? AND project_id = ?", scope.UserID, scope.ProjectID).
		Find(&conns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list location connections: %w", err)
	}
	return conns, nil
}
