// Package entity 定义领域实体
package entity

import (
	"time"
)

// Event 故事事件
type Event struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID      string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	// CharacterID 事件主角（可空）；LocationID 事件发生地（可空）
	CharacterID string    `json:"character_id,omitempty" gorm:"type:uuid"`
	LocationID  string    `json:"location_id,omitempty" gorm:"type:uuid"`
	EmbeddingID string    `json:"embedding_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}

// NewEvent 创建新事件
func NewEvent(userID, projectID, title string) *Event {
	now := time.Now()
	return &Event{
		UserID:    userID,
		ProjectID: projectID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
