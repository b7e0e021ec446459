// Package entity 定义领域实体
package entity

import (
	"time"
)

// EventConnection 事件之间的关联（因果/时序等）
type EventConnection struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID      string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Event1ID    string    `json:"event1_id" gorm:"type:uuid;not null"`
	Event2ID    string    `json:"event2_id" gorm:"type:uuid;not null"`
	ConnectionType string `json:"connection_type" gorm:"type:varchar(100);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	EmbeddingID string    `json:"embedding_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (EventConnection) TableName() string {
	return "event_connections"
}

// LocationConnection 地点之间的关联（道路/从属等）
type LocationConnection struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string    `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID       string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Location1ID  string    `json:"location1_id" gorm:"type:uuid;not null"`
	Location2ID  string    `json:"location2_id" gorm:"type:uuid;not null"`
	ConnectionType string  `json:"connection_type" gorm:"type:varchar(100);not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	EmbeddingID  string    `json:"embedding_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (LocationConnection) TableName() string {
	return "location_connections"
}
