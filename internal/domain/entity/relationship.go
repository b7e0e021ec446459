// Package entity 定义领域实体
package entity

import (
	"time"
)

// Relationship 设定条目之间的关系（关系图的边）
type Relationship struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID      string    `json:"user_id" gorm:"type:uuid;index;not null"`
	SourceID    string    `json:"source_id" gorm:"type:uuid;index;not null"`
	TargetID    string    `json:"target_id" gorm:"type:uuid;index;not null"`
	RelationType string   `json:"relation_type" gorm:"type:varchar(100);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	EmbeddingID string    `json:"embedding_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Relationship) TableName() string {
	return "relationships"
}

// NewRelationship 创建新关系
func NewRelationship(userID, projectID, sourceID, targetID, relationType string) *Relationship {
	now := time.Now()
	return &Relationship{
		UserID:       userID,
		ProjectID:    projectID,
		SourceID:     sourceID,
		TargetID:     targetID,
		RelationType: relationType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
