// Package entity 定义领域实体
package entity

import (
	"time"
)

// CodexItemType 设定条目类型
type CodexItemType string

const (
	CodexTypeCharacter     CodexItemType = "character"
	CodexTypeLocation      CodexItemType = "location"
	CodexTypeFaction       CodexItemType = "faction"
	CodexTypeItem          CodexItemType = "item"
	CodexTypeLore          CodexItemType = "lore"
	CodexTypeEvent         CodexItemType = "event"
	CodexTypeRelationship  CodexItemType = "relationship"
	CodexTypeWorldbuilding CodexItemType = "worldbuilding"
)

// CodexItem 设定条目（世界观实体：角色、地点、阵营等）
type CodexItem struct {
	ID          string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   string        `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID      string        `json:"user_id" gorm:"type:uuid;index;not null"`
	Name        string        `json:"name" gorm:"type:varchar(255);not null"`
	Description string        `json:"description,omitempty" gorm:"type:text"`
	Type        CodexItemType `json:"type" gorm:"type:varchar(50);not null"`
	Subtype     string        `json:"subtype,omitempty" gorm:"type:varchar(50)"`
	// Backstory 仅角色使用，单独建向量索引以便按需检索
	Backstory            string    `json:"backstory,omitempty" gorm:"type:text"`
	EmbeddingID          string    `json:"embedding_id,omitempty" gorm:"type:varchar(64);index"`
	BackstoryEmbeddingID string    `json:"backstory_embedding_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt            time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CodexItem) TableName() string {
	return "codex_items"
}

// NewCodexItem 创建新设定条目
func NewCodexItem(userID, projectID, name string, itemType CodexItemType) *CodexItem {
	now := time.Now()
	return &CodexItem{
		UserID:    userID,
		ProjectID: projectID,
		Name:      name,
		Type:      itemType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
