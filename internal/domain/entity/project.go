// Package entity 定义领域实体
package entity

import (
	"time"
)

// Project 小说项目
type Project struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	Plot         string    `json:"plot,omitempty" gorm:"type:text"`
	WritingStyle string    `json:"writing_style,omitempty" gorm:"type:text"`
	StyleGuide   string    `json:"style_guide,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(userID, name string) *Project {
	now := time.Now()
	return &Project{
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
