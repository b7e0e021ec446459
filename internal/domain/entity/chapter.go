// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusDraft      ChapterStatus = "draft"
	ChapterStatusGenerating ChapterStatus = "generating"
	ChapterStatusCompleted  ChapterStatus = "completed"
)

// GenerationMetadata 生成元数据
type GenerationMetadata struct {
	Model          string `json:"model,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ExtendAttempts int    `json:"extend_attempts,omitempty"`
	ReachedTarget  bool   `json:"reached_target"`
	GeneratedAt    string `json:"generated_at,omitempty"`
}

// Chapter 章节实体
type Chapter struct {
	ID                 string              `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID          string              `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID             string              `json:"user_id" gorm:"type:uuid;index;not null"`
	Number             int                 `json:"number" gorm:"not null"`
	Title              string              `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content            string              `json:"content,omitempty" gorm:"type:text"`
	WordCount          int                 `json:"word_count" gorm:"default:0"`
	Status             ChapterStatus       `json:"status" gorm:"type:varchar(50);default:'draft'"`
	EmbeddingID        string              `json:"embedding_id,omitempty" gorm:"type:varchar(64);index"`
	GenerationMetadata *GenerationMetadata `json:"generation_metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt          time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(userID, projectID string, number int) *Chapter {
	now := time.Now()
	return &Chapter{
		UserID:    userID,
		ProjectID: projectID,
		Number:    number,
		Status:    ChapterStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetContent 设置章节内容并更新字数
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.UpdatedAt = time.Now()
}

// CountWords 按空白分词统计字数（与生成流水线的长度判定保持一致）
func CountWords(text string) int {
	return len(strings.Fields(text))
}
