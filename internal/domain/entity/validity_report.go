// Package entity 定义领域实体
package entity

import (
	"time"
)

// CriterionResult 单项评审结论
type CriterionResult struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation,omitempty"`
}

// ValidityReport 章节评审报告
// 每次生成产生一份，创建后不可变，由外部持久化协作方落库。
type ValidityReport struct {
	ID        string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID string `json:"project_id" gorm:"type:uuid;index;not null"`
	UserID    string `json:"user_id" gorm:"type:uuid;index;not null"`
	ChapterID string `json:"chapter_id" gorm:"type:uuid;index;not null"`

	IsValid        bool             `json:"is_valid"`
	Plausibility   *CriterionResult `json:"plausibility,omitempty" gorm:"type:jsonb;serializer:json"`
	StyleAdherence *CriterionResult `json:"style_adherence,omitempty" gorm:"type:jsonb;serializer:json"`
	ContinuityOK   bool             `json:"continuity_ok"`
	StyleOK        bool             `json:"style_ok"`
	Feedback       string           `json:"feedback,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ValidityReport) TableName() string {
	return "validity_reports"
}

// FallbackValidityReport 构造解析失败时的兜底报告
// 评审阶段不允许向调用方抛出原始解析错误。
func FallbackValidityReport(feedback string) *ValidityReport {
	return &ValidityReport{
		IsValid:   false,
		Feedback:  feedback,
		CreatedAt: time.Now(),
	}
}
