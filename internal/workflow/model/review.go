package model

// ChapterValidateInput 章节审校输入
type ChapterValidateInput struct {
	Chapter    string
	StyleGuide string
	Context    string
}
