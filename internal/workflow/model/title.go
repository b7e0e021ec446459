package model

// ChapterTitleInput 章节标题生成输入
type ChapterTitleInput struct {
	Number  int
	Excerpt string
}
