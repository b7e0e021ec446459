package model

import "github.com/cloudwego/eino/schema"

// ChapterDraftInput 章节初稿生成输入
type ChapterDraftInput struct {
	// Context 组装好的写作上下文（情节、风格、指令、角色表、前文）
	Context string
	// RetrievedContext 检索到的相关背景资料（知识库 + 关系图）
	RetrievedContext string
	// ChatHistory 对话视角的前文章节（assistant 消息），插在 system 与 user 之间
	ChatHistory  []*schema.Message
	MinWordCount int

	Temperature *float32
	MaxTokens   *int
}

// ChapterExtendInput 章节续写输入
type ChapterExtendInput struct {
	Context          string
	DraftTail        string
	CurrentWordCount int
	MinWordCount     int

	Temperature *float32
	MaxTokens   *int
}
