package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	wfmodel "storyforge-api/internal/workflow/model"
	workflowport "storyforge-api/internal/workflow/port"
	workflowprompt "storyforge-api/internal/workflow/prompt"
)

const emptySectionMarker = "（无）"

// DraftChain 章节初稿生成链，走 primary 模型
type DraftChain struct {
	factory workflowport.ChatModelFactory
}

func NewDraftChain(factory workflowport.ChatModelFactory) *DraftChain {
	return &DraftChain{factory: factory}
}

func (c *DraftChain) Invoke(ctx context.Context, in *wfmodel.ChapterDraftInput) (*schema.Message, error) {
	chatModel, msgs, err := c.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	outMsg, err := chatModel.Generate(ctx, msgs, buildModelOptions(in.Temperature, in.MaxTokens)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return outMsg, nil
}

// Stream 返回 Eino StreamReader；调用方负责 Close()。
// 约定：流可能在最后返回一个 Content 为空但包含 Usage 的消息，用于 Token 统计。
func (c *DraftChain) Stream(ctx context.Context, in *wfmodel.ChapterDraftInput) (*schema.StreamReader[*schema.Message], error) {
	chatModel, msgs, err := c.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	return chatModel.Stream(ctx, msgs, buildModelOptions(in.Temperature, in.MaxTokens)...)
}

func (c *DraftChain) prepare(ctx context.Context, in *wfmodel.ChapterDraftInput) (model.BaseChatModel, []*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Context) == "" {
		return nil, nil, fmt.Errorf("context is required")
	}
	chatModel, err := c.factory.Get(ctx, workflowport.RolePrimary)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := formatDraftMessages(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return chatModel, msgs, nil
}

var draftPromptRegistry = workflowprompt.NewRegistry()

func formatDraftMessages(ctx context.Context, in *wfmodel.ChapterDraftInput) ([]*schema.Message, error) {
	tpl, err := draftPromptRegistry.ChatTemplate(workflowprompt.PromptChapterDraftV1)
	if err != nil {
		return nil, err
	}
	retrieved := strings.TrimSpace(in.RetrievedContext)
	if retrieved == "" {
		retrieved = emptySectionMarker
	}
	vars := map[string]any{
		"context":            strings.TrimSpace(in.Context),
		"retrieved_context":  retrieved,
		"length_requirement": lengthRequirement(in.MinWordCount),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, err
	}
	if len(msgs) < 2 || len(in.ChatHistory) == 0 {
		return msgs, nil
	}

	// 前文章节以 assistant 消息插在 system 与最终 user 消息之间，
	// 让模型把历史章节当作“自己写过的内容”来延续。
	out := make([]*schema.Message, 0, len(msgs)+len(in.ChatHistory))
	out = append(out, msgs[0])
	out = append(out, in.ChatHistory...)
	out = append(out, msgs[1:]...)
	return out, nil
}

// lengthRequirement 渲染篇幅要求；最小字数为 0 时表示不限制
func lengthRequirement(minWords int) string {
	if minWords <= 0 {
		return "篇幅不限"
	}
	return fmt.Sprintf("篇幅不少于 %d 字", minWords)
}

func buildModelOptions(temperature *float32, maxTokens *int) []model.Option {
	opts := make([]model.Option, 0, 2)
	if temperature != nil {
		opts = append(opts, model.WithTemperature(*temperature))
	}
	if maxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*maxTokens))
	}
	return opts
}
