package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	wfmodel "storyforge-api/internal/workflow/model"
	"storyforge-api/internal/workflow/node"
	workflowport "storyforge-api/internal/workflow/port"
	workflowprompt "storyforge-api/internal/workflow/prompt"
)

// 续写时回看草稿结尾的长度
const extendTailRunes = 800

// ExtendChain 章节续写链，走 primary 模型
type ExtendChain struct {
	factory workflowport.ChatModelFactory
}

func NewExtendChain(factory workflowport.ChatModelFactory) *ExtendChain {
	return &ExtendChain{factory: factory}
}

// Invoke 返回续写片段（不含原草稿），由调用方拼接
func (c *ExtendChain) Invoke(ctx context.Context, in *wfmodel.ChapterExtendInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.DraftTail) == "" {
		return nil, fmt.Errorf("draft tail is required")
	}

	chatModel, err := c.factory.Get(ctx, workflowport.RolePrimary)
	if err != nil {
		return nil, err
	}

	tpl, err := extendPromptRegistry.ChatTemplate(workflowprompt.PromptChapterExtendV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"context":            strings.TrimSpace(in.Context),
		"draft_tail":         node.TailByRunes(strings.TrimSpace(in.DraftTail), extendTailRunes),
		"current_word_count": in.CurrentWordCount,
		"length_requirement": lengthRequirement(in.MinWordCount),
	}
	msgs, err := tpl.Format(ctx, vars)
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

var extendPromptRegistry = workflowprompt.NewRegistry()
