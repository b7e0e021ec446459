package chain

import (
	"context"
	"fmt"
	"strings"

	wfmodel "storyforge-api/internal/workflow/model"
	"storyforge-api/internal/workflow/node"
	workflowport "storyforge-api/internal/workflow/port"
	workflowprompt "storyforge-api/internal/workflow/prompt"
)

// 标题生成只看章节开头这么多字符
const titleExcerptRunes = 1000

// TitleChain 章节标题生成链，走 fast 模型
// 模型按“第N章：标题”的固定格式输出一行，这里剥掉前缀只留标题。
type TitleChain struct {
	factory workflowport.ChatModelFactory
}

func NewTitleChain(factory workflowport.ChatModelFactory) *TitleChain {
	return &TitleChain{factory: factory}
}

func (c *TitleChain) Invoke(ctx context.Context, in *wfmodel.ChapterTitleInput) (string, error) {
	if c == nil || c.factory == nil {
		return "", fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return "", fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Excerpt) == "" {
		return "", fmt.Errorf("excerpt is required")
	}
	if in.Number <= 0 {
		return "", fmt.Errorf("chapter number is required")
	}

	chatModel, err := c.factory.Get(ctx, workflowport.RoleFast)
	if err != nil {
		return "", err
	}

	tpl, err := titlePromptRegistry.ChatTemplate(workflowprompt.PromptChapterTitleV1)
	if err != nil {
		return "", err
	}
	vars := map[string]any{
		"number":  in.Number,
		"excerpt": node.TruncateByRunes(strings.TrimSpace(in.Excerpt), titleExcerptRunes),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", err
	}

	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	if outMsg == nil {
		return "", fmt.Errorf("empty llm response")
	}
	return ParseTitleLine(outMsg.Content, in.Number), nil
}

// ParseTitleLine 从模型输出中取出标题本身
// 容忍多行输出与格式偏差：取第一行非空内容，剥掉“第N章：”前缀与引号。
func ParseTitleLine(raw string, number int) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, prefix := range []string{
			fmt.Sprintf("第%d章：", number),
			fmt.Sprintf("第%d章:", number),
			fmt.Sprintf("第%d章", number),
		} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
				break
			}
		}
		line = strings.Trim(line, "“”\"'《》")
		return strings.TrimSpace(line)
	}
	return ""
}

var titlePromptRegistry = workflowprompt.NewRegistry()
