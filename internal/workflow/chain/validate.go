package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyforge-api/internal/domain/entity"
	wfmodel "storyforge-api/internal/workflow/model"
	"storyforge-api/internal/workflow/node"
	workflowport "storyforge-api/internal/workflow/port"
	workflowprompt "storyforge-api/internal/workflow/prompt"
)

// 单项评分达到该分数视为通过
const passingScore = 7

// ValidateChain 章节审校链，走 fast 模型
type ValidateChain struct {
	factory workflowport.ChatModelFactory
}

func NewValidateChain(factory workflowport.ChatModelFactory) *ValidateChain {
	return &ValidateChain{factory: factory}
}

type validateResponse struct {
	Plausibility   *entity.CriterionResult `json:"plausibility"`
	StyleAdherence *entity.CriterionResult `json:"style_adherence"`
	Feedback       string                  `json:"feedback"`
}

// Invoke 审校章节并返回结构化报告
// 模型输出解析失败时返回 is_valid=false 的兜底报告，从不向上抛解析错误。
func (c *ValidateChain) Invoke(ctx context.Context, in *wfmodel.ChapterValidateInput) (*entity.ValidityReport, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Chapter) == "" {
		return nil, fmt.Errorf("chapter content is required")
	}

	chatModel, err := c.factory.Get(ctx, workflowport.RoleFast)
	if err != nil {
		return nil, err
	}

	tpl, err := validatePromptRegistry.ChatTemplate(workflowprompt.PromptChapterValidateV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"chapter":     strings.TrimSpace(in.Chapter),
		"style_guide": orMarker(in.StyleGuide),
		"context":     orMarker(in.Context),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return entity.FallbackValidityReport("审校模型返回空响应"), nil
	}

	raw := node.ExtractJSONObject(outMsg.Content)
	var resp validateResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return entity.FallbackValidityReport(
			fmt.Sprintf("审校结果解析失败: %v；原始输出：%s", err, node.TruncateByRunes(outMsg.Content, 500)),
		), nil
	}

	report := &entity.ValidityReport{
		Plausibility:   resp.Plausibility,
		StyleAdherence: resp.StyleAdherence,
		Feedback:       resp.Feedback,
	}
	report.ContinuityOK = resp.Plausibility != nil && resp.Plausibility.Score >= passingScore
	report.StyleOK = resp.StyleAdherence != nil && resp.StyleAdherence.Score >= passingScore
	report.IsValid = report.ContinuityOK && report.StyleOK
	return report, nil
}

func orMarker(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptySectionMarker
	}
	return strings.TrimSpace(s)
}

var validatePromptRegistry = workflowprompt.NewRegistry()
