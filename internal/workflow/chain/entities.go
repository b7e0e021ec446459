package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyforge-api/pkg/logger"

	wfmodel "storyforge-api/internal/workflow/model"
	"storyforge-api/internal/workflow/node"
	workflowport "storyforge-api/internal/workflow/port"
	workflowprompt "storyforge-api/internal/workflow/prompt"
)

// EntitiesChain 新实体识别与建档链，两步调用，都走 fast 模型
// 第一步找出已知名单之外的新实体名字，第二步为命中的名字逐一建档。
// 任一步解析失败都降级为“无新实体”，从不向上抛解析错误。
type EntitiesChain struct {
	factory workflowport.ChatModelFactory
}

func NewEntitiesChain(factory workflowport.ChatModelFactory) *EntitiesChain {
	return &EntitiesChain{factory: factory}
}

func (c *EntitiesChain) Invoke(ctx context.Context, in *wfmodel.EntityCheckInput) ([]*wfmodel.ExtractedEntity, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Chapter) == "" {
		return nil, fmt.Errorf("chapter content is required")
	}

	names, err := c.checkNewNames(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return c.extract(ctx, &wfmodel.EntityExtractInput{Chapter: in.Chapter, Names: names})
}

// checkNewNames 第一步：识别不在已知名单里的新实体名字
func (c *EntitiesChain) checkNewNames(ctx context.Context, in *wfmodel.EntityCheckInput) ([]string, error) {
	chatModel, err := c.factory.Get(ctx, workflowport.RoleFast)
	if err != nil {
		return nil, err
	}

	tpl, err := entitiesPromptRegistry.ChatTemplate(workflowprompt.PromptEntityCheckV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"known_names": orMarker(strings.Join(in.KnownNames, "、")),
		"chapter":     strings.TrimSpace(in.Chapter),
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
		return nil, nil
	}

	var names []string
	if err := json.Unmarshal([]byte(node.ExtractJSONObject(outMsg.Content)), &names); err != nil {
		logger.Warn(ctx, "新实体识别结果解析失败，按无新实体处理", "error", err)
		return nil, nil
	}

	// 模型偶尔会无视名单把已知实体也报回来，这里再过滤一次
	known := make(map[string]struct{}, len(in.KnownNames))
	for _, n := range in.KnownNames {
		known[normalizeName(n)] = struct{}{}
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		key := normalizeName(n)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(n))
	}
	return out, nil
}

// extract 第二步：为新实体逐一建档
func (c *EntitiesChain) extract(ctx context.Context, in *wfmodel.EntityExtractInput) ([]*wfmodel.ExtractedEntity, error) {
	chatModel, err := c.factory.Get(ctx, workflowport.RoleFast)
	if err != nil {
		return nil, err
	}

	tpl, err := entitiesPromptRegistry.ChatTemplate(workflowprompt.PromptEntityExtractV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"names":   strings.Join(in.Names, "、"),
		"chapter": strings.TrimSpace(in.Chapter),
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
		return nil, nil
	}

	var entities []*wfmodel.ExtractedEntity
	if err := json.Unmarshal([]byte(node.ExtractJSONObject(outMsg.Content)), &entities); err != nil {
		logger.Warn(ctx, "新实体建档结果解析失败，按无新实体处理", "error", err)
		return nil, nil
	}

	out := make([]*wfmodel.ExtractedEntity, 0, len(entities))
	for _, e := range entities {
		if e == nil || strings.TrimSpace(e.Name) == "" {
			continue
		}
		e.Name = strings.TrimSpace(e.Name)
		e.Type = strings.TrimSpace(strings.ToLower(e.Type))
		out = append(out, e)
	}
	return out, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var entitiesPromptRegistry = workflowprompt.NewRegistry()
