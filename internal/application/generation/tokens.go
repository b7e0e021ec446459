// Package generation 实现章节生成流水线及其配套组件
package generation

import (
	"unicode/utf8"
)

// charsPerToken 目标模型族的经验值：约 4 个字符对应 1 个 token。
// 仅用于相对预算，不用于计费精度。
const charsPerToken = 4

// EstimateTokens 粗粒度 token 估算
// 永不报错；空字符串返回 0。
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return utf8.RuneCountInString(text) / charsPerToken
}

// TokenBudget 上下文 token 预算
// 总量按当前模型上下文窗口推导，命名配额之和不超过总量。
type TokenBudget struct {
	Total int
	// History 上下文正文中章节历史的配额
	History int
	// ChatHistory 会话式历史视图的配额（与 History 独立截断）
	ChatHistory int
	// Retrieved 检索上下文（相似片段 + 关系图）的配额
	Retrieved int
}

// BudgetForWindow 按模型上下文窗口推导预算
// 历史占 1/4，检索上下文占 1/2；会话历史视图单独占 1/4。
func BudgetForWindow(contextWindow int) TokenBudget {
	if contextWindow < 0 {
		contextWindow = 0
	}
	return TokenBudget{
		Total:       contextWindow,
		History:     contextWindow / 4,
		ChatHistory: contextWindow / 4,
		Retrieved:   contextWindow / 2,
	}
}
