package generation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// noHistoryMarker 空历史时写入上下文的占位标记
const noHistoryMarker = "（暂无前文章节）"

// PriorChapter 历史章节引用
type PriorChapter struct {
	Number  int
	Content string
}

// AssembledContext 组装完成的上下文
// 除正文外记录各截断视图实际包含的章节序号，用于可解释性与测试。
type AssembledContext struct {
	// Prompt 注入提示词的上下文正文
	Prompt string
	// ChatHistory 会话式历史视图（与 Prompt 中的历史独立截断）
	ChatHistory []*schema.Message
	// IncludedChapters 上下文正文包含的章节序号（升序）
	IncludedChapters []int
	// ExcludedChapters 因预算被排除的章节序号（升序）
	ExcludedChapters []int
	// ChatIncludedChapters 会话历史视图包含的章节序号（升序）
	ChatIncludedChapters []int
}

// Assembler 上下文预算组装器
type Assembler struct{}

// NewAssembler 创建组装器
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble 组装有界上下文
// 固定段（情节/文风/指令/角色表）原样渲染，不参与截断；
// 章节历史从最新到最旧累加，任一章使累计估算超出配额即停止，
// 不截断半章。最终输出按时间顺序排列。
func (a *Assembler) Assemble(plot, style string, instr *Instructions, roster map[string]string, history []PriorChapter, budget TokenBudget) *AssembledContext {
	out := &AssembledContext{}

	var b strings.Builder
	writeSection(&b, "故事情节", plot)
	writeSection(&b, "写作风格", style)
	if instr != nil {
		writeSection(&b, "生成指令", instr.Render())
	}
	writeSection(&b, "角色表", renderRoster(roster))

	// 历史视图一：上下文正文（History 配额）
	included, excluded := selectChapters(history, budget.History)
	out.IncludedChapters = chapterNumbers(included)
	out.ExcludedChapters = chapterNumbers(excluded)

	b.WriteString("## 前文章节\n")
	if len(included) == 0 {
		b.WriteString(noHistoryMarker)
		b.WriteString("\n")
	} else {
		for _, ch := range included {
			b.WriteString(renderChapter(ch))
		}
	}
	out.Prompt = strings.TrimSpace(b.String())

	// 历史视图二：会话式历史（ChatHistory 配额，独立截断）
	// 两个视图对同一章节集各自计算，包含的章节子集可能不一致，
	// 这是既定行为，不要合并成一次截断。
	chatIncluded, _ := selectChapters(history, budget.ChatHistory)
	out.ChatIncludedChapters = chapterNumbers(chatIncluded)
	for _, ch := range chatIncluded {
		out.ChatHistory = append(out.ChatHistory, schema.AssistantMessage(renderChapter(ch), nil))
	}

	return out
}

// selectChapters 从最新到最旧选择整章，直到配额耗尽
// 返回的两个切片均按时间升序。
func selectChapters(history []PriorChapter, quota int) (included, excluded []PriorChapter) {
	if quota <= 0 {
		excluded = append(excluded, history...)
		return nil, excluded
	}

	used := 0
	cut := len(history) // [cut:] 为纳入的区间
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(renderChapter(history[i]))
		if used+cost > quota {
			break
		}
		used += cost
		cut = i
	}

	included = append(included, history[cut:]...)
	excluded = append(excluded, history[:cut]...)
	return included, excluded
}

// renderChapter 单章渲染；选择与输出使用同一份渲染，保证预算口径一致
func renderChapter(ch PriorChapter) string {
	return fmt.Sprintf("第%d章：%s\n", ch.Number, ch.Content)
}

// renderRoster 渲染角色表，按名称排序保证稳定
func renderRoster(roster map[string]string) string {
	if len(roster) == 0 {
		return ""
	}
	names := make([]string, 0, len(roster))
	for name := range roster {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %s：%s\n", name, roster[name])
	}
	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n%s\n\n", title, body)
}

func chapterNumbers(chapters []PriorChapter) []int {
	if len(chapters) == 0 {
		return nil
	}
	nums := make([]int, 0, len(chapters))
	for _, ch := range chapters {
		nums = append(nums, ch.Number)
	}
	return nums
}

// TruncateByBudget 对检索片段按整条纳入的方式应用配额
// 与章节历史同一规则：超出配额的片段整条丢弃，不做条内截断。
func TruncateByBudget(items []string, quota int) []string {
	if quota <= 0 {
		return nil
	}
	used := 0
	var kept []string
	for _, item := range items {
		cost := EstimateTokens(item)
		if used+cost > quota {
			break
		}
		used += cost
		kept = append(kept, item)
	}
	return kept
}
