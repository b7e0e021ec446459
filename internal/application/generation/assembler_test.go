package generation

import (
	"strings"
	"testing"
)

// 每章正文 11 个 rune，渲染后 "第N章：..."+换行共 16 个 rune，即 4 token。
func fixedChapters(n int) []PriorChapter {
	chapters := make([]PriorChapter, 0, n)
	for i := 1; i <= n; i++ {
		chapters = append(chapters, PriorChapter{Number: i, Content: strings.Repeat("甲", 11)})
	}
	return chapters
}

func TestAssembleKeepsNewestWholeChapters(t *testing.T) {
	a := NewAssembler()
	history := fixedChapters(3)
	budget := TokenBudget{History: 8, ChatHistory: 8}

	ctx := a.Assemble("主角踏上旅途", "简洁克制", nil, nil, history, budget)

	wantIncluded := []int{2, 3}
	if !equalInts(ctx.IncludedChapters, wantIncluded) {
		t.Errorf("IncludedChapters = %v, want %v", ctx.IncludedChapters, wantIncluded)
	}
	if !equalInts(ctx.ExcludedChapters, []int{1}) {
		t.Errorf("ExcludedChapters = %v, want [1]", ctx.ExcludedChapters)
	}
	if strings.Contains(ctx.Prompt, "第1章") {
		t.Error("excluded chapter leaked into prompt")
	}
	// 纳入的章节按时间升序出现
	i2 := strings.Index(ctx.Prompt, "第2章")
	i3 := strings.Index(ctx.Prompt, "第3章")
	if i2 < 0 || i3 < 0 || i2 > i3 {
		t.Errorf("chapters out of order in prompt: idx2=%d idx3=%d", i2, i3)
	}
}

func TestAssembleChatHistoryTruncatedIndependently(t *testing.T) {
	a := NewAssembler()
	history := fixedChapters(3)
	budget := TokenBudget{History: 12, ChatHistory: 4}

	ctx := a.Assemble("情节", "风格", nil, nil, history, budget)

	if !equalInts(ctx.IncludedChapters, []int{1, 2, 3}) {
		t.Errorf("IncludedChapters = %v, want [1 2 3]", ctx.IncludedChapters)
	}
	if !equalInts(ctx.ChatIncludedChapters, []int{3}) {
		t.Errorf("ChatIncludedChapters = %v, want [3]", ctx.ChatIncludedChapters)
	}
	if len(ctx.ChatHistory) != 1 {
		t.Fatalf("ChatHistory length = %d, want 1", len(ctx.ChatHistory))
	}
	if !strings.Contains(ctx.ChatHistory[0].Content, "第3章") {
		t.Errorf("ChatHistory content = %q, want chapter 3", ctx.ChatHistory[0].Content)
	}
}

func TestAssembleEmptyHistoryWritesMarker(t *testing.T) {
	a := NewAssembler()
	ctx := a.Assemble("情节", "", nil, nil, nil, TokenBudget{History: 100})
	if !strings.Contains(ctx.Prompt, noHistoryMarker) {
		t.Errorf("prompt missing empty-history marker:\n%s", ctx.Prompt)
	}
	if ctx.IncludedChapters != nil {
		t.Errorf("IncludedChapters = %v, want nil", ctx.IncludedChapters)
	}
}

func TestAssembleZeroQuotaExcludesAll(t *testing.T) {
	a := NewAssembler()
	history := fixedChapters(2)
	ctx := a.Assemble("情节", "", nil, nil, history, TokenBudget{})

	if ctx.IncludedChapters != nil {
		t.Errorf("IncludedChapters = %v, want nil", ctx.IncludedChapters)
	}
	if !equalInts(ctx.ExcludedChapters, []int{1, 2}) {
		t.Errorf("ExcludedChapters = %v, want [1 2]", ctx.ExcludedChapters)
	}
	if !strings.Contains(ctx.Prompt, noHistoryMarker) {
		t.Error("prompt missing empty-history marker when all chapters excluded")
	}
}

func TestAssembleSkipsEmptySections(t *testing.T) {
	a := NewAssembler()
	ctx := a.Assemble("", "  ", nil, nil, nil, TokenBudget{})
	if strings.Contains(ctx.Prompt, "故事情节") || strings.Contains(ctx.Prompt, "写作风格") {
		t.Errorf("empty sections rendered:\n%s", ctx.Prompt)
	}
}

func TestRenderRosterSorted(t *testing.T) {
	roster := map[string]string{
		"bob":   "铁匠",
		"alice": "游吟诗人",
	}
	got := renderRoster(roster)
	ia := strings.Index(got, "- alice：游吟诗人")
	ib := strings.Index(got, "- bob：铁匠")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("roster not sorted by name:\n%s", got)
	}
	if renderRoster(nil) != "" {
		t.Error("empty roster should render empty string")
	}
}

func TestTruncateByBudget(t *testing.T) {
	// 每条 8 个 rune，即 2 token
	items := []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}

	tests := []struct {
		name  string
		quota int
		want  int
	}{
		{name: "zero quota drops all", quota: 0, want: 0},
		{name: "partial fit keeps prefix", quota: 5, want: 2},
		{name: "exact fit keeps all", quota: 6, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateByBudget(items, tt.quota)
			if len(got) != tt.want {
				t.Errorf("kept %d items, want %d", len(got), tt.want)
			}
		})
	}
}

func TestTruncateByBudgetStopsAtFirstOverflow(t *testing.T) {
	// 第一条超配额时直接停止，不跳过后续更小的条目
	items := []string{strings.Repeat("a", 12), "abcd"}
	got := TruncateByBudget(items, 2)
	if len(got) != 0 {
		t.Errorf("kept %d items, want 0", len(got))
	}
}

func equalInts(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
