package generation

import (
	"fmt"
	"sort"
	"strings"
)

// Instructions 生成指令
// 显式枚举已识别的键，未识别的额外指令进入 Extra，避免散落的字符串查表。
type Instructions struct {
	// MinWordCount 最小字数要求；0 表示不限制
	MinWordCount int `json:"min_word_count"`
	// StyleGuide 风格细则
	StyleGuide string `json:"style_guide,omitempty"`
	// ChapterTitle 调用方指定的章节标题（可空，空则由流水线生成）
	ChapterTitle string `json:"chapter_title,omitempty"`
	// PlotSegment 本章需要推进的情节片段
	PlotSegment string `json:"plot_segment,omitempty"`
	// Extra 其余前向兼容的自由指令
	Extra map[string]string `json:"extra,omitempty"`
}

// Render 将指令渲染为提示词中的文本块
// 输出按键名排序，保证同一输入的渲染结果稳定。
func (in *Instructions) Render() string {
	if in == nil {
		return ""
	}
	var b strings.Builder
	if in.MinWordCount > 0 {
		fmt.Fprintf(&b, "- 最小字数：%d\n", in.MinWordCount)
	}
	if s := strings.TrimSpace(in.StyleGuide); s != "" {
		fmt.Fprintf(&b, "- 风格细则：%s\n", s)
	}
	if s := strings.TrimSpace(in.ChapterTitle); s != "" {
		fmt.Fprintf(&b, "- 章节标题：%s\n", s)
	}
	if s := strings.TrimSpace(in.PlotSegment); s != "" {
		fmt.Fprintf(&b, "- 本章情节：%s\n", s)
	}
	if len(in.Extra) > 0 {
		keys := make([]string, 0, len(in.Extra))
		for k := range in.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := strings.TrimSpace(in.Extra[k])
			if v == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s：%s\n", k, v)
		}
	}
	return strings.TrimSpace(b.String())
}

// ParseInstructions 从自由 map 解析出结构化指令
// HTTP 层的 instructions 是 key->value 包；已识别键收敛到显式字段。
func ParseInstructions(raw map[string]any) *Instructions {
	in := &Instructions{Extra: make(map[string]string)}
	for k, v := range raw {
		switch k {
		case "min_word_count", "minWordCount":
			switch n := v.(type) {
			case float64:
				in.MinWordCount = int(n)
			case int:
				in.MinWordCount = n
			case string:
				fmt.Sscanf(n, "%d", &in.MinWordCount)
			}
		case "style_guide", "styleGuide":
			in.StyleGuide = toString(v)
		case "chapter_title", "chapterTitle":
			in.ChapterTitle = toString(v)
		case "plot_segment", "plotSegment":
			in.PlotSegment = toString(v)
		default:
			if s := toString(v); s != "" {
				in.Extra[k] = s
			}
		}
	}
	if in.MinWordCount < 0 {
		in.MinWordCount = 0
	}
	return in
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
