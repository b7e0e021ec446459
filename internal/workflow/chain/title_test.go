package chain

import (
	"context"
	"testing"

	wfmodel "storyforge-api/internal/workflow/model"
)

func TestParseTitleLine(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		number int
		want   string
	}{
		{name: "fullwidth colon prefix", raw: "第3章：风起青云", number: 3, want: "风起青云"},
		{name: "halfwidth colon prefix", raw: "第3章:风起青云", number: 3, want: "风起青云"},
		{name: "prefix without colon", raw: "第3章 风起青云", number: 3, want: "风起青云"},
		{name: "no prefix", raw: "风起青云", number: 3, want: "风起青云"},
		{name: "quoted title", raw: "《风起青云》", number: 3, want: "风起青云"},
		{name: "leading blank lines", raw: "\n\n第1章：初入江湖\n补充说明", number: 1, want: "初入江湖"},
		{name: "empty output", raw: "   \n  ", number: 1, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTitleLine(tt.raw, tt.number); got != tt.want {
				t.Errorf("ParseTitleLine(%q, %d) = %q, want %q", tt.raw, tt.number, got, tt.want)
			}
		})
	}
}

func TestTitleChainInvoke(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"第2章：暗流涌动"}}
	factory := newFakeFactory(fake)
	c := NewTitleChain(factory)

	title, err := c.Invoke(context.Background(), &wfmodel.ChapterTitleInput{
		Number:  2,
		Excerpt: "夜色中，林远悄悄潜入了城主府。",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if title != "暗流涌动" {
		t.Errorf("title = %q, want 暗流涌动", title)
	}
	if len(factory.roles) != 1 || factory.roles[0] != "fast" {
		t.Errorf("roles = %v, want [fast]", factory.roles)
	}
}

func TestTitleChainInputValidation(t *testing.T) {
	c := NewTitleChain(newFakeFactory(&fakeChatModel{}))

	if _, err := c.Invoke(context.Background(), nil); err == nil {
		t.Error("expected error for nil input")
	}
	if _, err := c.Invoke(context.Background(), &wfmodel.ChapterTitleInput{Number: 1, Excerpt: " "}); err == nil {
		t.Error("expected error for empty excerpt")
	}
	if _, err := c.Invoke(context.Background(), &wfmodel.ChapterTitleInput{Number: 0, Excerpt: "正文"}); err == nil {
		t.Error("expected error for missing chapter number")
	}
}
