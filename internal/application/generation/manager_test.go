package generation

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/workflow/chain"
)

// scriptFailure 作为脚本条目时让该次调用失败，模拟服务商瞬时错误
const scriptFailure = "\x00fail"

// scriptedModel 按脚本顺序返回回复；Generate 与 Stream 共用同一个游标
type scriptedModel struct {
	replies []string
	cursor  int
}

func (m *scriptedModel) next() (string, error) {
	if m.cursor >= len(m.replies) {
		return "", fmt.Errorf("no scripted reply for call %d", m.cursor)
	}
	reply := m.replies[m.cursor]
	m.cursor++
	if reply == scriptFailure {
		return "", fmt.Errorf("scripted llm failure at call %d", m.cursor-1)
	}
	return reply, nil
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	reply, err := m.next()
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(reply, nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := m.next()
	if err != nil {
		return nil, err
	}
	runes := []rune(reply)
	half := len(runes) / 2
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage(string(runes[:half]), nil),
		schema.AssistantMessage(string(runes[half:]), nil),
	}), nil
}

type scriptedFactory struct {
	m model.BaseChatModel
}

func (f *scriptedFactory) Get(ctx context.Context, role string) (model.BaseChatModel, error) {
	return f.m, nil
}

func newScriptedManager(replies []string, opts Options) *Manager {
	factory := &scriptedFactory{m: &scriptedModel{replies: replies}}
	chains := Chains{
		Draft:    chain.NewDraftChain(factory),
		Extend:   chain.NewExtendChain(factory),
		Validate: chain.NewValidateChain(factory),
		Entities: chain.NewEntitiesChain(factory),
		Title:    chain.NewTitleChain(factory),
	}
	scope := knowledge.Scope{UserID: "u1", ProjectID: "p1"}
	return NewManager(scope, chains, nil, nil, opts)
}

const passingReview = `{"plausibility":{"score":8},"style_adherence":{"score":8},"feedback":"合格"}`

func TestManagerGenerateHappyPath(t *testing.T) {
	m := newScriptedManager([]string{
		"one two three four", // 初稿
		passingReview,        // 审校
		`[]`,                 // 新实体识别：无
		"第1章：启程",             // 标题
	}, Options{})

	res, err := m.Generate(context.Background(), &Request{
		ChapterNumber: 1,
		Plot:          "少年离乡",
		Instructions:  &Instructions{MinWordCount: 3},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Content != "one two three four" {
		t.Errorf("content = %q", res.Content)
	}
	if res.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", res.WordCount)
	}
	if res.ExtendAttempts != 0 || !res.ReachedTarget {
		t.Errorf("attempts=%d reached=%v, want 0/true", res.ExtendAttempts, res.ReachedTarget)
	}
	if res.Title != "启程" {
		t.Errorf("Title = %q, want 启程", res.Title)
	}
	if res.Validity == nil || !res.Validity.IsValid {
		t.Errorf("Validity = %+v, want valid report", res.Validity)
	}
	if res.NewEntities != nil {
		t.Errorf("NewEntities = %v, want nil", res.NewEntities)
	}
}

func TestManagerGenerateNoMinimumSkipsExtend(t *testing.T) {
	// 未给 min_word_count 时不设字数下限，初稿后直接进入审校
	m := newScriptedManager([]string{
		"one two",     // 初稿
		passingReview, // 审校
		`[]`,          // 新实体
		"第1章：短章",      // 标题
	}, Options{})

	res, err := m.Generate(context.Background(), &Request{
		ChapterNumber: 1,
		Plot:          "情节",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.ExtendAttempts != 0 {
		t.Errorf("ExtendAttempts = %d, want 0", res.ExtendAttempts)
	}
	if !res.ReachedTarget {
		t.Error("ReachedTarget = false, want true")
	}
	if res.WordCount != 2 {
		t.Errorf("WordCount = %d, want 2", res.WordCount)
	}
	if res.Title != "短章" {
		t.Errorf("Title = %q, want 短章", res.Title)
	}
}

func TestManagerGenerateExtendsShortDraft(t *testing.T) {
	m := newScriptedManager([]string{
		"one two three",  // 初稿：3 词，不足 6
		"four five six",  // 续写第 1 次后达标
		passingReview,    // 审校
		`[]`,             // 新实体
		"第1章：续章",         // 标题
	}, Options{})

	res, err := m.Generate(context.Background(), &Request{
		ChapterNumber: 1,
		Plot:          "情节",
		Instructions:  &Instructions{MinWordCount: 6},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.ExtendAttempts != 1 {
		t.Errorf("ExtendAttempts = %d, want 1", res.ExtendAttempts)
	}
	if !res.ReachedTarget {
		t.Error("ReachedTarget = false, want true")
	}
	if res.WordCount != 6 {
		t.Errorf("WordCount = %d, want 6", res.WordCount)
	}
}

func TestManagerGenerateStopsAtExtendCap(t *testing.T) {
	m := newScriptedManager([]string{
		"one",         // 初稿：远未达标
		"two",         // 续写 1
		"three",       // 续写 2（达到上限）
		passingReview, // 审校
		`[]`,          // 新实体
		"第1章：未完",      // 标题
	}, Options{MaxExtendAttempts: 2})

	res, err := m.Generate(context.Background(), &Request{
		ChapterNumber: 1,
		Plot:          "情节",
		Instructions:  &Instructions{MinWordCount: 100},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.ExtendAttempts != 2 {
		t.Errorf("ExtendAttempts = %d, want 2", res.ExtendAttempts)
	}
	if res.ReachedTarget {
		t.Error("ReachedTarget = true, want false at cap")
	}
}

func TestManagerGenerateUsesInstructionTitle(t *testing.T) {
	// 指令给了标题时不再调用标题链：脚本里没有标题回复
	m := newScriptedManager([]string{
		"one two three",
		passingReview,
		`[]`,
	}, Options{})

	res, err := m.Generate(context.Background(), &Request{
		ChapterNumber: 1,
		Plot:          "情节",
		Instructions:  &Instructions{MinWordCount: 2, ChapterTitle: "定好的标题"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Title != "定好的标题" {
		t.Errorf("Title = %q, want 定好的标题", res.Title)
	}
}

func TestManagerGenerateNewEntities(t *testing.T) {
	m := newScriptedManager([]string{
		"one two three",
		passingReview,
		`["墨老"]`,
		`[{"name":"墨老","type":"character","description":"神秘老者"}]`,
		"第1章：相遇",
	}, Options{})

	res, err := m.Generate(context.Background(), &Request{
		ChapterNumber: 1,
		Plot:          "情节",
		Instructions:  &Instructions{MinWordCount: 2},
		Roster:        map[string]string{"林远": "主角"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(res.NewEntities) != 1 || res.NewEntities[0].Name != "墨老" {
		t.Errorf("NewEntities = %+v, want one entity 墨老", res.NewEntities)
	}
}

func TestManagerGenerateNilRequest(t *testing.T) {
	m := newScriptedManager(nil, Options{})
	if _, err := m.Generate(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
}
