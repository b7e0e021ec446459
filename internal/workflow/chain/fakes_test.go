package chain

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeChatModel 按脚本顺序返回预置回复，并记录每次调用收到的消息
type fakeChatModel struct {
	replies []string
	err     error

	calls  int
	inputs [][]*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.replies) {
		return nil, fmt.Errorf("no scripted reply for call %d", m.calls)
	}
	reply := m.replies[m.calls]
	m.calls++
	return schema.AssistantMessage(reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.replies) {
		return nil, fmt.Errorf("no scripted reply for call %d", m.calls)
	}
	reply := m.replies[m.calls]
	m.calls++

	// 把回复按 rune 切成两段模拟流式输出
	runes := []rune(reply)
	half := len(runes) / 2
	chunks := []*schema.Message{
		schema.AssistantMessage(string(runes[:half]), nil),
		schema.AssistantMessage(string(runes[half:]), nil),
	}
	return schema.StreamReaderFromArray(chunks), nil
}

// fakeFactory 按角色分发 fake 模型并记录请求过的角色
type fakeFactory struct {
	models map[string]model.BaseChatModel
	roles  []string
}

func newFakeFactory(m model.BaseChatModel) *fakeFactory {
	return &fakeFactory{models: map[string]model.BaseChatModel{
		"primary": m,
		"fast":    m,
	}}
}

func (f *fakeFactory) Get(ctx context.Context, role string) (model.BaseChatModel, error) {
	f.roles = append(f.roles, role)
	m, ok := f.models[role]
	if !ok {
		return nil, fmt.Errorf("unknown role: %s", role)
	}
	return m, nil
}
