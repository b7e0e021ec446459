package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storyforge-api/internal/config"
	workflowport "storyforge-api/internal/workflow/port"
	"storyforge-api/pkg/metrics"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoFactory 按角色管理 Eino ChatModel 客户端实例
// primary 走主生成模型，fast 走校验/抽取用的轻量模型，
// 角色到 provider 的映射由配置决定。
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定角色的 ChatModel
func (f *EinoFactory) Get(ctx context.Context, role string) (model.BaseChatModel, error) {
	name := f.providerFor(role)
	if name == "" {
		return nil, fmt.Errorf("no provider configured for role %q", role)
	}

	f.mu.RLock()
	m, ok := f.models[role]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[role]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	// 使用 Eino 的 OpenAI 适配器
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &providerCfg.MaxTokens,
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	instrumented := &instrumentedModel{
		inner: chatModel,
		role:  role,
		model: providerCfg.Model,
	}
	f.models[role] = instrumented
	return instrumented, nil
}

func (f *EinoFactory) providerFor(role string) string {
	switch role {
	case workflowport.RolePrimary, "":
		return f.config.PrimaryProvider
	case workflowport.RoleFast:
		if f.config.FastProvider != "" {
			return f.config.FastProvider
		}
		// 未单独配置轻量模型时退回主模型
		return f.config.PrimaryProvider
	default:
		// 允许直接按 provider 名取，方便运维脚本
		if _, ok := f.config.Providers[role]; ok {
			return role
		}
		return ""
	}
}

func ptrFloat32(f float32) *float32 {
	return &f
}

// instrumentedModel 在 ChatModel 外层记录调用次数与耗时
// Stream 只统计建流是否成功，流式读取的耗时归调用方。
type instrumentedModel struct {
	inner model.BaseChatModel
	role  string
	model string
}

func (m *instrumentedModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	start := time.Now()
	out, err := m.inner.Generate(ctx, in, opts...)
	metrics.LLMCallDuration.WithLabelValues(m.role, m.model).Observe(time.Since(start).Seconds())
	metrics.LLMCallTotal.WithLabelValues(m.role, m.model, statusOf(err)).Inc()
	return out, err
}

func (m *instrumentedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reader, err := m.inner.Stream(ctx, in, opts...)
	metrics.LLMCallTotal.WithLabelValues(m.role, m.model, statusOf(err)).Inc()
	return reader, err
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
