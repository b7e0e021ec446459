package generation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"storyforge-api/internal/application/graph"
	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/workflow/chain"
	wfmodel "storyforge-api/internal/workflow/model"
	"storyforge-api/internal/workflow/node"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// 流水线阶段名，用于日志与指标
const (
	stageBuildContext    = "build_context"
	stageDraft           = "draft"
	stageExtend          = "extend"
	stageValidate        = "validate"
	stageExtractEntities = "extract_entities"
	stageTitle           = "title"
)

// Chains 流水线用到的全部工作流链
type Chains struct {
	Draft    *chain.DraftChain
	Extend   *chain.ExtendChain
	Validate *chain.ValidateChain
	Entities *chain.EntitiesChain
	Title    *chain.TitleChain
}

// Options 流水线行为参数
type Options struct {
	// MaxExtendAttempts 续写循环上限；达到上限仍未到目标字数时
	// 以 ReachedTarget=false 返回当前内容，而不是无限重试
	MaxExtendAttempts int
	// RetrievalTopK 相似检索条数
	RetrievalTopK int
	// GraphDepth 关系图邻域展开深度
	GraphDepth int
	// ContextWindow 当前 primary 模型的上下文窗口（token）
	ContextWindow int
	// Provider/Model 记入章节生成元数据
	Provider string
	Model    string
}

// Manager 按 (user, project) 缓存的生成句柄
// 把 LLM 链、知识库与关系图绑到一个项目上，被 Guard 缓存复用；
// 项目结构或模型配置变化时由 Guard 整体失效重建。
type Manager struct {
	scope     knowledge.Scope
	chains    Chains
	store     *knowledge.Store
	graph     *graph.Graph
	assembler *Assembler
	opts      Options
}

// NewManager 创建生成句柄
func NewManager(scope knowledge.Scope, chains Chains, store *knowledge.Store, g *graph.Graph, opts Options) *Manager {
	if opts.MaxExtendAttempts <= 0 {
		opts.MaxExtendAttempts = 5
	}
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 8
	}
	if opts.GraphDepth <= 0 {
		opts.GraphDepth = 1
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 32768
	}
	return &Manager{
		scope:     scope,
		chains:    chains,
		store:     store,
		graph:     g,
		assembler: NewAssembler(),
		opts:      opts,
	}
}

// Request 单章生成请求
type Request struct {
	ChapterNumber int
	Plot          string
	WritingStyle  string
	StyleGuide    string
	Instructions  *Instructions
	// Roster 角色表：名字 -> 描述
	Roster  map[string]string
	History []PriorChapter
}

// Result 单章生成结果
type Result struct {
	Content        string
	Title          string
	Validity       *entity.ValidityReport
	NewEntities    []*wfmodel.ExtractedEntity
	WordCount      int
	ExtendAttempts int
	// ReachedTarget 续写循环是否达到了最小字数目标
	ReachedTarget    bool
	IncludedChapters []int
	Provider         string
	Model            string
}

// Generate 执行完整生成流水线
// 阶段顺序：组装上下文 → 初稿 → 长度检查（续写循环）→ 审校 → 实体抽取 → 标题。
// 审校与实体抽取阶段内部兜底，解析失败不会让整章失败；其余阶段出错即终止。
func (m *Manager) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, errors.New(errors.CodeValidationFailed, "生成请求为空")
	}
	started := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues("total").Observe(time.Since(started).Seconds())
	}()

	// 最小字数只来自指令，未指定即不限制，续写循环整体跳过
	minWords := 0
	if req.Instructions != nil && req.Instructions.MinWordCount > 0 {
		minWords = req.Instructions.MinWordCount
	}

	// BUILD_CONTEXT
	stageStart := time.Now()
	budget := BudgetForWindow(m.opts.ContextWindow)
	asm := m.assembler.Assemble(req.Plot, req.WritingStyle, req.Instructions, req.Roster, req.History, budget)
	retrieved := m.retrieveContext(ctx, req, budget.Retrieved)
	metrics.GenerationDuration.WithLabelValues(stageBuildContext).Observe(time.Since(stageStart).Seconds())
	logger.Debug(ctx, "上下文组装完成",
		"included_chapters", asm.IncludedChapters,
		"excluded_chapters", asm.ExcludedChapters,
		"retrieved_len", len(retrieved),
	)

	// DRAFT
	stageStart = time.Now()
	content, err := m.draft(ctx, asm, retrieved, minWords)
	metrics.GenerationDuration.WithLabelValues(stageDraft).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, errors.CodeLLMCallFailed, "章节初稿生成失败")
	}

	// LENGTH_SHORT → EXTEND 循环
	stageStart = time.Now()
	content, attempts, reached, err := m.extendToTarget(ctx, asm.Prompt, content, minWords)
	metrics.GenerationDuration.WithLabelValues(stageExtend).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, errors.CodeLLMCallFailed, "章节续写失败")
	}
	metrics.GenerationExtendAttempts.Observe(float64(attempts))
	if !reached {
		logger.Warn(ctx, "续写达到次数上限仍未到目标字数",
			"attempts", attempts, "word_count", entity.CountWords(content), "min_word_count", minWords)
	}

	// VALIDATE（解析失败由链内兜底）
	stageStart = time.Now()
	report, err := m.chains.Validate.Invoke(ctx, &wfmodel.ChapterValidateInput{
		Chapter:    content,
		StyleGuide: req.StyleGuide,
		Context:    node.TruncateByRunes(asm.Prompt, 2000),
	})
	metrics.GenerationDuration.WithLabelValues(stageValidate).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, errors.CodeLLMCallFailed, "章节审校失败")
	}

	// EXTRACT_ENTITIES（解析失败由链内兜底为“无新实体”）
	stageStart = time.Now()
	known := make([]string, 0, len(req.Roster))
	for name := range req.Roster {
		known = append(known, name)
	}
	newEntities, err := m.chains.Entities.Invoke(ctx, &wfmodel.EntityCheckInput{
		Chapter:    content,
		KnownNames: known,
	})
	metrics.GenerationDuration.WithLabelValues(stageExtractEntities).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		metrics.GenerationTotal.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, errors.CodeExtractionFailed, "新实体抽取失败")
	}

	// 标题：指令给了就用指令的，否则按章节开头单独生成
	title := ""
	if req.Instructions != nil {
		title = strings.TrimSpace(req.Instructions.ChapterTitle)
	}
	if title == "" {
		stageStart = time.Now()
		title, err = m.chains.Title.Invoke(ctx, &wfmodel.ChapterTitleInput{
			Number:  req.ChapterNumber,
			Excerpt: content,
		})
		metrics.GenerationDuration.WithLabelValues(stageTitle).Observe(time.Since(stageStart).Seconds())
		if err != nil {
			// 标题失败不拖垮整章，降级为空标题
			logger.Warn(ctx, "标题生成失败，使用空标题", "error", err)
			title = ""
			err = nil
		}
	}

	wordCount := entity.CountWords(content)
	metrics.GenerationTotal.WithLabelValues("success").Inc()
	metrics.GenerationWordCount.Observe(float64(wordCount))

	return &Result{
		Content:          content,
		Title:            title,
		Validity:         report,
		NewEntities:      newEntities,
		WordCount:        wordCount,
		ExtendAttempts:   attempts,
		ReachedTarget:    reached,
		IncludedChapters: asm.IncludedChapters,
		Provider:         m.opts.Provider,
		Model:            m.opts.Model,
	}, nil
}

// retrieveContext 汇集知识库相似检索与关系图邻域，整条纳入直到配额耗尽
// 检索失败降级为空背景，生成不因检索挂掉而失败。
func (m *Manager) retrieveContext(ctx context.Context, req *Request, quota int) string {
	if quota <= 0 {
		return ""
	}

	var segments []string

	query := req.Plot
	if req.Instructions != nil && strings.TrimSpace(req.Instructions.PlotSegment) != "" {
		query = req.Instructions.PlotSegment
	}
	if m.store != nil && strings.TrimSpace(query) != "" {
		// 章节正文走独立的历史预算，这里只检索设定类知识
		filter := &knowledge.TypeFilter{ExcludeTypes: []string{"chapter"}}
		hits, err := m.store.SimilaritySearch(ctx, m.scope, query, m.opts.RetrievalTopK, filter)
		if err != nil {
			logger.Warn(ctx, "知识库检索失败，跳过背景资料", "error", err)
		} else {
			for _, hit := range hits {
				segments = append(segments, hit.Content)
			}
		}
	}

	if m.graph != nil && len(req.Roster) > 0 {
		names := make([]string, 0, len(req.Roster))
		for name := range req.Roster {
			names = append(names, name)
		}
		if rel := m.graph.ContextFor(names, m.opts.GraphDepth); rel != "" {
			segments = append(segments, rel)
		}
	}

	kept := TruncateByBudget(segments, quota)
	return strings.Join(kept, "\n")
}

// draft 流式生成初稿并聚合为完整正文
func (m *Manager) draft(ctx context.Context, asm *AssembledContext, retrieved string, minWords int) (string, error) {
	reader, err := m.chains.Draft.Stream(ctx, &wfmodel.ChapterDraftInput{
		Context:          asm.Prompt,
		RetrievedContext: retrieved,
		ChatHistory:      asm.ChatHistory,
		MinWordCount:     minWords,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var b strings.Builder
	for {
		msg, err := reader.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if msg != nil {
			b.WriteString(msg.Content)
		}
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("draft stream produced no content")
	}
	return content, nil
}

// extendToTarget 续写循环
// 未达最小字数时反复续写并拼接，受 MaxExtendAttempts 限制；
// 某次续写未产生任何新内容时提前终止，避免空转。
func (m *Manager) extendToTarget(ctx context.Context, contextPrompt, content string, minWords int) (string, int, bool, error) {
	attempts := 0
	for entity.CountWords(content) < minWords {
		if attempts >= m.opts.MaxExtendAttempts {
			return content, attempts, false, nil
		}
		attempts++

		msg, err := m.chains.Extend.Invoke(ctx, &wfmodel.ChapterExtendInput{
			Context:          contextPrompt,
			DraftTail:        content,
			CurrentWordCount: entity.CountWords(content),
			MinWordCount:     minWords,
		})
		if err != nil {
			return content, attempts, false, err
		}

		continuation := strings.TrimSpace(msg.Content)
		if continuation == "" {
			logger.Warn(ctx, "续写返回空内容，提前终止", "attempts", attempts)
			return content, attempts, false, nil
		}
		content = content + "\n\n" + continuation
	}
	return content, attempts, true, nil
}
