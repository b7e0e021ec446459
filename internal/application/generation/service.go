package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storyforge-api/internal/application/graph"
	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/workflow/chain"
	workflowport "storyforge-api/internal/workflow/port"
	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
)

// BatchRequest 批量生成请求
// Plot/WritingStyle 非空时覆盖项目设置，只对本次生成生效。
type BatchRequest struct {
	NumChapters  int
	Plot         string
	WritingStyle string
	Instructions map[string]any
}

// ChapterOutcome 单章生成结果状态
type ChapterOutcome struct {
	ChapterNumber int    `json:"chapter_number"`
	Status        string `json:"status"`

	// 成功时填充
	ID                 string `json:"id,omitempty"`
	Title              string `json:"title,omitempty"`
	WordCount          int    `json:"word_count,omitempty"`
	ReachedTarget      bool   `json:"reached_target,omitempty"`
	NewCodexItemsSaved int    `json:"new_codex_items_saved,omitempty"`
	ValiditySaved      bool   `json:"validity_saved,omitempty"`

	// 失败时填充
	Error string `json:"error,omitempty"`
}

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Service 章节生成应用服务
// 串起守卫、生成句柄、持久化与知识库索引。
type Service struct {
	cfg     *config.Config
	guard   *Guard
	store   *knowledge.Store
	factory workflowport.ChatModelFactory

	transactor repository.Transactor
	projects   repository.ProjectRepository
	chapters   repository.ChapterRepository
	codex      repository.CodexRepository
	relations  repository.RelationshipRepository
	events     repository.EventRepository
	locations  repository.LocationRepository
	conns      repository.ConnectionRepository
	reports    repository.ValidityReportRepository
}

// NewService 创建生成服务
func NewService(
	cfg *config.Config,
	guard *Guard,
	store *knowledge.Store,
	factory workflowport.ChatModelFactory,
	transactor repository.Transactor,
	projects repository.ProjectRepository,
	chapters repository.ChapterRepository,
	codex repository.CodexRepository,
	relations repository.RelationshipRepository,
	events repository.EventRepository,
	locations repository.LocationRepository,
	conns repository.ConnectionRepository,
	reports repository.ValidityReportRepository,
) *Service {
	return &Service{
		cfg:        cfg,
		guard:      guard,
		store:      store,
		factory:    factory,
		transactor: transactor,
		projects:   projects,
		chapters:   chapters,
		codex:      codex,
		relations:  relations,
		events:     events,
		locations:  locations,
		conns:      conns,
		reports:    reports,
	}
}

// Guard 暴露守卫给接口层做缓存失效
func (s *Service) Guard() *Guard {
	return s.guard
}

// GenerateChapters 顺序生成 N 个章节
// 入口先过守卫：同项目已有生成在跑时整批拒绝。章节逐个生成并落库，
// 后一章的上下文包含前一章的成果；某章失败只记录该章的失败结果，
// 批次继续推进后续章节（每章重新取 MaxNumber 与前文，失败不留脏状态）。
func (s *Service) GenerateChapters(ctx context.Context, scope knowledge.Scope, req *BatchRequest) ([]ChapterOutcome, error) {
	if req == nil || req.NumChapters <= 0 {
		return nil, errors.New(errors.CodeValidationFailed, "num_chapters 必须大于 0")
	}

	if err := s.guard.Acquire(ctx, scope); err != nil {
		return nil, err
	}
	defer s.guard.Release(scope)

	project, err := s.loadProject(ctx, scope)
	if err != nil {
		return nil, err
	}

	plot := strings.TrimSpace(req.Plot)
	if plot == "" {
		plot = project.Plot
	}
	style := strings.TrimSpace(req.WritingStyle)
	if style == "" {
		style = project.WritingStyle
	}
	instr := ParseInstructions(req.Instructions)

	outcomes := make([]ChapterOutcome, 0, req.NumChapters)
	for i := 0; i < req.NumChapters; i++ {
		outcome, err := s.generateOne(ctx, scope, project, plot, style, instr)
		outcomes = append(outcomes, outcome)
		if err != nil {
			logger.Error(ctx, "章节生成失败，继续批次", err,
				"chapter_number", outcome.ChapterNumber,
				"batch_index", i,
			)
		}
	}
	return outcomes, nil
}

func (s *Service) loadProject(ctx context.Context, scope knowledge.Scope) (*entity.Project, error) {
	project, err := s.projects.GetByID(ctx, scope.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != scope.UserID {
		return nil, errors.ErrProjectNotFound
	}
	return project, nil
}

// generateOne 生成并持久化一个章节
func (s *Service) generateOne(ctx context.Context, scope knowledge.Scope, project *entity.Project, plot, style string, instr *Instructions) (ChapterOutcome, error) {
	maxNumber, err := s.chapters.MaxNumber(ctx, repoScope(scope))
	if err != nil {
		return ChapterOutcome{Status: OutcomeFailed, Error: err.Error()}, err
	}
	number := maxNumber + 1
	ctx = context.WithValue(ctx, logger.ChapterNoKey, number)

	manager, err := s.guard.Manager(ctx, scope, func(ctx context.Context) (*Manager, error) {
		return s.buildManager(ctx, scope)
	})
	if err != nil {
		return ChapterOutcome{ChapterNumber: number, Status: OutcomeFailed, Error: err.Error()}, err
	}

	roster, err := s.loadRoster(ctx, scope)
	if err != nil {
		return ChapterOutcome{ChapterNumber: number, Status: OutcomeFailed, Error: err.Error()}, err
	}
	history, err := s.loadHistory(ctx, scope)
	if err != nil {
		return ChapterOutcome{ChapterNumber: number, Status: OutcomeFailed, Error: err.Error()}, err
	}

	result, err := manager.Generate(ctx, &Request{
		ChapterNumber: number,
		Plot:          plot,
		WritingStyle:  style,
		StyleGuide:    project.StyleGuide,
		Instructions:  instr,
		Roster:        roster,
		History:       history,
	})
	if err != nil {
		return ChapterOutcome{ChapterNumber: number, Status: OutcomeFailed, Error: err.Error()}, err
	}

	chapter, newItems, err := s.persistResult(ctx, scope, number, result)
	if err != nil {
		return ChapterOutcome{ChapterNumber: number, Status: OutcomeFailed, Error: err.Error()}, err
	}

	// 索引失败只告警不回滚：正文已落库，向量可后补（见知识库 Refresh）
	s.indexResult(ctx, scope, chapter, newItems)

	// 新实体改变了角色表与关系图，句柄失效让下一章重建
	if len(newItems) > 0 {
		s.guard.Invalidate(scope)
	}

	return ChapterOutcome{
		ChapterNumber:      number,
		Status:             OutcomeSuccess,
		ID:                 chapter.ID,
		Title:              chapter.Title,
		WordCount:          chapter.WordCount,
		ReachedTarget:      result.ReachedTarget,
		NewCodexItemsSaved: len(newItems),
		ValiditySaved:      result.Validity != nil,
	}, nil
}

// buildManager 装配一个 (user, project) 的生成句柄
func (s *Service) buildManager(ctx context.Context, scope knowledge.Scope) (*Manager, error) {
	rs := repoScope(scope)

	items, err := s.codex.ListByProject(ctx, rs)
	if err != nil {
		return nil, err
	}
	relationships, err := s.relations.ListByProject(ctx, rs)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByProject(ctx, rs)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.ListByProject(ctx, rs)
	if err != nil {
		return nil, err
	}
	eventConns, err := s.conns.ListEventConnections(ctx, rs)
	if err != nil {
		return nil, err
	}
	locationConns, err := s.conns.ListLocationConnections(ctx, rs)
	if err != nil {
		return nil, err
	}

	g := graph.New()
	g.Build(items, relationships, events, locations, eventConns, locationConns)

	primary := s.cfg.LLM.Providers[s.cfg.LLM.PrimaryProvider]
	chains := Chains{
		Draft:    chain.NewDraftChain(s.factory),
		Extend:   chain.NewExtendChain(s.factory),
		Validate: chain.NewValidateChain(s.factory),
		Entities: chain.NewEntitiesChain(s.factory),
		Title:    chain.NewTitleChain(s.factory),
	}
	opts := Options{
		MaxExtendAttempts: s.cfg.Generation.MaxExtensionAttempts,
		RetrievalTopK:     s.cfg.Generation.RetrievalTopK,
		GraphDepth:        s.cfg.Generation.GraphDepth,
		ContextWindow:     primary.ContextWindow,
		Provider:          s.cfg.LLM.PrimaryProvider,
		Model:             primary.Model,
	}

	logger.Info(ctx, "生成句柄装配完成",
		"codex_items", len(items),
		"graph_nodes", g.NodeCount(),
		"graph_edges", g.EdgeCount(),
	)
	return NewManager(scope, chains, s.store, g, opts), nil
}

// loadRoster 加载实体名册：名字 -> 描述
// 名册同时承担两个角色：注入提示词的角色表、实体抽取的已知名单，
// 所以这里取全部设定条目而不只是人物。
func (s *Service) loadRoster(ctx context.Context, scope knowledge.Scope) (map[string]string, error) {
	items, err := s.codex.ListByProject(ctx, repoScope(scope))
	if err != nil {
		return nil, err
	}
	roster := make(map[string]string, len(items))
	for _, item := range items {
		if item == nil || strings.TrimSpace(item.Name) == "" {
			continue
		}
		roster[item.Name] = item.Description
	}
	return roster, nil
}

// loadHistory 加载已完成章节作为前文历史（按序号升序）
func (s *Service) loadHistory(ctx context.Context, scope knowledge.Scope) ([]PriorChapter, error) {
	chapters, err := s.chapters.ListByProject(ctx, repoScope(scope))
	if err != nil {
		return nil, err
	}
	history := make([]PriorChapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch == nil || ch.Status != entity.ChapterStatusCompleted {
			continue
		}
		history = append(history, PriorChapter{Number: ch.Number, Content: ch.Content})
	}
	return history, nil
}

// persistResult 在一个事务里落库章节、评审报告与新设定条目
func (s *Service) persistResult(ctx context.Context, scope knowledge.Scope, number int, result *Result) (*entity.Chapter, []*entity.CodexItem, error) {
	chapter := entity.NewChapter(scope.UserID, scope.ProjectID, number)
	chapter.Title = result.Title
	chapter.SetContent(result.Content)
	chapter.Status = entity.ChapterStatusCompleted
	chapter.GenerationMetadata = &entity.GenerationMetadata{
		Model:          result.Model,
		Provider:       result.Provider,
		ExtendAttempts: result.ExtendAttempts,
		ReachedTarget:  result.ReachedTarget,
		GeneratedAt:    time.Now().Format(time.RFC3339),
	}

	newItems := make([]*entity.CodexItem, 0, len(result.NewEntities))
	err := s.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.chapters.Create(txCtx, chapter); err != nil {
			return err
		}

		if result.Validity != nil {
			report := result.Validity
			report.UserID = scope.UserID
			report.ProjectID = scope.ProjectID
			report.ChapterID = chapter.ID
			if err := s.reports.Create(txCtx, report); err != nil {
				return err
			}
		}

		for _, e := range result.NewEntities {
			item := entity.NewCodexItem(scope.UserID, scope.ProjectID, e.Name, codexTypeOf(e.Type))
			item.Description = e.Description
			item.Backstory = e.Backstory
			if err := s.codex.Create(txCtx, item); err != nil {
				return err
			}
			newItems = append(newItems, item)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "生成结果落库失败")
	}
	return chapter, newItems, nil
}

// indexResult 把新章节与新设定写进知识库并回写 embedding id
// 任何一步失败都只告警，不影响已落库的数据。
func (s *Service) indexResult(ctx context.Context, scope knowledge.Scope, chapter *entity.Chapter, newItems []*entity.CodexItem) {
	embeddingID, err := s.store.Add(ctx, scope, chapter.Content, map[string]any{
		knowledge.MetaType:   "chapter",
		knowledge.MetaItemID: chapter.ID,
		knowledge.MetaName:   fmt.Sprintf("第%d章：%s", chapter.Number, chapter.Title),
	})
	if err != nil {
		logger.Warn(ctx, "章节向量索引失败", "chapter_id", chapter.ID, "error", err)
	} else if err := s.chapters.SetEmbeddingID(ctx, chapter.ID, embeddingID); err != nil {
		logger.Warn(ctx, "章节 embedding id 回写失败", "chapter_id", chapter.ID, "error", err)
	}

	for _, item := range newItems {
		content := item.Name + "：" + item.Description
		id, err := s.store.Add(ctx, scope, content, map[string]any{
			knowledge.MetaType:    string(item.Type),
			knowledge.MetaItemID:  item.ID,
			knowledge.MetaName:    item.Name,
			knowledge.MetaSubtype: item.Subtype,
		})
		if err != nil {
			logger.Warn(ctx, "设定条目向量索引失败", "item_id", item.ID, "error", err)
			continue
		}
		if err := s.codex.SetEmbeddingID(ctx, item.ID, id); err != nil {
			logger.Warn(ctx, "设定条目 embedding id 回写失败", "item_id", item.ID, "error", err)
		}
	}
}

func repoScope(scope knowledge.Scope) repository.Scope {
	return repository.Scope{UserID: scope.UserID, ProjectID: scope.ProjectID}
}

// codexTypeOf 把模型输出的类型字符串收敛到已知枚举，未知的归入 lore
func codexTypeOf(raw string) entity.CodexItemType {
	switch entity.CodexItemType(strings.ToLower(strings.TrimSpace(raw))) {
	case entity.CodexTypeCharacter:
		return entity.CodexTypeCharacter
	case entity.CodexTypeLocation:
		return entity.CodexTypeLocation
	case entity.CodexTypeFaction:
		return entity.CodexTypeFaction
	case entity.CodexTypeItem:
		return entity.CodexTypeItem
	case entity.CodexTypeEvent:
		return entity.CodexTypeEvent
	case entity.CodexTypeRelationship:
		return entity.CodexTypeRelationship
	case entity.CodexTypeWorldbuilding:
		return entity.CodexTypeWorldbuilding
	default:
		return entity.CodexTypeLore
	}
}
