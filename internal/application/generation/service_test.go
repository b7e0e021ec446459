package generation

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/pkg/errors"
)

// ---- 内存仓储 ----

type memTransactor struct{}

func (memTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memProjectRepo struct {
	project *entity.Project
}

func (r *memProjectRepo) Create(ctx context.Context, p *entity.Project) error { return nil }
func (r *memProjectRepo) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	if r.project != nil && r.project.ID == id {
		return r.project, nil
	}
	return nil, nil
}
func (r *memProjectRepo) Update(ctx context.Context, p *entity.Project) error { return nil }
func (r *memProjectRepo) Delete(ctx context.Context, id string) error         { return nil }
func (r *memProjectRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Project, error) {
	return nil, nil
}

type memChapterRepo struct {
	chapters     []*entity.Chapter
	embeddingIDs map[string]string
}

func (r *memChapterRepo) Create(ctx context.Context, ch *entity.Chapter) error {
	ch.ID = fmt.Sprintf("ch-%d", len(r.chapters)+1)
	r.chapters = append(r.chapters, ch)
	return nil
}
func (r *memChapterRepo) GetByID(ctx context.Context, id string) (*entity.Chapter, error) {
	for _, ch := range r.chapters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}
func (r *memChapterRepo) Update(ctx context.Context, ch *entity.Chapter) error { return nil }
func (r *memChapterRepo) Delete(ctx context.Context, id string) error          { return nil }
func (r *memChapterRepo) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Chapter, error) {
	return r.chapters, nil
}
func (r *memChapterRepo) MaxNumber(ctx context.Context, scope repository.Scope) (int, error) {
	max := 0
	for _, ch := range r.chapters {
		if ch.Number > max {
			max = ch.Number
		}
	}
	return max, nil
}
func (r *memChapterRepo) SetEmbeddingID(ctx context.Context, id, embeddingID string) error {
	if r.embeddingIDs == nil {
		r.embeddingIDs = make(map[string]string)
	}
	r.embeddingIDs[id] = embeddingID
	return nil
}

type memCodexRepo struct {
	items []*entity.CodexItem
}

func (r *memCodexRepo) Create(ctx context.Context, item *entity.CodexItem) error {
	item.ID = fmt.Sprintf("cx-%d", len(r.items)+1)
	r.items = append(r.items, item)
	return nil
}
func (r *memCodexRepo) GetByID(ctx context.Context, id string) (*entity.CodexItem, error) {
	return nil, nil
}
func (r *memCodexRepo) Update(ctx context.Context, item *entity.CodexItem) error { return nil }
func (r *memCodexRepo) Delete(ctx context.Context, id string) error              { return nil }
func (r *memCodexRepo) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.CodexItem, error) {
	return r.items, nil
}
func (r *memCodexRepo) ListByType(ctx context.Context, scope repository.Scope, itemType entity.CodexItemType) ([]*entity.CodexItem, error) {
	return nil, nil
}
func (r *memCodexRepo) SetEmbeddingID(ctx context.Context, id, embeddingID string) error {
	return nil
}

type memRelationRepo struct{}

func (memRelationRepo) Create(ctx context.Context, rel *entity.Relationship) error { return nil }
func (memRelationRepo) GetByID(ctx context.Context, id string) (*entity.Relationship, error) {
	return nil, nil
}
func (memRelationRepo) Update(ctx context.Context, rel *entity.Relationship) error { return nil }
func (memRelationRepo) Delete(ctx context.Context, id string) error                { return nil }
func (memRelationRepo) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Relationship, error) {
	return nil, nil
}
func (memRelationRepo) DeleteByCodexItem(ctx context.Context, itemID string) error { return nil }

type memEventRepo struct{}

func (memEventRepo) Create(ctx context.Context, event *entity.Event) error { return nil }
func (memEventRepo) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	return nil, nil
}
func (memEventRepo) Update(ctx context.Context, event *entity.Event) error { return nil }
func (memEventRepo) Delete(ctx context.Context, id string) error           { return nil }
func (memEventRepo) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Event, error) {
	return nil, nil
}

type memLocationRepo struct{}

func (memLocationRepo) Create(ctx context.Context, location *entity.Location) error { return nil }
func (memLocationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	return nil, nil
}
func (memLocationRepo) Update(ctx context.Context, location *entity.Location) error { return nil }
func (memLocationRepo) Delete(ctx context.Context, id string) error                 { return nil }
func (memLocationRepo) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.Location, error) {
	return nil, nil
}

type memConnRepo struct{}

func (memConnRepo) CreateEventConnection(ctx context.Context, conn *entity.EventConnection) error {
	return nil
}
func (memConnRepo) CreateLocationConnection(ctx context.Context, conn *entity.LocationConnection) error {
	return nil
}
func (memConnRepo) DeleteEventConnection(ctx context.Context, id string) error    { return nil }
func (memConnRepo) DeleteLocationConnection(ctx context.Context, id string) error { return nil }
func (memConnRepo) ListEventConnections(ctx context.Context, scope repository.Scope) ([]*entity.EventConnection, error) {
	return nil, nil
}
func (memConnRepo) ListLocationConnections(ctx context.Context, scope repository.Scope) ([]*entity.LocationConnection, error) {
	return nil, nil
}

type memReportRepo struct {
	reports []*entity.ValidityReport
}

func (r *memReportRepo) Create(ctx context.Context, report *entity.ValidityReport) error {
	r.reports = append(r.reports, report)
	return nil
}
func (r *memReportRepo) GetByChapter(ctx context.Context, chapterID string) (*entity.ValidityReport, error) {
	return nil, nil
}
func (r *memReportRepo) ListByProject(ctx context.Context, scope repository.Scope) ([]*entity.ValidityReport, error) {
	return r.reports, nil
}

// ---- 内存向量索引与 embedder ----

type memVectorIndex struct {
	items map[string][]*knowledge.Item
}

func (f *memVectorIndex) key(scope knowledge.Scope) string { return knowledge.CollectionName(scope) }
func (f *memVectorIndex) Ensure(ctx context.Context, scope knowledge.Scope) error {
	if f.items == nil {
		f.items = make(map[string][]*knowledge.Item)
	}
	return nil
}
func (f *memVectorIndex) Upsert(ctx context.Context, scope knowledge.Scope, items []*knowledge.Item) error {
	f.items[f.key(scope)] = append(f.items[f.key(scope)], items...)
	return nil
}
func (f *memVectorIndex) Get(ctx context.Context, scope knowledge.Scope, id string) (*knowledge.Item, error) {
	for _, item := range f.items[f.key(scope)] {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}
func (f *memVectorIndex) Delete(ctx context.Context, scope knowledge.Scope, ids []string) error {
	return nil
}
func (f *memVectorIndex) Search(ctx context.Context, scope knowledge.Scope, vector []float32, topK int, filter *knowledge.TypeFilter) ([]*knowledge.Hit, error) {
	return nil, nil
}
func (f *memVectorIndex) List(ctx context.Context, scope knowledge.Scope) ([]*knowledge.Item, error) {
	return f.items[f.key(scope)], nil
}
func (f *memVectorIndex) Close() error { return nil }

type constEmbedder struct{}

func (constEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 2}
	}
	return out, nil
}

// ---- 测试装配 ----

type serviceFixture struct {
	service  *Service
	guard    *Guard
	chapters *memChapterRepo
	codex    *memCodexRepo
	reports  *memReportRepo
	index    *memVectorIndex
}

func newServiceFixture(t *testing.T, replies []string) *serviceFixture {
	t.Helper()

	cfg := &config.Config{
		LLM: config.LLMConfig{
			PrimaryProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {Model: "gpt-4o", ContextWindow: 128000},
			},
		},
		Generation: config.GenerationConfig{
			MaxExtensionAttempts: 2,
			GraphDepth:           1,
			RetrievalTopK:        4,
		},
	}

	guard := newTestGuard(t)
	index := &memVectorIndex{}
	store := knowledge.NewStore(index, constEmbedder{}, 8)
	chapters := &memChapterRepo{}
	codex := &memCodexRepo{}
	reports := &memReportRepo{}

	project := entity.NewProject("u1", "测试项目")
	project.ID = "p1"
	project.Plot = "少年剑客的成长故事"
	project.WritingStyle = "简洁克制"

	svc := NewService(
		cfg,
		guard,
		store,
		&scriptedFactory{m: &scriptedModel{replies: replies}},
		memTransactor{},
		&memProjectRepo{project: project},
		chapters,
		codex,
		memRelationRepo{},
		memEventRepo{},
		memLocationRepo{},
		memConnRepo{},
		reports,
	)
	return &serviceFixture{service: svc, guard: guard, chapters: chapters, codex: codex, reports: reports, index: index}
}

func TestServiceGenerateChaptersBatch(t *testing.T) {
	fx := newServiceFixture(t, []string{
		// 第 1 章
		"one two three", passingReview, `[]`, "第1章：启程",
		// 第 2 章
		"four five six", passingReview, `[]`, "第2章：再出发",
	})
	scope := testScope("p1")

	outcomes, err := fx.service.GenerateChapters(context.Background(), scope, &BatchRequest{
		NumChapters:  2,
		Instructions: map[string]any{"min_word_count": 2},
	})
	if err != nil {
		t.Fatalf("GenerateChapters failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Status != OutcomeSuccess {
			t.Errorf("outcome %d status = %q, want success", i, o.Status)
		}
		if o.ChapterNumber != i+1 {
			t.Errorf("outcome %d chapter number = %d, want %d", i, o.ChapterNumber, i+1)
		}
		if !o.ValiditySaved {
			t.Errorf("outcome %d missing validity report", i)
		}
	}
	if outcomes[0].Title != "启程" || outcomes[1].Title != "再出发" {
		t.Errorf("titles = %q/%q", outcomes[0].Title, outcomes[1].Title)
	}

	if len(fx.chapters.chapters) != 2 {
		t.Fatalf("persisted %d chapters, want 2", len(fx.chapters.chapters))
	}
	if fx.chapters.chapters[0].Status != entity.ChapterStatusCompleted {
		t.Errorf("chapter status = %v, want completed", fx.chapters.chapters[0].Status)
	}
	if fx.chapters.chapters[0].GenerationMetadata == nil || fx.chapters.chapters[0].GenerationMetadata.Model != "gpt-4o" {
		t.Errorf("generation metadata = %+v", fx.chapters.chapters[0].GenerationMetadata)
	}
	if len(fx.reports.reports) != 2 {
		t.Errorf("persisted %d reports, want 2", len(fx.reports.reports))
	}
	if fx.reports.reports[0].ChapterID != fx.chapters.chapters[0].ID {
		t.Errorf("report bound to %q, want %q", fx.reports.reports[0].ChapterID, fx.chapters.chapters[0].ID)
	}

	// 章节正文进了知识库并回写了 embedding id
	indexed, _ := fx.index.List(context.Background(), scope)
	if len(indexed) != 2 {
		t.Errorf("indexed %d items, want 2", len(indexed))
	}
	if len(fx.chapters.embeddingIDs) != 2 {
		t.Errorf("embedding ids written back for %d chapters, want 2", len(fx.chapters.embeddingIDs))
	}

	// 守卫已释放，可以再次发起
	if fx.guard.Running(scope) {
		t.Error("guard still held after batch finished")
	}
}

func TestServiceGenerateChaptersConflict(t *testing.T) {
	fx := newServiceFixture(t, nil)
	scope := testScope("p1")

	if err := fx.guard.Acquire(context.Background(), scope); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	_, err := fx.service.GenerateChapters(context.Background(), scope, &BatchRequest{NumChapters: 1})
	if err != errors.ErrGenerationConflict {
		t.Errorf("error = %v, want ErrGenerationConflict", err)
	}
}

func TestServiceGenerateChaptersProjectOwnership(t *testing.T) {
	fx := newServiceFixture(t, nil)
	// 同一项目，另一个用户
	scope := knowledge.Scope{UserID: "intruder", ProjectID: "p1"}

	_, err := fx.service.GenerateChapters(context.Background(), scope, &BatchRequest{NumChapters: 1})
	if errors.AsAppError(err).Code != errors.CodeProjectNotFound {
		t.Errorf("error = %v, want project not found", err)
	}
}

func TestServiceGenerateChaptersValidation(t *testing.T) {
	fx := newServiceFixture(t, nil)
	scope := testScope("p1")

	if _, err := fx.service.GenerateChapters(context.Background(), scope, nil); err == nil {
		t.Error("expected error for nil request")
	}
	if _, err := fx.service.GenerateChapters(context.Background(), scope, &BatchRequest{NumChapters: 0}); err == nil {
		t.Error("expected error for zero chapters")
	}
}

func TestServiceBatchContinuesPastFailedChapter(t *testing.T) {
	// 第 2 章初稿调用失败，批次记录失败结果后继续生成后续章节
	fx := newServiceFixture(t, []string{
		"one two three", passingReview, `[]`, "第1章：启程",
		scriptFailure,
		"four five six", passingReview, `[]`, "第2章：再启程",
	})
	scope := testScope("p1")

	outcomes, err := fx.service.GenerateChapters(context.Background(), scope, &BatchRequest{
		NumChapters:  3,
		Instructions: map[string]any{"min_word_count": 2},
	})
	if err != nil {
		t.Fatalf("GenerateChapters failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes for 3-chapter batch, want 3", len(outcomes))
	}
	if outcomes[0].Status != OutcomeSuccess {
		t.Errorf("outcome 0 status = %q, want success", outcomes[0].Status)
	}
	if outcomes[1].Status != OutcomeFailed || outcomes[1].Error == "" {
		t.Errorf("outcome 1 = %+v, want failed with error", outcomes[1])
	}
	if outcomes[2].Status != OutcomeSuccess {
		t.Errorf("outcome 2 status = %q, want success", outcomes[2].Status)
	}
	// 失败章节没有落库，后续章节重新取号补位
	if outcomes[2].ChapterNumber != 2 {
		t.Errorf("outcome 2 chapter number = %d, want 2", outcomes[2].ChapterNumber)
	}
	if len(fx.chapters.chapters) != 2 {
		t.Errorf("persisted %d chapters, want 2", len(fx.chapters.chapters))
	}
}

func TestServicePersistsNewEntities(t *testing.T) {
	fx := newServiceFixture(t, []string{
		"one two three",
		passingReview,
		`["墨老"]`,
		`[{"name":"墨老","type":"deity","description":"神秘老者","backstory":"来历不明"}]`,
		"第1章：相遇",
	})
	scope := testScope("p1")

	outcomes, err := fx.service.GenerateChapters(context.Background(), scope, &BatchRequest{
		NumChapters:  1,
		Instructions: map[string]any{"min_word_count": 2},
	})
	if err != nil {
		t.Fatalf("GenerateChapters failed: %v", err)
	}
	if outcomes[0].NewCodexItemsSaved != 1 {
		t.Errorf("NewCodexItemsSaved = %d, want 1", outcomes[0].NewCodexItemsSaved)
	}
	if len(fx.codex.items) != 1 {
		t.Fatalf("persisted %d codex items, want 1", len(fx.codex.items))
	}
	item := fx.codex.items[0]
	if item.Name != "墨老" || item.Backstory != "来历不明" {
		t.Errorf("item = %+v", item)
	}
	// 未知类型归入 lore
	if item.Type != entity.CodexTypeLore {
		t.Errorf("item type = %v, want lore fallback", item.Type)
	}
}
