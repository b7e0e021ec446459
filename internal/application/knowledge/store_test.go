package knowledge

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"storyforge-api/pkg/errors"
)

// fakeIndex 内存版向量索引，按集合名隔离作用域
type fakeIndex struct {
	collections map[string]map[string]*Item
	order       map[string][]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		collections: make(map[string]map[string]*Item),
		order:       make(map[string][]string),
	}
}

func (f *fakeIndex) Ensure(ctx context.Context, scope Scope) error {
	name := CollectionName(scope)
	if _, ok := f.collections[name]; !ok {
		f.collections[name] = make(map[string]*Item)
	}
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, scope Scope, items []*Item) error {
	name := CollectionName(scope)
	if f.collections[name] == nil {
		f.collections[name] = make(map[string]*Item)
	}
	for _, item := range items {
		if _, exists := f.collections[name][item.ID]; !exists {
			f.order[name] = append(f.order[name], item.ID)
		}
		f.collections[name][item.ID] = item
	}
	return nil
}

func (f *fakeIndex) Get(ctx context.Context, scope Scope, id string) (*Item, error) {
	return f.collections[CollectionName(scope)][id], nil
}

func (f *fakeIndex) Delete(ctx context.Context, scope Scope, ids []string) error {
	name := CollectionName(scope)
	for _, id := range ids {
		delete(f.collections[name], id)
	}
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, scope Scope, vector []float32, topK int, filter *TypeFilter) ([]*Hit, error) {
	items, err := f.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	var hits []*Hit
	for i, item := range items {
		if filter != nil && !matchesFilter(item, filter) {
			continue
		}
		if len(hits) >= topK {
			break
		}
		hits = append(hits, &Hit{Item: item, Score: 1.0 - float64(i)*0.1})
	}
	return hits, nil
}

func matchesFilter(item *Item, filter *TypeFilter) bool {
	typ := item.Metadata[MetaType]
	if len(filter.IncludeTypes) > 0 {
		for _, t := range filter.IncludeTypes {
			if t == typ {
				return true
			}
		}
		return false
	}
	for _, t := range filter.ExcludeTypes {
		if t == typ {
			return false
		}
	}
	return true
}

func (f *fakeIndex) List(ctx context.Context, scope Scope) ([]*Item, error) {
	name := CollectionName(scope)
	items := make([]*Item, 0, len(f.collections[name]))
	for _, id := range f.order[name] {
		if item, ok := f.collections[name][id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeIndex) Close() error { return nil }

// fakeEmbedder 记录调用次数的确定性 embedder
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text)), 1}
	}
	return out, nil
}

func newTestStore() (*Store, *fakeIndex, *fakeEmbedder) {
	idx := newFakeIndex()
	emb := &fakeEmbedder{}
	return NewStore(idx, emb, 2), idx, emb
}

func TestStoreAddInjectsScope(t *testing.T) {
	store, idx, _ := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	id, err := store.Add(ctx, scope, "少年剑客林远", map[string]any{
		"type":  "character",
		"stats": map[string]any{"strength": 10},
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	item, err := idx.Get(ctx, scope, id)
	if err != nil || item == nil {
		t.Fatalf("stored item not found: %v", err)
	}
	if item.Metadata[MetaUserID] != "u1" || item.Metadata[MetaProjectID] != "p1" {
		t.Errorf("scope keys missing: %v", item.Metadata)
	}
	if item.Metadata["stats_strength"] != "10" {
		t.Errorf("nested metadata not flattened: %v", item.Metadata)
	}
	if len(item.Vector) == 0 {
		t.Error("item has no vector")
	}
}

func TestStoreAddBatch(t *testing.T) {
	store, idx, emb := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	ids, err := store.AddBatch(ctx, scope,
		[]string{"一", "二", "三"},
		[]map[string]any{{"type": "a"}, {"type": "b"}, {"type": "c"}},
	)
	if err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	// batchSize=2，三条内容分两批调用 embedding
	if emb.calls != 2 {
		t.Errorf("embedder called %d times, want 2", emb.calls)
	}
	// 返回的 id 与输入同序
	for i, id := range ids {
		item, _ := idx.Get(ctx, scope, id)
		if item == nil {
			t.Fatalf("item %d not stored", i)
		}
		if item.Metadata[MetaType] != string(rune('a'+i)) {
			t.Errorf("ids out of order: item %d has type %q", i, item.Metadata[MetaType])
		}
	}
}

func TestStoreAddBatchMetadataMismatch(t *testing.T) {
	store, _, _ := newTestStore()
	_, err := store.AddBatch(context.Background(), Scope{UserID: "u1", ProjectID: "p1"},
		[]string{"一", "二"}, []map[string]any{{"type": "a"}})
	if err == nil {
		t.Fatal("expected error for mismatched metadata count")
	}
	if errors.AsAppError(err).Code != errors.CodeValidationFailed {
		t.Errorf("error code = %v, want CodeValidationFailed", errors.AsAppError(err).Code)
	}
}

func TestStoreUpdateMetadataOnly(t *testing.T) {
	store, idx, emb := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	id, err := store.Add(ctx, scope, "原始正文", map[string]any{"mood": "平静"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	callsAfterAdd := emb.calls

	if err := store.Update(ctx, scope, ByID(id), nil, map[string]any{"mood": "愤怒"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if emb.calls != callsAfterAdd {
		t.Error("metadata-only update must not re-embed")
	}

	item, _ := idx.Get(ctx, scope, id)
	if item.Metadata["mood"] != "愤怒" {
		t.Errorf("mood = %q, want 愤怒", item.Metadata["mood"])
	}
	if item.Content != "原始正文" {
		t.Errorf("content changed unexpectedly: %q", item.Content)
	}
}

func TestStoreUpdateContentReembeds(t *testing.T) {
	store, idx, emb := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	id, err := store.Add(ctx, scope, "旧正文", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	callsAfterAdd := emb.calls

	next := "新的更长的正文"
	if err := store.Update(ctx, scope, ByID(id), &next, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if emb.calls != callsAfterAdd+1 {
		t.Errorf("embedder called %d times after update, want %d", emb.calls, callsAfterAdd+1)
	}
	item, _ := idx.Get(ctx, scope, id)
	if item.Content != next {
		t.Errorf("content = %q, want %q", item.Content, next)
	}
}

func TestStoreUpdateSameContentSkipsReembed(t *testing.T) {
	store, _, emb := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	id, err := store.Add(ctx, scope, "正文", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	callsAfterAdd := emb.calls

	same := "正文"
	if err := store.Update(ctx, scope, ByID(id), &same, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if emb.calls != callsAfterAdd {
		t.Error("identical content must not trigger re-embedding")
	}
}

func TestStoreUpdateMissingItem(t *testing.T) {
	store, _, _ := newTestStore()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	err := store.Update(context.Background(), scope, ByID("no-such-id"), nil, map[string]any{"k": "v"})
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	if errors.AsAppError(err).Code != errors.CodeKnowledgeNotFound {
		t.Errorf("error code = %v, want CodeKnowledgeNotFound", errors.AsAppError(err).Code)
	}
}

func TestStoreUpdateByOwner(t *testing.T) {
	store, idx, _ := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	if _, err := store.Add(ctx, scope, "角色描述", map[string]any{
		MetaItemID: "item-1",
		MetaType:   "character",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := store.Add(ctx, scope, "角色背景故事", map[string]any{
		MetaItemID: "item-1",
		MetaType:   "backstory",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.Update(ctx, scope, ByOwner("item-1", "backstory"), nil, map[string]any{"revised": "true"}); err != nil {
		t.Fatalf("Update by owner failed: %v", err)
	}

	items, _ := idx.List(ctx, scope)
	for _, item := range items {
		revised := item.Metadata["revised"] == "true"
		if item.Metadata[MetaType] == "backstory" && !revised {
			t.Error("backstory entry not updated")
		}
		if item.Metadata[MetaType] == "character" && revised {
			t.Error("wrong entry updated: type filter ignored")
		}
	}
}

func TestStoreDeleteIdempotent(t *testing.T) {
	store, idx, _ := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	id, err := store.Add(ctx, scope, "待删除", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Delete(ctx, scope, ByID(id)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if item, _ := idx.Get(ctx, scope, id); item != nil {
		t.Error("item still present after delete")
	}
	// 未命中的 ByOwner 标识幂等返回 nil
	if err := store.Delete(ctx, scope, ByOwner("ghost", "character")); err != nil {
		t.Errorf("delete of missing identifier should be a no-op, got %v", err)
	}
}

func TestStoreSimilaritySearch(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	for _, c := range []struct{ content, typ string }{
		{"剑客林远", "character"},
		{"青云城", "location"},
		{"比武大会", "event"},
	} {
		if _, err := store.Add(ctx, scope, c.content, map[string]any{MetaType: c.typ}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	results, err := store.SimilaritySearch(ctx, scope, "剑客", 10, nil)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if _, ok := r.Metadata[MetaScore]; !ok {
			t.Errorf("result %s missing score metadata", r.ID)
		}
	}

	filtered, err := store.SimilaritySearch(ctx, scope, "剑客", 10, &TypeFilter{IncludeTypes: []string{"character"}})
	if err != nil {
		t.Fatalf("filtered search failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Metadata[MetaType] != "character" {
		t.Errorf("type filter not applied: %d results", len(filtered))
	}
}

func TestStoreSimilaritySearchZeroTopK(t *testing.T) {
	store, _, emb := newTestStore()
	results, err := store.SimilaritySearch(context.Background(), Scope{UserID: "u1", ProjectID: "p1"}, "查询", 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("topK=0 returned %d results, want nil", len(results))
	}
	if emb.calls != 0 {
		t.Error("topK=0 should not call the embedder")
	}
}

func TestStoreRefresh(t *testing.T) {
	store, _, emb := newTestStore()
	ctx := context.Background()
	scope := Scope{UserID: "u1", ProjectID: "p1"}

	for _, content := range []string{"一", "二", "三"} {
		if _, err := store.Add(ctx, scope, content, nil); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	callsBefore := emb.calls

	count, err := store.Refresh(ctx, scope)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if count != 3 {
		t.Errorf("refreshed %d items, want 3", count)
	}
	// batchSize=2，三条分两批
	if emb.calls != callsBefore+2 {
		t.Errorf("embedder called %d extra times, want 2", emb.calls-callsBefore)
	}
}

func TestStoreScopeIsolation(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()
	scopeA := Scope{UserID: "u1", ProjectID: "p1"}
	scopeB := Scope{UserID: "u2", ProjectID: "p2"}

	if _, err := store.Add(ctx, scopeA, "甲的知识", nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	items, err := store.ListAll(ctx, scopeB)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("scope B sees %d items from scope A, want 0", len(items))
	}
}
