// Package chromem 提供嵌入式向量索引实现
// 单机部署或本地开发时替代 Milvus，数据落在本地文件。
package chromem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/config"
	"storyforge-api/pkg/metrics"
)

// Index knowledge.VectorIndex 的 chromem-go 实现
// 每个 (user, project) 一个 collection，与 Milvus 实现保持同样的切分方式。
type Index struct {
	db       *chromemgo.DB
	registry *idRegistry

	mu          sync.Mutex
	collections map[string]*chromemgo.Collection
}

// NewIndex 创建嵌入式向量索引
// Path 为空时使用纯内存库（主要给测试用）。
func NewIndex(cfg *config.ChromemConfig) (*Index, error) {
	var db *chromemgo.DB
	var err error
	dir := ""
	if cfg != nil && strings.TrimSpace(cfg.Path) != "" {
		dir = cfg.Path
		db, err = chromemgo.NewPersistentDB(dir, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
	} else {
		db = chromemgo.NewDB()
	}
	registry, err := newIDRegistry(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load id registry: %w", err)
	}
	return &Index{
		db:          db,
		registry:    registry,
		collections: make(map[string]*chromemgo.Collection),
	}, nil
}

var _ knowledge.VectorIndex = (*Index)(nil)

// collection 取（或建）作用域对应的 collection
// 写入的文档都自带向量，embedding 函数只是兜底，不应被调用到。
func (x *Index) collection(scope knowledge.Scope) (*chromemgo.Collection, error) {
	name := knowledge.CollectionName(scope)

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, ok := x.collections[name]; ok {
		return col, nil
	}

	col, err := x.db.GetOrCreateCollection(name, nil, noEmbedFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	x.collections[name] = col
	return col, nil
}

func noEmbedFunc(_ context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding func should not be reached, got text of %d bytes", len(text))
}

// Ensure 确保作用域集合可用
func (x *Index) Ensure(_ context.Context, scope knowledge.Scope) error {
	_, err := x.collection(scope)
	return err
}

// Upsert 按 ID 写入或覆盖
// chromem 的 AddDocuments 对重复 ID 即为覆盖写。
func (x *Index) Upsert(ctx context.Context, scope knowledge.Scope, items []*knowledge.Item) error {
	if len(items) == 0 {
		return nil
	}
	col, err := x.collection(scope)
	if err != nil {
		return err
	}

	docs := make([]chromemgo.Document, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		docs = append(docs, chromemgo.Document{
			ID:        item.ID,
			Content:   item.Content,
			Embedding: item.Vector,
			Metadata:  item.Metadata,
		})
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return x.registry.add(knowledge.CollectionName(scope), ids...)
}

// Get 按 ID 读取；不存在返回 (nil, nil)
func (x *Index) Get(ctx context.Context, scope knowledge.Scope, id string) (*knowledge.Item, error) {
	col, err := x.collection(scope)
	if err != nil {
		return nil, err
	}
	doc, err := col.GetByID(ctx, id)
	if err != nil {
		// chromem 对未命中只有 error 一种信号，这里统一翻译成 (nil, nil)
		return nil, nil
	}
	return &knowledge.Item{
		ID:       doc.ID,
		Content:  doc.Content,
		Vector:   doc.Embedding,
		Metadata: doc.Metadata,
	}, nil
}

// Delete 按 ID 删除；ID 不存在时为幂等空操作
func (x *Index) Delete(ctx context.Context, scope knowledge.Scope, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := x.collection(scope)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		// 空集合/未命中在 chromem 里会报错，删除语义要求幂等
		if col.Count() != 0 {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
	}
	return x.registry.remove(knowledge.CollectionName(scope), ids...)
}

// Search 相似检索，按相关度降序返回
// chromem 的 where 只支持单键等值，这里放开召回后在进程内做类型过滤。
func (x *Index) Search(ctx context.Context, scope knowledge.Scope, vector []float32, topK int, filter *knowledge.TypeFilter) ([]*knowledge.Hit, error) {
	col, err := x.collection(scope)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	defer func() {
		metrics.KnowledgeSearchDuration.WithLabelValues("chromem").Observe(time.Since(started).Seconds())
	}()

	count := col.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}

	n := topK
	if filter != nil && (len(filter.IncludeTypes) > 0 || len(filter.ExcludeTypes) > 0) {
		n = count
	}
	if n > count {
		n = count
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]*knowledge.Hit, 0, topK)
	for _, r := range results {
		if !matchType(r.Metadata, filter) {
			continue
		}
		hits = append(hits, &knowledge.Hit{
			Item: &knowledge.Item{
				ID:       r.ID,
				Content:  r.Content,
				Vector:   r.Embedding,
				Metadata: r.Metadata,
			},
			Score: float64(r.Similarity),
		})
		if len(hits) == topK {
			break
		}
	}
	return hits, nil
}

// List 作用域内全量导出
// chromem 没有导出 API，按登记表逐 ID 读取
func (x *Index) List(ctx context.Context, scope knowledge.Scope) ([]*knowledge.Item, error) {
	col, err := x.collection(scope)
	if err != nil {
		return nil, err
	}

	ids := x.registry.list(knowledge.CollectionName(scope))
	items := make([]*knowledge.Item, 0, len(ids))
	for _, id := range ids {
		doc, err := col.GetByID(ctx, id)
		if err != nil {
			// 登记表可能比库超前（写入失败的残留），跳过即可
			continue
		}
		items = append(items, &knowledge.Item{
			ID:       doc.ID,
			Content:  doc.Content,
			Vector:   doc.Embedding,
			Metadata: doc.Metadata,
		})
	}
	return items, nil
}

// Close 嵌入式库无外部连接可关
func (x *Index) Close() error {
	return nil
}

func matchType(meta map[string]string, filter *knowledge.TypeFilter) bool {
	if filter == nil {
		return true
	}
	t := meta[knowledge.MetaType]
	if len(filter.IncludeTypes) > 0 {
		for _, want := range filter.IncludeTypes {
			if t == strings.TrimSpace(want) {
				return true
			}
		}
		return false
	}
	for _, skip := range filter.ExcludeTypes {
		if t == strings.TrimSpace(skip) {
			return false
		}
	}
	return true
}
