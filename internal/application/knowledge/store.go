package knowledge

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

// Store 按标识寻址的知识库
// 封装 embedding 调用与向量索引读写，对上层屏蔽具体后端（Milvus/chromem）。
type Store struct {
	index     VectorIndex
	embedder  embedding.Embedder
	batchSize int
}

// NewStore 创建知识库实例
func NewStore(index VectorIndex, embedder embedding.Embedder, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Store{
		index:     index,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Add 写入一条知识，返回生成的 embedding id
// 元数据先压平再强制注入作用域键。
func (s *Store) Add(ctx context.Context, scope Scope, content string, metadata map[string]any) (string, error) {
	if err := s.index.Ensure(ctx, scope); err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("add", "error").Inc()
		return "", err
	}

	vec, err := s.embedOne(ctx, content)
	if err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("add", "error").Inc()
		return "", err
	}

	item := &Item{
		ID:       uuid.NewString(),
		Content:  content,
		Vector:   vec,
		Metadata: WithScope(FlattenMetadata(metadata), scope),
	}
	if err := s.index.Upsert(ctx, scope, []*Item{item}); err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("add", "error").Inc()
		return "", err
	}

	metrics.KnowledgeOpsTotal.WithLabelValues("add", "success").Inc()
	logger.Debug(ctx, "知识写入", "embedding_id", item.ID, "type", item.Metadata[MetaType])
	return item.ID, nil
}

// Update 更新已有知识
// content 为 nil 表示正文不变（不重新计算向量）；metadata 为合并补丁，
// 补丁中显式 nil 的键从元数据中移除。标识未命中视为错误而非静默新建。
func (s *Store) Update(ctx context.Context, scope Scope, ident Identifier, content *string, metadata map[string]any) error {
	id, err := s.resolve(ctx, scope, ident)
	if err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("update", "error").Inc()
		return err
	}
	if id == "" {
		metrics.KnowledgeOpsTotal.WithLabelValues("update", "error").Inc()
		return errors.New(errors.CodeKnowledgeNotFound, "知识条目不存在: "+ident.String())
	}

	existing, err := s.index.Get(ctx, scope, id)
	if err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("update", "error").Inc()
		return err
	}
	if existing == nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("update", "error").Inc()
		return errors.New(errors.CodeKnowledgeNotFound, "知识条目不存在: "+id)
	}

	next := &Item{
		ID:       existing.ID,
		Content:  existing.Content,
		Vector:   existing.Vector,
		Metadata: MergeMetadata(existing.Metadata, metadata, scope),
	}
	if content != nil && *content != existing.Content {
		vec, err := s.embedOne(ctx, *content)
		if err != nil {
			metrics.KnowledgeOpsTotal.WithLabelValues("update", "error").Inc()
			return err
		}
		next.Content = *content
		next.Vector = vec
	}

	if err := s.index.Upsert(ctx, scope, []*Item{next}); err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("update", "error").Inc()
		return err
	}
	metrics.KnowledgeOpsTotal.WithLabelValues("update", "success").Inc()
	return nil
}

// Delete 删除知识条目
// 标识未命中时幂等返回 nil。
func (s *Store) Delete(ctx context.Context, scope Scope, ident Identifier) error {
	id, err := s.resolve(ctx, scope, ident)
	if err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	if id == "" {
		metrics.KnowledgeOpsTotal.WithLabelValues("delete", "success").Inc()
		return nil
	}
	if err := s.index.Delete(ctx, scope, []string{id}); err != nil {
		metrics.KnowledgeOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.KnowledgeOpsTotal.WithLabelValues("delete", "success").Inc()
	return nil
}

// SearchResult 相似检索命中
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]string
}

// SimilaritySearch 在作用域内做相似检索
// 查询向量由正文即时计算；返回结果元数据中附带相关度 score。
func (s *Store) SimilaritySearch(ctx context.Context, scope Scope, query string, topK int, filter *TypeFilter) ([]*SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := s.index.Ensure(ctx, scope); err != nil {
		return nil, err
	}

	vec, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, scope, vec, topK, filter)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit == nil || hit.Item == nil {
			continue
		}
		meta := make(map[string]string, len(hit.Item.Metadata)+1)
		for k, v := range hit.Item.Metadata {
			meta[k] = v
		}
		meta[MetaScore] = formatScore(hit.Score)
		results = append(results, &SearchResult{
			ID:       hit.Item.ID,
			Content:  hit.Item.Content,
			Score:    hit.Score,
			Metadata: meta,
		})
	}
	return results, nil
}

// ListAll 导出作用域内全部知识条目
func (s *Store) ListAll(ctx context.Context, scope Scope) ([]*Item, error) {
	if err := s.index.Ensure(ctx, scope); err != nil {
		return nil, err
	}
	return s.index.List(ctx, scope)
}

// AddBatch 批量写入，按 batchSize 分批调用 embedding 服务
// 返回与输入同序的 embedding id 列表。
func (s *Store) AddBatch(ctx context.Context, scope Scope, contents []string, metadatas []map[string]any) ([]string, error) {
	if len(contents) == 0 {
		return nil, nil
	}
	if len(metadatas) != 0 && len(metadatas) != len(contents) {
		return nil, errors.New(errors.CodeValidationFailed, "批量写入的元数据与正文数量不一致")
	}
	if err := s.index.Ensure(ctx, scope); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(contents))
	for start := 0; start < len(contents); start += s.batchSize {
		end := start + s.batchSize
		if end > len(contents) {
			end = len(contents)
		}
		batch := contents[start:end]

		vecs, err := s.embedMany(ctx, batch)
		if err != nil {
			metrics.KnowledgeOpsTotal.WithLabelValues("add", "error").Inc()
			return nil, err
		}

		items := make([]*Item, 0, len(batch))
		for i, text := range batch {
			var meta map[string]any
			if metadatas != nil {
				meta = metadatas[start+i]
			}
			item := &Item{
				ID:       uuid.NewString(),
				Content:  text,
				Vector:   vecs[i],
				Metadata: WithScope(FlattenMetadata(meta), scope),
			}
			items = append(items, item)
			ids = append(ids, item.ID)
		}
		if err := s.index.Upsert(ctx, scope, items); err != nil {
			metrics.KnowledgeOpsTotal.WithLabelValues("add", "error").Inc()
			return nil, err
		}
	}

	metrics.KnowledgeOpsTotal.WithLabelValues("add", "success").Add(float64(len(ids)))
	return ids, nil
}

// Refresh 重算作用域内所有条目的向量
// 嵌入模型升级后做全量刷新用。
func (s *Store) Refresh(ctx context.Context, scope Scope) (int, error) {
	items, err := s.ListAll(ctx, scope)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for start := 0; start < len(items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.Content
		}
		vecs, err := s.embedMany(ctx, texts)
		if err != nil {
			return refreshed, err
		}
		for i := range batch {
			batch[i].Vector = vecs[i]
		}
		if err := s.index.Upsert(ctx, scope, batch); err != nil {
			return refreshed, err
		}
		refreshed += len(batch)
	}
	logger.Info(ctx, "知识库向量刷新完成", "count", refreshed)
	return refreshed, nil
}

func (s *Store) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *Store) embedMany(ctx context.Context, texts []string) ([][]float32, error) {
	raw, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "embedding 调用失败")
	}
	if len(raw) != len(texts) {
		return nil, errors.New(errors.CodeEmbeddingFailed, "embedding 返回数量与输入不一致")
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		vec := make([]float32, len(v))
		for j, f := range v {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, nil
}
