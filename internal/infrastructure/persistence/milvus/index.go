package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyforge-api/internal/application/knowledge"
	"storyforge-api/pkg/metrics"
)

// 集合字段
const (
	fieldID       = "id"
	fieldVector   = "vector"
	fieldItemType = "item_type"
	fieldContent  = "content"
	fieldMetadata = "metadata_json"
)

// Index knowledge.VectorIndex 的 Milvus 实现
// 每个 (user, project) 一个集合；type 元数据冗余成标量列供过滤表达式使用，
// 其余元数据整体存 JSON。
type Index struct {
	client    *Client
	dimension int

	mu      sync.Mutex
	ensured map[string]struct{}
}

// NewIndex 创建 Milvus 向量索引
func NewIndex(client *Client, dimension int) *Index {
	return &Index{
		client:    client,
		dimension: dimension,
		ensured:   make(map[string]struct{}),
	}
}

var _ knowledge.VectorIndex = (*Index)(nil)

// Ensure 确保作用域集合、索引与加载状态可用
// 每个进程对同一集合只走一次完整检查。不做 drop 等破坏性操作。
func (x *Index) Ensure(ctx context.Context, scope knowledge.Scope) error {
	collName := x.client.CollectionName(scope)

	x.mu.Lock()
	if _, ok := x.ensured[collName]; ok {
		x.mu.Unlock()
		return nil
	}
	x.mu.Unlock()

	ctx, span := tracer.Start(ctx, "milvus.Ensure",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	exists, err := x.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if err := x.client.milvus.CreateCollection(ctx, x.schema(collName), milvusentity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}
		idx, err := milvusentity.NewIndexHNSW(
			milvusentity.COSINE,
			x.client.config.HNSWM,
			x.client.config.HNSWEfConstruction,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := x.client.milvus.CreateIndex(ctx, collName, fieldVector, idx, false); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if err := x.client.LoadCollection(ctx, collName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}

	x.mu.Lock()
	x.ensured[collName] = struct{}{}
	x.mu.Unlock()
	return nil
}

func (x *Index) schema(collName string) *milvusentity.Schema {
	return &milvusentity.Schema{
		CollectionName: collName,
		Description:    "Project knowledge items for semantic retrieval",
		Fields: []*milvusentity.Field{
			{
				Name:       fieldID,
				DataType:   milvusentity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       fieldVector,
				DataType:   milvusentity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", x.dimension)},
			},
			{
				Name:       fieldItemType,
				DataType:   milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "32"},
			},
			{
				Name:       fieldContent,
				DataType:   milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       fieldMetadata,
				DataType:   milvusentity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
		},
	}
}

// Upsert 按 ID 写入或覆盖
// Milvus 的主键覆盖写用先删后插实现，只依赖基础 API。
func (x *Index) Upsert(ctx context.Context, scope knowledge.Scope, items []*knowledge.Item) error {
	if len(items) == 0 {
		return nil
	}
	collName := x.client.CollectionName(scope)
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int("count", len(items)),
		))
	defer span.End()

	ids := make([]string, len(items))
	vectors := make([][]float32, len(items))
	types := make([]string, len(items))
	contents := make([]string, len(items))
	metadatas := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
		vectors[i] = item.Vector
		types[i] = item.Metadata[knowledge.MetaType]
		contents[i] = item.Content
		raw, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadatas[i] = string(raw)
	}

	if err := x.client.milvus.Delete(ctx, collName, "", idFilter(ids)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete before upsert: %w", err)
	}

	_, err := x.client.milvus.Insert(ctx, collName, "",
		milvusentity.NewColumnVarChar(fieldID, ids),
		milvusentity.NewColumnFloatVector(fieldVector, x.dimension, vectors),
		milvusentity.NewColumnVarChar(fieldItemType, types),
		milvusentity.NewColumnVarChar(fieldContent, contents),
		milvusentity.NewColumnVarChar(fieldMetadata, metadatas),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert items: %w", err)
	}
	return nil
}

// Get 按 ID 读取；不存在返回 (nil, nil)
func (x *Index) Get(ctx context.Context, scope knowledge.Scope, id string) (*knowledge.Item, error) {
	collName := x.client.CollectionName(scope)
	ctx, span := tracer.Start(ctx, "milvus.Get",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	rs, err := x.client.milvus.Query(ctx, collName, nil,
		fmt.Sprintf(`%s == "%s"`, fieldID, escape(id)),
		[]string{fieldID, fieldVector, fieldContent, fieldMetadata},
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	items, err := parseResultSet(rs)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Delete 按 ID 删除；ID 不存在时为幂等空操作
func (x *Index) Delete(ctx context.Context, scope knowledge.Scope, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	collName := x.client.CollectionName(scope)
	ctx, span := tracer.Start(ctx, "milvus.Delete",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int("count", len(ids)),
		))
	defer span.End()

	if err := x.client.milvus.Delete(ctx, collName, "", idFilter(ids)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete items: %w", err)
	}
	return nil
}

// Search 相似检索，按相关度降序返回
func (x *Index) Search(ctx context.Context, scope knowledge.Scope, vector []float32, topK int, filter *knowledge.TypeFilter) ([]*knowledge.Hit, error) {
	collName := x.client.CollectionName(scope)
	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int("top_k", topK),
		))
	defer span.End()
	started := time.Now()
	defer func() {
		metrics.KnowledgeSearchDuration.WithLabelValues("milvus").Observe(time.Since(started).Seconds())
	}()

	sp, err := milvusentity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := x.client.milvus.Search(ctx,
		collName,
		nil,
		typeFilterExpr(filter),
		[]string{fieldID, fieldContent, fieldMetadata},
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		fieldVector,
		milvusentity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []*knowledge.Hit
	for _, result := range results {
		idCol, _ := result.Fields.GetColumn(fieldID).(*milvusentity.ColumnVarChar)
		contentCol, _ := result.Fields.GetColumn(fieldContent).(*milvusentity.ColumnVarChar)
		metaCol, _ := result.Fields.GetColumn(fieldMetadata).(*milvusentity.ColumnVarChar)
		for i := 0; i < result.ResultCount; i++ {
			item := &knowledge.Item{}
			if idCol != nil {
				item.ID = idCol.Data()[i]
			}
			if contentCol != nil {
				item.Content = contentCol.Data()[i]
			}
			if metaCol != nil {
				item.Metadata = parseMetadata(metaCol.Data()[i])
			}
			hits = append(hits, &knowledge.Hit{
				Item:  item,
				Score: float64(result.Scores[i]),
			})
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// List 作用域内全量导出
func (x *Index) List(ctx context.Context, scope knowledge.Scope) ([]*knowledge.Item, error) {
	collName := x.client.CollectionName(scope)
	ctx, span := tracer.Start(ctx, "milvus.List",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	rs, err := x.client.milvus.Query(ctx, collName, nil,
		fmt.Sprintf(`%s != ""`, fieldID),
		[]string{fieldID, fieldVector, fieldContent, fieldMetadata},
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return parseResultSet(rs)
}

// Close 关闭底层连接
func (x *Index) Close() error {
	return x.client.Close()
}

// idFilter 用 OR 链构建 ID 过滤表达式，避免依赖 IN 语法差异
func idFilter(ids []string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s == "%s"`, fieldID, escape(id)))
	}
	return strings.Join(parts, " || ")
}

// typeFilterExpr 把类型过滤翻译成 Milvus 标量表达式
// 包含与排除同时给出时以包含为准。
func typeFilterExpr(filter *knowledge.TypeFilter) string {
	if filter == nil {
		return ""
	}
	if len(filter.IncludeTypes) > 0 {
		var parts []string
		for _, t := range filter.IncludeTypes {
			if t = strings.TrimSpace(t); t != "" {
				parts = append(parts, fmt.Sprintf(`%s == "%s"`, fieldItemType, escape(t)))
			}
		}
		if len(parts) > 0 {
			return "(" + strings.Join(parts, " || ") + ")"
		}
		return ""
	}
	var parts []string
	for _, t := range filter.ExcludeTypes {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, fmt.Sprintf(`%s != "%s"`, fieldItemType, escape(t)))
		}
	}
	return strings.Join(parts, " && ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func parseMetadata(raw string) map[string]string {
	meta := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(raw), &meta)
	return meta
}

func parseResultSet(rs milvusclient.ResultSet) ([]*knowledge.Item, error) {
	idCol, _ := rs.GetColumn(fieldID).(*milvusentity.ColumnVarChar)
	if idCol == nil {
		return nil, nil
	}
	contentCol, _ := rs.GetColumn(fieldContent).(*milvusentity.ColumnVarChar)
	metaCol, _ := rs.GetColumn(fieldMetadata).(*milvusentity.ColumnVarChar)
	vecCol, _ := rs.GetColumn(fieldVector).(*milvusentity.ColumnFloatVector)

	items := make([]*knowledge.Item, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		item := &knowledge.Item{ID: idCol.Data()[i]}
		if contentCol != nil && i < contentCol.Len() {
			item.Content = contentCol.Data()[i]
		}
		if metaCol != nil && i < metaCol.Len() {
			item.Metadata = parseMetadata(metaCol.Data()[i])
		}
		if vecCol != nil && i < len(vecCol.Data()) {
			item.Vector = vecCol.Data()[i]
		}
		items = append(items, item)
	}
	return items, nil
}
