// Package knowledge 实现按标识寻址的向量知识库
package knowledge

import "context"

// Scope 知识库作用域；所有读写都强制落在 (user, project) 命名空间内
type Scope struct {
	UserID    string
	ProjectID string
}

// Item 向量索引中的一条内容
type Item struct {
	ID      string
	Content string
	Vector  []float32
	// Metadata 扁平化后的元数据键值对（含强制注入的 user_id/project_id）
	Metadata map[string]string
}

// TypeFilter 按 type 元数据字段的包含/排除过滤
// IncludeTypes 与 ExcludeTypes 互斥，同时给出时以 IncludeTypes 为准。
type TypeFilter struct {
	IncludeTypes []string
	ExcludeTypes []string
}

// Hit 相似检索命中结果
type Hit struct {
	Item  *Item
	Score float64
}

// VectorIndex 定义应用层对向量存储的最小依赖（port）
// 由基础设施层提供具体实现（Milvus 或嵌入式 chromem）。
type VectorIndex interface {
	// Ensure 确保作用域对应的集合与索引可用（不存在则创建）
	Ensure(ctx context.Context, scope Scope) error

	// Upsert 按 ID 写入或覆盖
	Upsert(ctx context.Context, scope Scope, items []*Item) error

	// Get 按 ID 读取；不存在返回 (nil, nil)
	Get(ctx context.Context, scope Scope, id string) (*Item, error)

	// Delete 按 ID 删除；ID 不存在时为幂等空操作
	Delete(ctx context.Context, scope Scope, ids []string) error

	// Search 相似检索，按相关度降序返回
	Search(ctx context.Context, scope Scope, vector []float32, topK int, filter *TypeFilter) ([]*Hit, error)

	// List 作用域内全量导出
	List(ctx context.Context, scope Scope) ([]*Item, error)

	// Close 释放底层资源
	Close() error
}
