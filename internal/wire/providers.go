// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	einoembedding "github.com/cloudwego/eino/components/embedding"

	"storyforge-api/internal/application/generation"
	"storyforge-api/internal/application/knowledge"
	"storyforge-api/internal/config"
	infraembedding "storyforge-api/internal/infrastructure/embedding"
	"storyforge-api/internal/infrastructure/persistence/chromem"
	"storyforge-api/internal/infrastructure/persistence/milvus"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/interfaces/http/middleware"
	"storyforge-api/internal/interfaces/http/router"
)

// App 应用依赖容器
type App struct {
	Router *router.Router
	Guard  *generation.Guard
	Store  *knowledge.Store
}

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	ProjectRepo *postgres.ProjectRepository
	ChapterRepo *postgres.ChapterRepository
	CodexRepo   *postgres.CodexRepository
}

// VectorBackendMilvus / VectorBackendChromem 支持的向量后端
const (
	VectorBackendMilvus  = "milvus"
	VectorBackendChromem = "chromem"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 提供 Milvus 客户端
// 选择 chromem 后端时返回 nil，健康检查与向量索引都走嵌入式库。
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if cfg.Vector.Backend != VectorBackendMilvus {
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideVectorIndex 按配置选择向量索引实现
func ProvideVectorIndex(cfg *config.Config, milvusClient *milvus.Client) (knowledge.VectorIndex, func(), error) {
	switch cfg.Vector.Backend {
	case VectorBackendMilvus:
		if milvusClient == nil {
			return nil, nil, fmt.Errorf("milvus backend selected but client not available")
		}
		return milvus.NewIndex(milvusClient, cfg.Embedding.Dimension), func() {}, nil
	case VectorBackendChromem, "":
		index, err := chromem.NewIndex(&cfg.Vector.Chromem)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			_ = index.Close()
		}
		return index, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %s", cfg.Vector.Backend)
	}
}

// ProvideEmbedder 提供 Embedding 客户端
func ProvideEmbedder(ctx context.Context, cfg *config.Config) (einoembedding.Embedder, error) {
	return infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
}

// ProvideKnowledgeStore 提供知识库服务
func ProvideKnowledgeStore(index knowledge.VectorIndex, embedder einoembedding.Embedder, cfg *config.Config) *knowledge.Store {
	return knowledge.NewStore(index, embedder, cfg.Embedding.BatchSize)
}

// ProvideGuard 提供生成守卫
func ProvideGuard(cfg *config.Config) (*generation.Guard, func()) {
	guard := generation.NewGuard(cfg.Generation.ManagerIdleTTL, cfg.Generation.ManagerSweepInterval)
	cleanup := func() {
		guard.Close()
	}
	return guard, cleanup
}

// ProvideRouter 构建路由器并注册全部路由
func ProvideRouter(
	cfg *config.Config,
	limiter middleware.RateLimiter,
	healthHandler *handler.HealthHandler,
	generationHandler *handler.GenerationHandler,
	chapterHandler *handler.ChapterHandler,
	knowledgeHandler *handler.KnowledgeHandler,
) *router.Router {
	r := router.New(cfg, limiter)
	r.RegisterRoutes(healthHandler, generationHandler, chapterHandler, knowledgeHandler)
	return r
}
