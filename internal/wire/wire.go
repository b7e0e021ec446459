//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"storyforge-api/internal/application/generation"
	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/interfaces/http/middleware"
	"storyforge-api/internal/infrastructure/llm"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/infrastructure/persistence/redis"
	workflowport "storyforge-api/internal/workflow/port"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		VectorSet,
		GenerationSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewChapterRepository,
	postgres.NewCodexRepository,
	postgres.NewRelationshipRepository,
	postgres.NewEventRepository,
	postgres.NewLocationRepository,
	postgres.NewConnectionRepository,
	postgres.NewValidityReportRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.CodexRepository), new(*postgres.CodexRepository)),
	wire.Bind(new(repository.RelationshipRepository), new(*postgres.RelationshipRepository)),
	wire.Bind(new(repository.EventRepository), new(*postgres.EventRepository)),
	wire.Bind(new(repository.LocationRepository), new(*postgres.LocationRepository)),
	wire.Bind(new(repository.ConnectionRepository), new(*postgres.ConnectionRepository)),
	wire.Bind(new(repository.ValidityReportRepository), new(*postgres.ValidityReportRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// VectorSet 向量后端提供者集合（milvus 或 chromem，按配置二选一）
var VectorSet = wire.NewSet(
	ProvideMilvusClient,
	ProvideVectorIndex,
	ProvideEmbedder,
	ProvideKnowledgeStore,
)

// GenerationSet 生成流水线提供者集合
var GenerationSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideGuard,
	generation.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewGenerationHandler,
	handler.NewChapterHandler,
	handler.NewKnowledgeHandler,
	ProvideRouter,
)

