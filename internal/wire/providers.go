// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"time"

	"github.com/google/wire"

	"mbs-coding-api/internal/application/coding"
	"mbs-coding-api/internal/config"
	"mbs-coding-api/internal/domain/repository"
	"mbs-coding-api/internal/infrastructure/embedding"
	"mbs-coding-api/internal/infrastructure/llm"
	"mbs-coding-api/internal/infrastructure/persistence/milvus"
	"mbs-coding-api/internal/infrastructure/persistence/redis"
	"mbs-coding-api/internal/infrastructure/persistence/sqlite"
	"mbs-coding-api/internal/infrastructure/reranker"
	"mbs-coding-api/internal/interfaces/http/handler"
	"mbs-coding-api/internal/interfaces/http/router"
)

// DataSet 数据层提供者集合
var DataSet = wire.NewSet(
	ProvideCategoryRepo,
	ProvideRedisClient,
	redis.NewCache,
	ProvideRateLimiter,
	ProvideMilvusClient,
	milvus.NewItemRepository,
	wire.Bind(new(repository.CategoryRepository), new(*sqlite.CategoryRepo)),
	wire.Bind(new(coding.VectorIndex), new(*milvus.ItemRepository)),
	wire.Bind(new(coding.Cache), new(*redis.Cache)),
)

// PipelineSet 流水线提供者集合
var PipelineSet = wire.NewSet(
	ProvideEmbedder,
	ProvideReranker,
	llm.NewEinoFactory,
	coding.NewEngine,
	ProvideIndexer,
	wire.Bind(new(coding.Embedder), new(*embedding.Client)),
	wire.Bind(new(coding.Reranker), new(*reranker.Client)),
	wire.Bind(new(coding.ChatModelFactory), new(*llm.EinoFactory)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewCodingHandler,
	handler.NewIndexHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// ProvideCategoryRepo 提供 SQLite 类目仓储
func ProvideCategoryRepo(cfg *config.Config) (*sqlite.CategoryRepo, func(), error) {
	repo, err := sqlite.NewCategoryRepo(cfg.Database.SQLite)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = repo.Close()
	}
	return repo, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiter 提供滑动窗口限流器
func ProvideRateLimiter(cfg *config.Config, client *redis.Client) *redis.RateLimiter {
	limit := cfg.Security.RateLimit.Burst
	if limit <= 0 {
		limit = cfg.Security.RateLimit.RequestsPerSecond
	}
	if limit <= 0 {
		limit = 100
	}
	return redis.NewRateLimiter(client, time.Second, int64(limit))
}

// ProvideMilvusClient 提供 Milvus 客户端
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideEmbedder 提供向量化客户端
func ProvideEmbedder(cfg *config.Config) *embedding.Client {
	return embedding.NewClient(&cfg.Embedding)
}

// ProvideReranker 提供重排客户端
func ProvideReranker(cfg *config.Config) *reranker.Client {
	return reranker.NewClient(&cfg.Reranker)
}

// ProvideIndexer 提供索引构建器
func ProvideIndexer(cfg *config.Config, repo repository.CategoryRepository, embedder coding.Embedder, index coding.VectorIndex) *coding.Indexer {
	return coding.NewIndexer(repo, embedder, index, cfg.Embedding.BatchSize)
}
