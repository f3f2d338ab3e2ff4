package coding

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"

	"mbs-coding-api/internal/domain/entity"
)

// Embedder 文本向量化端口
type Embedder interface {
	// EmbedQuery 编码查询文本（内部追加检索指令前缀）
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments 批量编码文档文本
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// RangeFilter 检索阶段的数值预过滤条件
type RangeFilter struct {
	Age      *float64
	Duration *float64
}

// RetrievedItem 向量检索命中
type RetrievedItem struct {
	Item       entity.CandidateItem
	Similarity float64
}

// IndexItem 待写入索引的条目
type IndexItem struct {
	Item   entity.CandidateItem
	Vector []float32
}

// VectorIndex 向量索引端口
type VectorIndex interface {
	// Search 在指定类目索引中检索 topK 个候选
	Search(ctx context.Context, categoryID string, vector []float32, topK int, filter RangeFilter) ([]RetrievedItem, error)
	// RebuildCategory 原子重建指定类目的索引：构建期间旧索引持续可查
	RebuildCategory(ctx context.Context, categoryID string, items []IndexItem) error
	// HasCategory 检查类目索引是否可用
	HasCategory(ctx context.Context, categoryID string) (bool, error)
}

// Reranker 交叉编码重排端口，返回与 documents 等长的得分序列
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// ChatModelFactory LLM 客户端工厂端口
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Cache 复杂度判定的结果缓存端口
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
