// Package embedding 提供文本向量化客户端
package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"mbs-coding-api/internal/application/coding"
	"mbs-coding-api/internal/config"
)

// bge 检索模型要求查询侧追加指令前缀，文档侧不加
const queryInstruction = "Represent this sentence for searching relevant passages: "

// Client 向量化客户端，封装 Eino Embedder 并处理查询前缀与分批
type Client struct {
	cfg *config.EmbeddingConfig

	mu       sync.Mutex
	embedder embedding.Embedder
}

var _ coding.Embedder = (*Client)(nil)

// NewClient 创建向量化客户端，底层 Embedder 首次调用时延迟初始化
func NewClient(cfg *config.EmbeddingConfig) *Client {
	return &Client{cfg: cfg}
}

// EmbedQuery 编码查询文本
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{queryInstruction + text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments 批量编码文档文本
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batchSize := c.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	embedder, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", len(texts), len(raw))
	}

	vectors := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding backend returned empty vector at position %d", i)
		}
		if c.cfg.Dimension > 0 && len(v) != c.cfg.Dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: want %d, got %d", c.cfg.Dimension, len(v))
		}
		vec := make([]float32, len(v))
		for j, f := range v {
			vec[j] = float32(f)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// get 延迟初始化底层 Embedder，失败不缓存以便下次重试
func (c *Client) get(ctx context.Context) (embedding.Embedder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.embedder != nil {
		return c.embedder, nil
	}

	embedder, err := NewEinoEmbedder(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.embedder = embedder
	return embedder, nil
}
