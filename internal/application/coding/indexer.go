package coding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"mbs-coding-api/internal/domain/entity"
	"mbs-coding-api/internal/domain/repository"
	"mbs-coding-api/pkg/errors"
	"mbs-coding-api/pkg/logger"
	"mbs-coding-api/pkg/metrics"
)

// Indexer 类目索引构建器
// 同一类目的并发构建请求通过 singleflight 合并为一次执行
type Indexer struct {
	cfg      indexerConfig
	repo     repository.CategoryRepository
	embedder Embedder
	index    VectorIndex
	group    singleflight.Group
}

type indexerConfig struct {
	BatchSize int
}

// NewIndexer 创建索引构建器
func NewIndexer(repo repository.CategoryRepository, embedder Embedder, index VectorIndex, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Indexer{
		cfg:      indexerConfig{BatchSize: batchSize},
		repo:     repo,
		embedder: embedder,
		index:    index,
	}
}

// ListCategories 列出可构建的类目
func (ix *Indexer) ListCategories(ctx context.Context) ([]string, error) {
	return ix.repo.ListCategories(ctx)
}

// BuildCategory 构建指定类目的向量索引
// 旧索引在新索引就绪前持续可查，切换是原子的
func (ix *Indexer) BuildCategory(ctx context.Context, categoryID string) (*BuildResult, error) {
	v, err, shared := ix.group.Do(categoryID, func() (interface{}, error) {
		return ix.buildCategory(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Info(ctx, "索引构建请求已合并", "category_id", categoryID)
	}
	return v.(*BuildResult), nil
}

func (ix *Indexer) buildCategory(ctx context.Context, categoryID string) (*BuildResult, error) {
	ctx, span := tracer.Start(ctx, "coding.BuildCategory")
	defer span.End()
	start := time.Now()

	rows, err := ix.repo.CategoryRows(ctx, categoryID)
	if err != nil {
		metrics.IndexBuildTotal.WithLabelValues(categoryID, "error").Inc()
		return nil, err
	}
	if len(rows) == 0 {
		metrics.IndexBuildTotal.WithLabelValues(categoryID, "error").Inc()
		return nil, errors.New(errors.CodeIndexBuildFailed,
			fmt.Sprintf("category %s has no rows to index", categoryID))
	}

	items := make([]IndexItem, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		items = append(items, IndexItem{Item: rowToCandidate(categoryID, row)})
		texts = append(texts, row.ServiceSummary)
	}

	// 分批编码文档
	for i := 0; i < len(texts); i += ix.cfg.BatchSize {
		end := i + ix.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := ix.embedder.EmbedDocuments(ctx, texts[i:end])
		if err != nil {
			metrics.IndexBuildTotal.WithLabelValues(categoryID, "error").Inc()
			return nil, errors.Wrap(err, errors.CodeEmbeddingFailed,
				fmt.Sprintf("failed to embed documents [%d:%d]", i, end))
		}
		if len(vectors) != end-i {
			metrics.IndexBuildTotal.WithLabelValues(categoryID, "error").Inc()
			return nil, errors.New(errors.CodeEmbeddingFailed,
				fmt.Sprintf("embedder returned %d vectors for %d texts", len(vectors), end-i))
		}
		for j, v := range vectors {
			items[i+j].Vector = v
		}
	}

	if err := ix.index.RebuildCategory(ctx, categoryID, items); err != nil {
		metrics.IndexBuildTotal.WithLabelValues(categoryID, "error").Inc()
		return nil, errors.Wrap(err, errors.CodeIndexBuildFailed,
			fmt.Sprintf("failed to rebuild index for category %s", categoryID))
	}

	metrics.IndexBuildTotal.WithLabelValues(categoryID, "ok").Inc()
	metrics.IndexBuildDuration.WithLabelValues(categoryID).Observe(time.Since(start).Seconds())
	metrics.IndexedItems.WithLabelValues(categoryID).Set(float64(len(items)))

	logger.Info(ctx, "索引构建完成",
		"category_id", categoryID,
		"items", len(items),
		"duration_ms", time.Since(start).Milliseconds())
	return &BuildResult{CategoryID: categoryID, Items: len(items)}, nil
}

// rowToCandidate 将数据库行转换为候选条目
func rowToCandidate(categoryID string, row repository.CategoryRow) entity.CandidateItem {
	return entity.CandidateItem{
		ItemNumber:        row.ItemNumber,
		CategoryID:        categoryID,
		ServiceSummary:    row.ServiceSummary,
		Provider:          row.Provider,
		Location:          row.Location,
		AgeRange:          entity.NumericRange{Start: row.StartAge, End: row.EndAge},
		TimeRange:         entity.NumericRange{Start: row.StartTime, End: row.EndTime},
		GenderRestriction: entity.GenderRestriction(row.GenderRestriction),
	}
}
