// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mbs-coding-api/internal/application/coding"
	domain "mbs-coding-api/internal/domain/entity"
	"mbs-coding-api/pkg/logger"
	"mbs-coding-api/pkg/metrics"
)

const insertBatchSize = 512

// ItemRepository 计费条目向量仓储
// 每个类目一个集合别名，重建通过别名切换原子生效
type ItemRepository struct {
	client *Client
}

var _ coding.VectorIndex = (*ItemRepository)(nil)

// NewItemRepository 创建条目向量仓储
func NewItemRepository(client *Client) *ItemRepository {
	return &ItemRepository{client: client}
}

// aliasFor 类目的集合别名，查询方始终通过别名访问
func (r *ItemRepository) aliasFor(categoryID string) string {
	return r.client.CollectionName("cat_" + categoryID)
}

// HasCategory 检查类目索引是否可用
func (r *ItemRepository) HasCategory(ctx context.Context, categoryID string) (bool, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return false, fmt.Errorf("milvus client not configured")
	}
	return r.client.HasCollection(ctx, r.aliasFor(categoryID))
}

// Search 在类目索引中检索候选条目
func (r *ItemRepository) Search(ctx context.Context, categoryID string, vector []float32, topK int, filter coding.RangeFilter) ([]coding.RetrievedItem, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	alias := r.aliasFor(categoryID)
	ctx, span := tracer.Start(ctx, "milvus.SearchItems",
		trace.WithAttributes(
			attribute.String("collection", alias),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	// 数值范围预过滤：闭区间包含判断
	var conditions []string
	if filter.Age != nil {
		conditions = append(conditions,
			fmt.Sprintf("start_age <= %g && end_age >= %g", *filter.Age, *filter.Age))
	}
	if filter.Duration != nil {
		conditions = append(conditions,
			fmt.Sprintf("start_time <= %g && end_time >= %g", *filter.Duration, *filter.Duration))
	}
	expr := strings.Join(conditions, " && ")

	ef := r.client.config.SearchEf
	if ef <= 0 {
		ef = 64
	}
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	start := time.Now()
	results, err := r.client.milvus.Search(ctx,
		alias,
		nil,
		expr,
		itemOutputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.MetricType(r.client.config.MetricType),
		topK,
		sp,
	)
	metrics.MilvusSearchDuration.WithLabelValues(alias).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(alias, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search collection %s: %w", alias, err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(alias, "ok").Inc()

	var retrieved []coding.RetrievedItem
	for _, result := range results {
		varchar := func(name string) []string {
			if col, ok := result.Fields.GetColumn(name).(*entity.ColumnVarChar); ok {
				return col.Data()
			}
			return nil
		}
		double := func(name string) []float64 {
			if col, ok := result.Fields.GetColumn(name).(*entity.ColumnDouble); ok {
				return col.Data()
			}
			return nil
		}
		itemNumbers := varchar("item_number")
		categoryIDs := varchar("category_id")
		summaries := varchar("service_summary")
		providers := varchar("provider")
		locations := varchar("location")
		startAges := double("start_age")
		endAges := double("end_age")
		startTimes := double("start_time")
		endTimes := double("end_time")
		var genders []int64
		if col, ok := result.Fields.GetColumn("gender_restriction").(*entity.ColumnInt64); ok {
			genders = col.Data()
		}

		for i := 0; i < result.ResultCount; i++ {
			item := domain.CandidateItem{}
			if i < len(itemNumbers) {
				item.ItemNumber = itemNumbers[i]
			}
			if i < len(categoryIDs) {
				item.CategoryID = categoryIDs[i]
			}
			if i < len(summaries) {
				item.ServiceSummary = summaries[i]
			}
			if i < len(providers) {
				item.Provider = providers[i]
			}
			if i < len(locations) {
				item.Location = locations[i]
			}
			if i < len(startAges) && i < len(endAges) {
				item.AgeRange = domain.NumericRange{Start: startAges[i], End: endAges[i]}
			}
			if i < len(startTimes) && i < len(endTimes) {
				item.TimeRange = domain.NumericRange{Start: startTimes[i], End: endTimes[i]}
			}
			if i < len(genders) {
				item.GenderRestriction = domain.GenderRestriction(genders[i])
			}

			retrieved = append(retrieved, coding.RetrievedItem{
				Item: item,
				// COSINE 度量下得分即相似度，越大越相关
				Similarity: float64(result.Scores[i]),
			})
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(retrieved)))
	return retrieved, nil
}

// RebuildCategory 原子重建类目索引
// 新集合构建完成并加载后才切换别名；构建失败时旧索引不受影响
func (r *ItemRepository) RebuildCategory(ctx context.Context, categoryID string, items []coding.IndexItem) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(items) == 0 {
		return fmt.Errorf("no items to index for category %s", categoryID)
	}

	alias := r.aliasFor(categoryID)
	physical := fmt.Sprintf("%s_v%d", alias, time.Now().UnixNano())
	ctx, span := tracer.Start(ctx, "milvus.RebuildCategory",
		trace.WithAttributes(
			attribute.String("alias", alias),
			attribute.String("collection", physical),
			attribute.Int("items", len(items)),
		))
	defer span.End()

	dim := len(items[0].Vector)
	if err := r.buildCollection(ctx, physical, dim, items); err != nil {
		span.RecordError(err)
		// 失败时清理半成品集合，旧索引保持可查
		if dropErr := r.client.milvus.DropCollection(ctx, physical); dropErr != nil {
			logger.Warn(ctx, "清理失败的构建集合出错", "collection", physical, "error", dropErr)
		}
		return err
	}

	if err := r.swapAlias(ctx, alias, physical); err != nil {
		span.RecordError(err)
		if dropErr := r.client.milvus.DropCollection(ctx, physical); dropErr != nil {
			logger.Warn(ctx, "清理失败的构建集合出错", "collection", physical, "error", dropErr)
		}
		return err
	}

	r.dropStaleCollections(ctx, alias, physical)
	return nil
}

// buildCollection 建集合、写入数据、建索引并加载
func (r *ItemRepository) buildCollection(ctx context.Context, name string, dim int, items []coding.IndexItem) error {
	if err := r.client.milvus.CreateCollection(ctx, ItemSchema(name, dim), entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	for i := 0; i < len(items); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(items) {
			end = len(items)
		}
		if err := r.insertBatch(ctx, name, dim, items[i:end]); err != nil {
			return err
		}
	}

	if err := r.client.milvus.Flush(ctx, name, false); err != nil {
		return fmt.Errorf("failed to flush collection %s: %w", name, err)
	}

	idx, err := entity.NewIndexHNSW(
		entity.MetricType(r.client.config.MetricType),
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := r.client.milvus.CreateIndex(ctx, name, "vector", idx, false); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", name, err)
	}

	if err := r.client.milvus.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return nil
}

func (r *ItemRepository) insertBatch(ctx context.Context, name string, dim int, items []coding.IndexItem) error {
	n := len(items)
	itemNumbers := make([]string, n)
	vectors := make([][]float32, n)
	categoryIDs := make([]string, n)
	summaries := make([]string, n)
	providers := make([]string, n)
	locations := make([]string, n)
	startAges := make([]float64, n)
	endAges := make([]float64, n)
	startTimes := make([]float64, n)
	endTimes := make([]float64, n)
	genders := make([]int64, n)

	for i, it := range items {
		itemNumbers[i] = it.Item.ItemNumber
		vectors[i] = it.Vector
		categoryIDs[i] = it.Item.CategoryID
		summaries[i] = it.Item.ServiceSummary
		providers[i] = it.Item.Provider
		locations[i] = it.Item.Location
		startAges[i] = it.Item.AgeRange.Start
		endAges[i] = it.Item.AgeRange.End
		startTimes[i] = it.Item.TimeRange.Start
		endTimes[i] = it.Item.TimeRange.End
		genders[i] = int64(it.Item.GenderRestriction)
	}

	_, err := r.client.milvus.Insert(ctx, name, "",
		entity.NewColumnVarChar("item_number", itemNumbers),
		entity.NewColumnFloatVector("vector", dim, vectors),
		entity.NewColumnVarChar("category_id", categoryIDs),
		entity.NewColumnVarChar("service_summary", summaries),
		entity.NewColumnVarChar("provider", providers),
		entity.NewColumnVarChar("location", locations),
		entity.NewColumnDouble("start_age", startAges),
		entity.NewColumnDouble("end_age", endAges),
		entity.NewColumnDouble("start_time", startTimes),
		entity.NewColumnDouble("end_time", endTimes),
		entity.NewColumnInt64("gender_restriction", genders),
	)
	if err != nil {
		return fmt.Errorf("failed to insert items into %s: %w", name, err)
	}
	return nil
}

// swapAlias 将别名切到新集合：首次构建用 CreateAlias，之后用 AlterAlias
func (r *ItemRepository) swapAlias(ctx context.Context, alias, collection string) error {
	if err := r.client.milvus.CreateAlias(ctx, collection, alias); err == nil {
		return nil
	}
	if err := r.client.milvus.AlterAlias(ctx, collection, alias); err != nil {
		return fmt.Errorf("failed to switch alias %s to %s: %w", alias, collection, err)
	}
	return nil
}

// dropStaleCollections 删除别名切换后遗留的旧物理集合
func (r *ItemRepository) dropStaleCollections(ctx context.Context, alias, current string) {
	collections, err := r.client.milvus.ListCollections(ctx)
	if err != nil {
		logger.Warn(ctx, "列举集合失败，跳过旧集合清理", "error", err)
		return
	}
	prefix := alias + "_v"
	for _, coll := range collections {
		if coll.Name == current || !strings.HasPrefix(coll.Name, prefix) {
			continue
		}
		if err := r.client.milvus.DropCollection(ctx, coll.Name); err != nil {
			logger.Warn(ctx, "删除旧集合失败", "collection", coll.Name, "error", err)
			continue
		}
		logger.Info(ctx, "已删除旧集合", "collection", coll.Name)
	}
}
