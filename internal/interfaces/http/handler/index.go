package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"mbs-coding-api/internal/application/coding"
	"mbs-coding-api/internal/infrastructure/persistence/redis"
	"mbs-coding-api/internal/interfaces/http/dto"
	"mbs-coding-api/pkg/logger"
)

const (
	categoryListCacheKey = "index:categories"
	categoryListCacheTTL = 5 * time.Minute
)

// IndexHandler 索引管理处理器
type IndexHandler struct {
	indexer *coding.Indexer
	cache   *redis.Cache
}

// NewIndexHandler 创建索引管理处理器
func NewIndexHandler(indexer *coding.Indexer, cache *redis.Cache) *IndexHandler {
	return &IndexHandler{
		indexer: indexer,
		cache:   cache,
	}
}

// Build 触发类目索引重建
// @Summary 重建类目索引
// @Description 读取类目数据、批量向量化并原子切换索引
// @Tags Index
// @Accept json
// @Produce json
// @Param request body dto.BuildIndexRequest true "构建请求"
// @Success 200 {object} dto.Response[dto.BuildIndexResponse]
// @Router /v1/index/build [post]
func (h *IndexHandler) Build(c *gin.Context) {
	var req dto.BuildIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.indexer.BuildCategory(c.Request.Context(), req.CategoryID)
	if err != nil {
		logger.Warn(c.Request.Context(), "索引构建失败",
			"category_id", req.CategoryID, "error", err)
		dto.FromAppError(c, err)
		return
	}

	// 类目数据已变化，失效列表缓存
	if h.cache != nil {
		_ = h.cache.Delete(c.Request.Context(), categoryListCacheKey)
	}

	dto.Success(c, dto.BuildIndexResponse{
		CategoryID: result.CategoryID,
		Items:      result.Items,
	})
}

// Categories 返回可用类目列表
// @Summary 可用类目列表
// @Description 返回数据库中存在对应数据表的类目 ID
// @Tags Index
// @Produce json
// @Success 200 {object} dto.Response[dto.CategoryListResponse]
// @Router /v1/index/categories [get]
func (h *IndexHandler) Categories(c *gin.Context) {
	ctx := c.Request.Context()

	var categories []string
	if h.cache != nil {
		err := h.cache.GetOrLoadJSON(ctx, categoryListCacheKey, &categories, categoryListCacheTTL,
			func(ctx context.Context) (interface{}, error) {
				return h.indexer.ListCategories(ctx)
			})
		if err != nil {
			dto.FromAppError(c, err)
			return
		}
	} else {
		var err error
		categories, err = h.indexer.ListCategories(ctx)
		if err != nil {
			dto.FromAppError(c, err)
			return
		}
	}

	if categories == nil {
		categories = []string{}
	}
	dto.Success(c, dto.CategoryListResponse{Categories: categories})
}
