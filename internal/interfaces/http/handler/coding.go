// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"mbs-coding-api/internal/application/coding"
	"mbs-coding-api/internal/interfaces/http/dto"
	"mbs-coding-api/pkg/logger"
)

// CodingHandler 编码建议处理器
type CodingHandler struct {
	engine *coding.Engine
}

// NewCodingHandler 创建编码建议处理器
func NewCodingHandler(engine *coding.Engine) *CodingHandler {
	return &CodingHandler{engine: engine}
}

// Suggest 编码建议接口
// @Summary 编码建议
// @Description 根据自由文本临床描述返回候选条目与推理选择
// @Tags Coding
// @Accept json
// @Produce json
// @Param request body dto.SuggestRequest true "建议请求"
// @Success 200 {object} dto.Response[dto.SuggestResponse]
// @Router /v1/coding/suggest [post]
func (h *CodingHandler) Suggest(c *gin.Context) {
	var req dto.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	out, err := h.engine.Suggest(c.Request.Context(), req.ToInput())
	if err != nil {
		logger.Warn(c.Request.Context(), "编码建议请求失败",
			"category_id", req.CategoryID, "error", err)
		dto.FromAppError(c, err)
		return
	}

	dto.Success(c, dto.NewSuggestResponse(out))
}
