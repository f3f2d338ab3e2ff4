package dto

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbs-coding-api/pkg/errors"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestFromAppError(t *testing.T) {
	t.Run("业务错误映射到对应状态码", func(t *testing.T) {
		c, w := newTestContext(t)

		FromAppError(c, errors.New(errors.CodeCategoryNotFound, "category 9 not found"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "category 9 not found", resp.Message)
		require.NotNil(t, resp.Error)
		assert.Equal(t, string(errors.CodeCategoryNotFound), resp.Error.ErrorCode)
	})

	t.Run("推理格式错误归为上游故障返回 502", func(t *testing.T) {
		c, w := newTestContext(t)

		FromAppError(c, errors.New(errors.CodeReasoningFormat, "selected_index out of range"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("索引不可用返回 503", func(t *testing.T) {
		c, w := newTestContext(t)

		FromAppError(c, errors.New(errors.CodeIndexUnavailable, "vector search failed"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("非业务错误兜底 500", func(t *testing.T) {
		c, w := newTestContext(t)

		FromAppError(c, fmt.Errorf("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.Error)
	})
}

func TestSuccessEnvelope(t *testing.T) {
	c, w := newTestContext(t)
	c.Set("trace_id", "abc123")

	Success(c, map[string]int{"items": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response[map[string]int]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.Equal(t, 3, resp.Data["items"])
	assert.Equal(t, "abc123", resp.TraceID)
}
