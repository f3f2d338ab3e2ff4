package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeCategoryNotFound, http.StatusNotFound},
		{CodeTooManyRequests, http.StatusTooManyRequests},
		{CodeIndexUnavailable, http.StatusServiceUnavailable},
		{CodeEmbeddingFailed, http.StatusServiceUnavailable},
		// 推理输出格式问题来自上游模型，不能按客户端错误返回
		{CodeReasoningFormat, http.StatusBadGateway},
		{CodeReasoningFailed, http.StatusInternalServerError},
		{CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, New(tc.code, "msg").HTTPStatus, string(tc.code))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("backend down")
	err := Wrap(cause, CodeEmbeddingFailed, "failed to embed query")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeEmbeddingFailed, AsAppError(err).Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
}
