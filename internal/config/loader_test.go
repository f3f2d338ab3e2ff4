package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Run("使用默认值", func(t *testing.T) {
		got := expandEnv("host: ${TEST_CFG_HOST:localhost}")
		assert.Equal(t, "host: localhost", got)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		t.Setenv("TEST_CFG_HOST", "db.internal")
		got := expandEnv("host: ${TEST_CFG_HOST:localhost}")
		assert.Equal(t, "host: db.internal", got)
	})

	t.Run("空默认值展开为空串", func(t *testing.T) {
		got := expandEnv("password: ${TEST_CFG_PASSWORD:}")
		assert.Equal(t, "password: ", got)
	})

	t.Run("无默认值且未定义时保留原样", func(t *testing.T) {
		got := expandEnv("key: ${TEST_CFG_UNDEFINED}")
		assert.Equal(t, "key: ${TEST_CFG_UNDEFINED}", got)
	})

	t.Run("同一行多个占位符", func(t *testing.T) {
		t.Setenv("TEST_CFG_A", "1")
		got := expandEnv("${TEST_CFG_A:0}:${TEST_CFG_B:2}")
		assert.Equal(t, "1:2", got)
	})
}

func TestStagePolicyAbortable(t *testing.T) {
	assert.True(t, StagePolicy{OnFailure: "abort", Timeout: time.Second}.Abortable())
	assert.False(t, StagePolicy{OnFailure: "skip"}.Abortable())
	assert.False(t, StagePolicy{}.Abortable())
}
