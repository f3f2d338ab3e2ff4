package coding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mbs-coding-api/internal/config"
)

func complexityEngine(reply string, cache Cache) *Engine {
	cfg := testConfig()
	cfg.Pipeline.Complexity = config.ComplexityConfig{Enabled: true, CacheTTL: time.Hour}
	return NewEngine(cfg, nil, &fakeEmbedder{}, &fakeIndex{}, &fakeReranker{},
		&fakeFactory{m: &fakeChatModel{reply: reply}}, cache)
}

func TestClassifyComplexity(t *testing.T) {
	cache := &fakeCache{}
	e := complexityEngine(`{"complexity_level": "High complexity", "reasoning": "multiple comorbidities"}`, cache)

	level := e.classifyComplexity(context.Background(), "complex patient note")
	assert.Equal(t, ComplexityHigh, level)

	// 结果写入缓存
	assert.Len(t, cache.data, 1)
}

func TestClassifyComplexityCacheHit(t *testing.T) {
	cache := &fakeCache{data: map[string]string{
		"complexity:" + hashText("note"): ComplexityOrdinary,
	}}
	// 模型坏掉也无所谓，缓存命中不应触发调用
	e := complexityEngine("not json at all", cache)

	level := e.classifyComplexity(context.Background(), "note")
	assert.Equal(t, ComplexityOrdinary, level)
}

func TestClassifyComplexityUnrecognizedLevel(t *testing.T) {
	e := complexityEngine(`{"complexity_level": "somewhat complex"}`, &fakeCache{})
	assert.Equal(t, "", e.classifyComplexity(context.Background(), "note"))
}

func TestClassifyComplexityBadOutput(t *testing.T) {
	e := complexityEngine("no structure here", &fakeCache{})
	assert.Equal(t, "", e.classifyComplexity(context.Background(), "note"))
}

func TestNormalizeComplexity(t *testing.T) {
	assert.Equal(t, ComplexityOrdinary, normalizeComplexity(ComplexityOrdinary))
	assert.Equal(t, ComplexityModerate, normalizeComplexity(ComplexityModerate))
	assert.Equal(t, "", normalizeComplexity("High"))
}
