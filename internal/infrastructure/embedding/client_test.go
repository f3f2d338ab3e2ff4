package embedding

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbs-coding-api/internal/config"
)

type stubEmbedder struct {
	gotTexts []string
	vectors  [][]float64
	err      error
}

func (s *stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	s.gotTexts = append(s.gotTexts, texts...)
	if s.err != nil {
		return nil, s.err
	}
	if s.vectors != nil {
		return s.vectors, nil
	}
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

func newStubClient(stub *stubEmbedder, cfg *config.EmbeddingConfig) *Client {
	if cfg == nil {
		cfg = &config.EmbeddingConfig{}
	}
	c := NewClient(cfg)
	c.embedder = stub
	return c
}

func TestEmbedQueryPrependsInstruction(t *testing.T) {
	stub := &stubEmbedder{}
	c := newStubClient(stub, nil)

	vec, err := c.EmbedQuery(context.Background(), "chest pain")
	require.NoError(t, err)
	assert.Len(t, vec, 3)

	require.Len(t, stub.gotTexts, 1)
	assert.Equal(t, queryInstruction+"chest pain", stub.gotTexts[0])
}

func TestEmbedDocumentsNoInstructionAndBatching(t *testing.T) {
	stub := &stubEmbedder{}
	c := newStubClient(stub, &config.EmbeddingConfig{BatchSize: 2})

	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := c.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vecs, 5)

	// 文档侧不加查询前缀，分批后按原顺序拼接
	assert.Equal(t, texts, stub.gotTexts)
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	t.Run("未配置维度也拒绝空向量", func(t *testing.T) {
		stub := &stubEmbedder{vectors: [][]float64{{}}}
		c := newStubClient(stub, &config.EmbeddingConfig{Dimension: 0})

		_, err := c.EmbedQuery(context.Background(), "note")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty vector")
	})

	t.Run("维度不符拒绝", func(t *testing.T) {
		stub := &stubEmbedder{vectors: [][]float64{{0.1, 0.2}}}
		c := newStubClient(stub, &config.EmbeddingConfig{Dimension: 1024})

		_, err := c.EmbedQuery(context.Background(), "note")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
	})
}

func TestEmbedCountMismatch(t *testing.T) {
	stub := &stubEmbedder{vectors: [][]float64{{0.1}, {0.2}}}
	c := newStubClient(stub, nil)

	_, err := c.EmbedQuery(context.Background(), "note")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count mismatch")
}
