package coding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankQueryText(t *testing.T) {
	age := 42.0
	dur := 25.0

	assert.Equal(t, "General Practitioner age 42 25 minutes", rerankQueryText(SuggestInput{
		Provider: "General Practitioner",
		Age:      &age,
		Duration: &dur,
	}))

	assert.Equal(t, "age 42", rerankQueryText(SuggestInput{Age: &age}))

	// 全部缺失退化为通用查询
	assert.Equal(t, "medical consultation", rerankQueryText(SuggestInput{}))
}

func TestRerankReordersByScore(t *testing.T) {
	rr := &fakeReranker{scores: []float64{0.2, 0.9, 0.5}}
	e := NewEngine(testConfig(), nil, &fakeEmbedder{}, &fakeIndex{}, rr, &fakeFactory{m: &fakeChatModel{}}, nil)

	in := []ScoredCandidate{
		{Item: candidate("a", 0.9).Item, Similarity: 0.9},
		{Item: candidate("b", 0.8).Item, Similarity: 0.8},
		{Item: candidate("c", 0.7).Item, Similarity: 0.7},
	}
	out, err := e.rerank(context.Background(), SuggestInput{}, in)
	require.NoError(t, err)

	assert.Equal(t, "b", out[0].Item.ItemNumber)
	assert.Equal(t, "c", out[1].Item.ItemNumber)
	assert.Equal(t, "a", out[2].Item.ItemNumber)
	// 输入切片不被修改
	assert.Equal(t, "a", in[0].Item.ItemNumber)
	assert.Nil(t, in[0].RerankScore)
}

func TestRerankStableOnTies(t *testing.T) {
	rr := &fakeReranker{scores: []float64{0.5, 0.5, 0.5}}
	e := NewEngine(testConfig(), nil, &fakeEmbedder{}, &fakeIndex{}, rr, &fakeFactory{m: &fakeChatModel{}}, nil)

	in := []ScoredCandidate{
		{Item: candidate("a", 0.9).Item, Similarity: 0.9},
		{Item: candidate("b", 0.8).Item, Similarity: 0.8},
		{Item: candidate("c", 0.7).Item, Similarity: 0.7},
	}
	out, err := e.rerank(context.Background(), SuggestInput{}, in)
	require.NoError(t, err)

	// 同分保持原有相对顺序
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		out[0].Item.ItemNumber, out[1].Item.ItemNumber, out[2].Item.ItemNumber,
	})
}

func TestRerankScoreCountMismatch(t *testing.T) {
	rr := &fakeReranker{scores: []float64{0.5}}
	e := NewEngine(testConfig(), nil, &fakeEmbedder{}, &fakeIndex{}, rr, &fakeFactory{m: &fakeChatModel{}}, nil)

	in := []ScoredCandidate{
		{Item: candidate("a", 0.9).Item, Similarity: 0.9},
		{Item: candidate("b", 0.8).Item, Similarity: 0.8},
	}
	_, err := e.rerank(context.Background(), SuggestInput{}, in)
	require.Error(t, err)
}

func TestRerankEmptyInput(t *testing.T) {
	e := NewEngine(testConfig(), nil, &fakeEmbedder{}, &fakeIndex{}, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}}, nil)
	out, err := e.rerank(context.Background(), SuggestInput{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
