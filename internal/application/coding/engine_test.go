package coding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbs-coding-api/internal/config"
	"mbs-coding-api/internal/domain/entity"
	"mbs-coding-api/pkg/errors"
)

// ---------- fakes ----------

type fakeEmbedder struct {
	queryErr error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeIndex struct {
	results     []RetrievedItem
	err         error
	gotCategory string
}

func (f *fakeIndex) Search(ctx context.Context, categoryID string, vector []float32, topK int, filter RangeFilter) ([]RetrievedItem, error) {
	f.gotCategory = categoryID
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeIndex) RebuildCategory(ctx context.Context, categoryID string, items []IndexItem) error {
	return nil
}

func (f *fakeIndex) HasCategory(ctx context.Context, categoryID string) (bool, error) {
	return true, nil
}

type fakeReranker struct {
	scores []float64
	err    error
	gotQ   string
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	f.gotQ = query
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	out := make([]float64, len(documents))
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
}

type fakeChatModel struct {
	reply string
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported")
}

type fakeFactory struct {
	m   model.BaseChatModel
	err error
}

func (f *fakeFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.m, nil
}

type fakeCache struct {
	data map[string]string
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.data == nil {
		f.data = make(map[string]string)
	}
	f.data[key] = value
	return nil
}

// ---------- helpers ----------

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			TopK:                  50,
			TopN:                  10,
			ReasoningShortlistMax: 10,
			MaxJustificationRunes: 2000,
			Stages: config.StagePolicies{
				Embed:     config.StagePolicy{OnFailure: "abort"},
				Retrieve:  config.StagePolicy{OnFailure: "abort"},
				Rerank:    config.StagePolicy{OnFailure: "skip"},
				Reasoning: config.StagePolicy{OnFailure: "skip"},
			},
			Complexity: config.ComplexityConfig{Enabled: false},
		},
	}
}

func candidate(itemNumber string, similarity float64) RetrievedItem {
	return RetrievedItem{
		Item: entity.CandidateItem{
			ItemNumber:     itemNumber,
			CategoryID:     "1",
			ServiceSummary: "Consultation " + itemNumber,
			AgeRange:       entity.NumericRange{Start: 0, End: 200},
			TimeRange:      entity.NumericRange{Start: 0, End: 10000},
		},
		Similarity: similarity,
	}
}

func newTestEngine(cfg *config.Config, idx *fakeIndex, rr *fakeReranker, lf ChatModelFactory) *Engine {
	return NewEngine(cfg, nil, &fakeEmbedder{}, idx, rr, lf, &fakeCache{})
}

// ---------- tests ----------

func TestSuggestHappyPath(t *testing.T) {
	idx := &fakeIndex{results: []RetrievedItem{
		candidate("23", 0.9),
		candidate("36", 0.8),
		candidate("44", 0.7),
	}}
	// 重排把最后一个候选提到最前
	rr := &fakeReranker{scores: []float64{0.1, 0.2, 0.9}}
	lf := &fakeFactory{m: &fakeChatModel{
		reply: `{"selected_index": 0, "confidence": 0.85, "reasoning": "Best match.", "key_factors": ["age", "provider"]}`,
	}}

	e := newTestEngine(testConfig(), idx, rr, lf)
	out, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID:    "1",
		FreeText:      "patient with chest pain",
		WithReasoning: true,
	})
	require.NoError(t, err)

	require.Len(t, out.Candidates, 3)
	assert.Equal(t, "44", out.Candidates[0].Item.ItemNumber)
	assert.Equal(t, 0.9, *out.Candidates[0].RerankScore)
	assert.False(t, out.NoEligibleCandidates)
	assert.Empty(t, out.Warnings)

	require.NotNil(t, out.Reasoning)
	assert.Equal(t, 0, out.Reasoning.SelectedIndex)
	assert.Equal(t, "44", out.Reasoning.Item.ItemNumber)
	assert.Equal(t, 0.85, out.Reasoning.Confidence)
	assert.Equal(t, []string{"age", "provider"}, out.Reasoning.KeyFactors)
	assert.False(t, out.Reasoning.Truncated)
}

func TestSuggestTopNCap(t *testing.T) {
	var results []RetrievedItem
	for i := 0; i < 30; i++ {
		results = append(results, candidate(fmt.Sprintf("%d", i), float64(30-i)/100))
	}
	idx := &fakeIndex{results: results}

	e := newTestEngine(testConfig(), idx, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})
	out, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID: "1",
		FreeText:   "note",
		TopN:       5,
	})
	require.NoError(t, err)
	assert.Len(t, out.Candidates, 5)
}

func TestSuggestDeduplicatesByItemNumber(t *testing.T) {
	idx := &fakeIndex{results: []RetrievedItem{
		candidate("23", 0.5),
		candidate("23", 0.9),
		candidate("36", 0.7),
	}}

	e := newTestEngine(testConfig(), idx, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})
	out, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID: "1",
		FreeText:   "note",
	})
	require.NoError(t, err)

	require.Len(t, out.Candidates, 2)
	// 同号条目只保留相似度最高的一条
	for _, c := range out.Candidates {
		if c.Item.ItemNumber == "23" {
			assert.Equal(t, 0.9, c.Similarity)
		}
	}
}

func TestSuggestNoEligibleCandidates(t *testing.T) {
	item := candidate("23", 0.9)
	item.Item.AgeRange = entity.NumericRange{Start: 0, End: 17}
	idx := &fakeIndex{results: []RetrievedItem{item}}

	age := 250.0
	e := newTestEngine(testConfig(), idx, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})
	out, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID:    "1",
		FreeText:      "note",
		Age:           &age,
		WithReasoning: true,
	})
	require.NoError(t, err)

	assert.True(t, out.NoEligibleCandidates)
	assert.Empty(t, out.Candidates)
	assert.Nil(t, out.Reasoning)
}

func TestSuggestRerankFailureDegrades(t *testing.T) {
	idx := &fakeIndex{results: []RetrievedItem{
		candidate("23", 0.9),
		candidate("36", 0.8),
	}}
	rr := &fakeReranker{err: fmt.Errorf("reranker down")}

	e := newTestEngine(testConfig(), idx, rr, &fakeFactory{m: &fakeChatModel{}})
	out, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID: "1",
		FreeText:   "note",
	})
	require.NoError(t, err)

	assert.Contains(t, out.Warnings, WarnRerankSkipped)
	// 保持相似度降序
	assert.Equal(t, "23", out.Candidates[0].Item.ItemNumber)
	assert.Nil(t, out.Candidates[0].RerankScore)
}

func TestSuggestEmbedFailureAborts(t *testing.T) {
	e := NewEngine(testConfig(), nil, &fakeEmbedder{queryErr: fmt.Errorf("backend down")},
		&fakeIndex{}, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}}, nil)

	_, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID: "1",
		FreeText:   "note",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeEmbeddingFailed, errors.AsAppError(err).Code)
}

func TestSuggestRetrieveFailureAborts(t *testing.T) {
	idx := &fakeIndex{err: fmt.Errorf("collection not loaded")}
	e := newTestEngine(testConfig(), idx, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})

	_, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID: "1",
		FreeText:   "note",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeIndexUnavailable, errors.AsAppError(err).Code)
}

func TestSuggestReasoningOutOfRangeIndexDegrades(t *testing.T) {
	idx := &fakeIndex{results: []RetrievedItem{
		candidate("23", 0.9),
		candidate("36", 0.8),
		candidate("44", 0.7),
	}}
	lf := &fakeFactory{m: &fakeChatModel{
		reply: `{"selected_index": 7, "confidence": 0.9, "reasoning": "x", "key_factors": []}`,
	}}

	e := newTestEngine(testConfig(), idx, &fakeReranker{}, lf)
	out, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID:    "1",
		FreeText:      "note",
		WithReasoning: true,
	})
	require.NoError(t, err)

	assert.Nil(t, out.Reasoning)
	assert.Contains(t, out.Warnings, WarnReasoningSkipped)
}

func TestSuggestReasoningAbortPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Stages.Reasoning.OnFailure = "abort"

	idx := &fakeIndex{results: []RetrievedItem{candidate("23", 0.9)}}
	lf := &fakeFactory{m: &fakeChatModel{
		reply: `{"confidence": 0.9, "reasoning": "missing index"}`,
	}}

	e := newTestEngine(cfg, idx, &fakeReranker{}, lf)
	_, err := e.Suggest(context.Background(), SuggestInput{
		CategoryID:    "1",
		FreeText:      "note",
		WithReasoning: true,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeReasoningFormat, errors.AsAppError(err).Code)
}

func TestSuggestValidation(t *testing.T) {
	e := newTestEngine(testConfig(), &fakeIndex{}, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})

	_, err := e.Suggest(context.Background(), SuggestInput{CategoryID: "1"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
}

func TestSuggestDefaultsCategory(t *testing.T) {
	t.Run("缺省类目取配置默认值", func(t *testing.T) {
		cfg := testConfig()
		cfg.Pipeline.DefaultCategory = "3"
		idx := &fakeIndex{results: []RetrievedItem{candidate("110", 0.9)}}

		e := newTestEngine(cfg, idx, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})
		_, err := e.Suggest(context.Background(), SuggestInput{FreeText: "note"})
		require.NoError(t, err)
		assert.Equal(t, "3", idx.gotCategory)
	})

	t.Run("配置未设置时回退类目 1", func(t *testing.T) {
		idx := &fakeIndex{results: []RetrievedItem{candidate("23", 0.9)}}

		e := newTestEngine(testConfig(), idx, &fakeReranker{}, &fakeFactory{m: &fakeChatModel{}})
		_, err := e.Suggest(context.Background(), SuggestInput{FreeText: "note"})
		require.NoError(t, err)
		assert.Equal(t, "1", idx.gotCategory)
	})
}
