package coding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mbs-coding-api/internal/config"
	"mbs-coding-api/internal/domain/repository"
	"mbs-coding-api/pkg/errors"
	"mbs-coding-api/pkg/logger"
	"mbs-coding-api/pkg/metrics"
)

var tracer = otel.Tracer("coding")

// Engine 编码建议流水线
// 各阶段按配置的失败策略降级或中止：嵌入与召回失败是致命的，
// 重排与推理失败可以降级为告警
type Engine struct {
	cfg      *config.Config
	repo     repository.CategoryRepository
	embedder Embedder
	index    VectorIndex
	reranker Reranker
	llm      ChatModelFactory
	cache    Cache
}

// NewEngine 创建建议流水线
func NewEngine(
	cfg *config.Config,
	repo repository.CategoryRepository,
	embedder Embedder,
	index VectorIndex,
	reranker Reranker,
	llm ChatModelFactory,
	cache Cache,
) *Engine {
	return &Engine{
		cfg:      cfg,
		repo:     repo,
		embedder: embedder,
		index:    index,
		reranker: reranker,
		llm:      llm,
		cache:    cache,
	}
}

// Suggest 执行完整建议流水线：嵌入、召回、过滤、重排、推理选择
func (e *Engine) Suggest(ctx context.Context, in SuggestInput) (*SuggestOutput, error) {
	ctx, span := tracer.Start(ctx, "coding.Suggest")
	defer span.End()

	if err := e.validate(&in); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.CategoryIDKey, in.CategoryID)
	span.SetAttributes(
		attribute.String("category_id", in.CategoryID),
		attribute.Int("top_n", in.TopN),
	)

	out := &SuggestOutput{}

	// 1. 嵌入查询文本
	vector, err := e.embedStage(ctx, in.FreeText)
	if err != nil {
		return nil, err
	}

	// 2. 向量召回
	retrieved, err := e.retrieveStage(ctx, in, vector)
	if err != nil {
		return nil, err
	}

	// 3. 资格过滤；过滤为空是正常终态
	eligible := ApplyEligibility(retrieved, in)
	logger.Debug(ctx, "资格过滤完成", "retrieved", len(retrieved), "eligible", len(eligible))
	if len(eligible) == 0 {
		out.Candidates = []ScoredCandidate{}
		out.NoEligibleCandidates = true
		metrics.ShortlistSize.WithLabelValues(in.CategoryID).Observe(0)
		return out, nil
	}

	candidates := make([]ScoredCandidate, len(eligible))
	for i, r := range eligible {
		candidates[i] = ScoredCandidate{Item: r.Item, Similarity: r.Similarity}
	}

	// 4. 交叉编码重排，失败按策略降级或中止
	candidates, err = e.rerankStage(ctx, in, candidates, out)
	if err != nil {
		return nil, err
	}

	// 5. 截断到 TopN
	if len(candidates) > in.TopN {
		candidates = candidates[:in.TopN]
	}
	out.Candidates = candidates
	metrics.ShortlistSize.WithLabelValues(in.CategoryID).Observe(float64(len(candidates)))

	// 6. 推理选择
	if in.WithReasoning {
		if err := e.reasoningStage(ctx, in, out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// validate 校验输入并补默认值
func (e *Engine) validate(in *SuggestInput) error {
	if strings.TrimSpace(in.CategoryID) == "" {
		in.CategoryID = e.cfg.Pipeline.DefaultCategory
		if in.CategoryID == "" {
			in.CategoryID = "1"
		}
	}
	if strings.TrimSpace(in.FreeText) == "" {
		return errors.New(errors.CodeInvalidParam, "free text is required")
	}
	if in.TopN <= 0 {
		in.TopN = e.cfg.Pipeline.TopN
	}
	return nil
}

func (e *Engine) embedStage(ctx context.Context, text string) ([]float32, error) {
	stageCtx, cancel := stageContext(ctx, e.cfg.Pipeline.Stages.Embed)
	defer cancel()

	start := time.Now()
	vector, err := e.embedder.EmbedQuery(stageCtx, text)
	e.observeStage("embed", start, err)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "failed to embed query")
	}
	return vector, nil
}

func (e *Engine) retrieveStage(ctx context.Context, in SuggestInput, vector []float32) ([]RetrievedItem, error) {
	stageCtx, cancel := stageContext(ctx, e.cfg.Pipeline.Stages.Retrieve)
	defer cancel()

	start := time.Now()
	retrieved, err := e.index.Search(stageCtx, in.CategoryID, vector, e.cfg.Pipeline.TopK, RangeFilter{
		Age:      in.Age,
		Duration: in.Duration,
	})
	e.observeStage("retrieve", start, err)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexUnavailable,
			fmt.Sprintf("vector search failed for category %s", in.CategoryID))
	}

	// 相似度降序，同分按条目号保证确定性；同号条目只保留最高分
	sort.SliceStable(retrieved, func(i, j int) bool {
		if retrieved[i].Similarity != retrieved[j].Similarity {
			return retrieved[i].Similarity > retrieved[j].Similarity
		}
		return retrieved[i].Item.ItemNumber < retrieved[j].Item.ItemNumber
	})
	seen := make(map[string]struct{}, len(retrieved))
	deduped := retrieved[:0]
	for _, r := range retrieved {
		if _, ok := seen[r.Item.ItemNumber]; ok {
			continue
		}
		seen[r.Item.ItemNumber] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped, nil
}

func (e *Engine) rerankStage(ctx context.Context, in SuggestInput, candidates []ScoredCandidate, out *SuggestOutput) ([]ScoredCandidate, error) {
	stageCtx, cancel := stageContext(ctx, e.cfg.Pipeline.Stages.Rerank)
	defer cancel()

	start := time.Now()
	reranked, err := e.rerank(stageCtx, in, candidates)
	e.observeStage("rerank", start, err)
	if err != nil {
		if e.cfg.Pipeline.Stages.Rerank.Abortable() {
			return nil, errors.Wrap(err, errors.CodeRerankFailed, "rerank failed")
		}
		logger.Warn(ctx, "重排失败，保持相似度排序", "error", err)
		out.Warnings = append(out.Warnings, WarnRerankSkipped)
		return candidates, nil
	}
	return reranked, nil
}

func (e *Engine) reasoningStage(ctx context.Context, in SuggestInput, out *SuggestOutput) error {
	shortlist := out.Candidates
	if max := e.cfg.Pipeline.ReasoningShortlistMax; max > 0 && len(shortlist) > max {
		shortlist = shortlist[:max]
	}
	if len(shortlist) == 0 {
		return nil
	}

	narrative := in.FreeText
	if e.cfg.Pipeline.Complexity.Enabled {
		if level := e.classifyComplexity(ctx, in.FreeText); level != "" {
			out.Complexity = level
			narrative = fmt.Sprintf("%s [Complexity: %s]", narrative, level)
		} else {
			out.Warnings = append(out.Warnings, WarnComplexityUnknown)
		}
	}

	stageCtx, cancel := stageContext(ctx, e.cfg.Pipeline.Stages.Reasoning)
	defer cancel()

	start := time.Now()
	result, err := e.reason(stageCtx, narrative, shortlist)
	e.observeStage("reasoning", start, err)
	if err != nil {
		if e.cfg.Pipeline.Stages.Reasoning.Abortable() {
			return err
		}
		logger.Warn(ctx, "推理选择失败，返回未裁决的候选列表", "error", err)
		out.Warnings = append(out.Warnings, WarnReasoningSkipped)
		return nil
	}
	if result.Truncated {
		out.Warnings = append(out.Warnings, WarnReasoningTruncated)
	}
	out.Reasoning = result
	return nil
}

// observeStage 记录阶段耗时与状态指标
func (e *Engine) observeStage(stage string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.PipelineStageTotal.WithLabelValues(stage, status).Inc()
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// stageContext 按阶段配置附加超时
func stageContext(ctx context.Context, policy config.StagePolicy) (context.Context, context.CancelFunc) {
	if policy.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, policy.Timeout)
}
