package coding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mbs-coding-api/pkg/logger"
)

// rerankQueryText 构造结构化重排查询文本
// 只拼接已提供的结构化属性，全部缺失时退化为通用查询
func rerankQueryText(in SuggestInput) string {
	var parts []string
	if in.Provider != "" {
		parts = append(parts, in.Provider)
	}
	if in.Age != nil {
		parts = append(parts, fmt.Sprintf("age %g", *in.Age))
	}
	if in.Duration != nil {
		parts = append(parts, fmt.Sprintf("%g minutes", *in.Duration))
	}
	if len(parts) == 0 {
		return "medical consultation"
	}
	return strings.Join(parts, " ")
}

// rerank 调用交叉编码器为候选打分并按得分降序稳定排序
// 返回的切片与输入独立，得分相同的候选保持原有相对顺序
func (e *Engine) rerank(ctx context.Context, in SuggestInput, candidates []ScoredCandidate) ([]ScoredCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	query := rerankQueryText(in)
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Item.ServiceSummary
	}

	start := time.Now()
	scores, err := e.reranker.Rerank(ctx, query, docs)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(scores), len(candidates))
	}

	out := make([]ScoredCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		s := scores[i]
		out[i].RerankScore = &s
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RerankScore > *out[j].RerankScore
	})

	logger.Debug(ctx, "重排完成",
		"query", query,
		"candidates", len(out),
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}
