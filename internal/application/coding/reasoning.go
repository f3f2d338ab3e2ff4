package coding

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/eino/schema"

	"mbs-coding-api/pkg/errors"
	"mbs-coding-api/pkg/logger"
	"mbs-coding-api/pkg/metrics"
)

// reasoningPayload 推理后端的结构化返回
// SelectedIndex 用指针区分"缺失"与"0"
type reasoningPayload struct {
	SelectedIndex *int     `json:"selected_index"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	KeyFactors    []string `json:"key_factors"`
}

// reason 调用 LLM 在候选列表中选择最合适的条目
// 返回的 selected_index 必须落在实际发送的候选范围内，越界或缺失按格式错误处理
func (e *Engine) reason(ctx context.Context, narrative string, candidates []ScoredCandidate) (*ReasoningResult, error) {
	chatModel, err := e.llm.Get(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeReasoningFailed, "reasoning model unavailable")
	}

	prompt := buildReasoningPrompt(narrative, candidates)
	start := time.Now()
	msg, err := chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(prompt),
	})
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(e.cfg.LLM.DefaultProvider, "reasoning", "error").Inc()
		return nil, errors.Wrap(err, errors.CodeReasoningFailed, "reasoning call failed")
	}
	metrics.LLMCallTotal.WithLabelValues(e.cfg.LLM.DefaultProvider, "reasoning", "ok").Inc()
	metrics.LLMCallDuration.WithLabelValues(e.cfg.LLM.DefaultProvider, "reasoning").Observe(time.Since(start).Seconds())

	outputTruncated := msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason == "length"

	content := stripThinkBlocks(msg.Content)
	jsonStr := extractLastJSONObject(content)
	if jsonStr == "" {
		return nil, errors.New(errors.CodeReasoningFormat, "no JSON object in reasoning output").
			WithDetail(truncateRunes(content, 200))
	}

	var payload reasoningPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, errors.Wrap(err, errors.CodeReasoningFormat, "malformed reasoning JSON")
	}

	if payload.SelectedIndex == nil {
		return nil, errors.New(errors.CodeReasoningFormat, "reasoning output missing selected_index")
	}
	idx := *payload.SelectedIndex
	if idx < 0 || idx >= len(candidates) {
		return nil, errors.New(errors.CodeReasoningFormat,
			"selected_index out of range").
			WithDetail(jsonStr)
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	justification := payload.Reasoning
	truncated := outputTruncated
	if max := e.cfg.Pipeline.MaxJustificationRunes; max > 0 && len([]rune(justification)) > max {
		justification = truncateRunes(justification, max)
		truncated = true
	}

	logger.Info(ctx, "推理选择完成",
		"selected_index", idx,
		"item_number", candidates[idx].Item.ItemNumber,
		"confidence", confidence,
		"truncated", truncated)

	return &ReasoningResult{
		SelectedIndex: idx,
		Item:          candidates[idx].Item,
		Confidence:    confidence,
		Justification: justification,
		KeyFactors:    payload.KeyFactors,
		Truncated:     truncated,
	}, nil
}

// truncateRunes 按 rune 截断字符串
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
