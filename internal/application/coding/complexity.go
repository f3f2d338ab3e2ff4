package coding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"mbs-coding-api/pkg/logger"
)

// 复杂度三档，与计费规则中的急诊分级一致
const (
	ComplexityOrdinary = "Ordinary complexity"
	ComplexityModerate = "Complexity that is more than ordinary but not high"
	ComplexityHigh     = "High complexity"
)

type complexityPayload struct {
	ComplexityLevel string `json:"complexity_level"`
	Reasoning       string `json:"reasoning"`
}

// classifyComplexity 用 LLM 判定就诊复杂度，结果按叙述文本哈希缓存
// 任何失败都返回空串，由调用方降级处理
func (e *Engine) classifyComplexity(ctx context.Context, narrative string) string {
	key := "complexity:" + hashText(narrative)
	if e.cache != nil {
		if v, ok, err := e.cache.Get(ctx, key); err == nil && ok {
			return v
		}
	}

	chatModel, err := e.llm.Get(ctx, "")
	if err != nil {
		logger.Warn(ctx, "复杂度判定不可用", "error", err)
		return ""
	}

	msg, err := chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(complexityPrompt(narrative)),
	})
	if err != nil {
		logger.Warn(ctx, "复杂度判定调用失败", "error", err)
		return ""
	}

	jsonStr := extractLastJSONObject(stripThinkBlocks(msg.Content))
	if jsonStr == "" {
		return ""
	}
	var payload complexityPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return ""
	}

	level := normalizeComplexity(payload.ComplexityLevel)
	if level != "" && e.cache != nil {
		if err := e.cache.Set(ctx, key, level, e.cfg.Pipeline.Complexity.CacheTTL); err != nil {
			logger.Warn(ctx, "复杂度缓存写入失败", "error", err)
		}
	}
	return level
}

// normalizeComplexity 将模型输出归一到三档之一，未命中返回空串
func normalizeComplexity(s string) string {
	switch s {
	case ComplexityOrdinary, ComplexityModerate, ComplexityHigh:
		return s
	default:
		return ""
	}
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
