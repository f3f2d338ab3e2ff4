// Package coding 实现编码建议流水线：向量召回、资格过滤、交叉重排与 LLM 推理选择
package coding

import (
	"mbs-coding-api/internal/domain/entity"
)

// SuggestInput 建议请求输入
type SuggestInput struct {
	CategoryID    string
	FreeText      string
	Age           *float64
	Provider      string
	Duration      *float64
	Location      string
	Sex           entity.PatientSex
	TopN          int
	WithReasoning bool
}

// ScoredCandidate 候选条目及其评分
// RerankScore 为 nil 表示重排阶段被跳过
type ScoredCandidate struct {
	Item        entity.CandidateItem `json:"item"`
	Similarity  float64              `json:"similarity"`
	RerankScore *float64             `json:"rerank_score,omitempty"`
}

// Score 排序用最终得分：有重排分用重排分，否则用向量相似度
func (c ScoredCandidate) Score() float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.Similarity
}

// ReasoningResult 推理选择结果
type ReasoningResult struct {
	SelectedIndex int                  `json:"selected_index"`
	Item          entity.CandidateItem `json:"item"`
	Confidence    float64              `json:"confidence"`
	Justification string               `json:"justification"`
	KeyFactors    []string             `json:"key_factors"`
	Truncated     bool                 `json:"truncated"`
}

// SuggestOutput 建议请求输出
// 过滤后无合格候选是正常的终态，不是错误
type SuggestOutput struct {
	Candidates           []ScoredCandidate `json:"candidates"`
	Reasoning            *ReasoningResult  `json:"reasoning,omitempty"`
	Complexity           string            `json:"complexity,omitempty"`
	NoEligibleCandidates bool              `json:"no_eligible_candidates"`
	Warnings             []string          `json:"warnings,omitempty"`
}

// 降级告警标识
const (
	WarnRerankSkipped      = "rerank_skipped"
	WarnReasoningSkipped   = "reasoning_skipped"
	WarnReasoningTruncated = "reasoning_truncated"
	WarnComplexityUnknown  = "complexity_unavailable"
)

// BuildResult 索引构建结果
type BuildResult struct {
	CategoryID string `json:"category_id"`
	Items      int    `json:"items"`
}
