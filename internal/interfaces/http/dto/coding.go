package dto

import (
	"mbs-coding-api/internal/application/coding"
	"mbs-coding-api/internal/domain/entity"
)

// SuggestRequest 编码建议请求
// category_id 可省略，缺省时由流水线补为配置的默认类目
type SuggestRequest struct {
	CategoryID string `json:"category_id,omitempty"`
	FreeText   string `json:"free_text" binding:"required"`

	Age      *float64 `json:"age,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Location string   `json:"location,omitempty"`
	Sex      string   `json:"sex,omitempty"`

	TopN          int  `json:"top_n,omitempty"`
	WithReasoning bool `json:"with_reasoning,omitempty"`
}

// ToInput 转换为应用层输入
func (r *SuggestRequest) ToInput() coding.SuggestInput {
	return coding.SuggestInput{
		CategoryID:    r.CategoryID,
		FreeText:      r.FreeText,
		Age:           r.Age,
		Provider:      r.Provider,
		Duration:      r.Duration,
		Location:      r.Location,
		Sex:           entity.ParsePatientSex(r.Sex),
		TopN:          r.TopN,
		WithReasoning: r.WithReasoning,
	}
}

// CandidateResponse 单个候选条目响应
type CandidateResponse struct {
	ItemNumber     string   `json:"item_number"`
	ServiceSummary string   `json:"service_summary"`
	Provider       string   `json:"provider,omitempty"`
	Location       string   `json:"location,omitempty"`
	Similarity     float64  `json:"similarity"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
}

// ReasoningResponse 推理选择结果响应
type ReasoningResponse struct {
	SelectedIndex int      `json:"selected_index"`
	ItemNumber    string   `json:"item_number"`
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification"`
	KeyFactors    []string `json:"key_factors,omitempty"`
}

// SuggestResponse 编码建议响应
type SuggestResponse struct {
	Candidates           []CandidateResponse `json:"candidates"`
	Reasoning            *ReasoningResponse  `json:"reasoning,omitempty"`
	Complexity           string              `json:"complexity,omitempty"`
	NoEligibleCandidates bool                `json:"no_eligible_candidates"`
	Warnings             []string            `json:"warnings,omitempty"`
}

// NewSuggestResponse 从应用层输出构造响应
func NewSuggestResponse(out *coding.SuggestOutput) *SuggestResponse {
	resp := &SuggestResponse{
		Candidates:           make([]CandidateResponse, 0, len(out.Candidates)),
		Complexity:           out.Complexity,
		NoEligibleCandidates: out.NoEligibleCandidates,
		Warnings:             out.Warnings,
	}
	for _, c := range out.Candidates {
		resp.Candidates = append(resp.Candidates, CandidateResponse{
			ItemNumber:     c.Item.ItemNumber,
			ServiceSummary: c.Item.ServiceSummary,
			Provider:       c.Item.Provider,
			Location:       c.Item.Location,
			Similarity:     c.Similarity,
			RerankScore:    c.RerankScore,
		})
	}
	if out.Reasoning != nil {
		resp.Reasoning = &ReasoningResponse{
			SelectedIndex: out.Reasoning.SelectedIndex,
			ItemNumber:    out.Reasoning.Item.ItemNumber,
			Confidence:    out.Reasoning.Confidence,
			Justification: out.Reasoning.Justification,
			KeyFactors:    out.Reasoning.KeyFactors,
		}
	}
	return resp
}
