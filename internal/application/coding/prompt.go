package coding

import (
	"fmt"
	"strings"
)

// buildReasoningPrompt 构造推理选择提示词
// 候选按当前排序编号，索引从 0 开始，与返回的 selected_index 对应
func buildReasoningPrompt(narrative string, candidates []ScoredCandidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "Candidate %d (score: %.3f):\n", i, c.Score())
		fmt.Fprintf(&sb, "- Item Number: %s\n", c.Item.ItemNumber)
		if c.Item.ServiceSummary != "" {
			fmt.Fprintf(&sb, "- Service Summary: %s\n", c.Item.ServiceSummary)
		}
		if c.Item.Provider != "" {
			fmt.Fprintf(&sb, "- Provider: %s\n", c.Item.Provider)
		}
		if c.Item.Location != "" {
			fmt.Fprintf(&sb, "- Location: %s\n", c.Item.Location)
		}
		fmt.Fprintf(&sb, "- Age Range: %g-%g\n", c.Item.AgeRange.Start, c.Item.AgeRange.End)
		fmt.Fprintf(&sb, "- Duration: %g-%g min\n", c.Item.TimeRange.Start, c.Item.TimeRange.End)
		sb.WriteString("\n")
	}

	return fmt.Sprintf(`You are a medical item claiming expert. Choose the single most appropriate item from the candidates.

Patient Information:
%s

Candidate Items:
%s
Decision rules:
- Prioritize the candidate's service summary as the primary determinant of clinical fit.
- Then verify: age appropriateness, provider type, location suitability, duration requirements, and similarity score.
- Be precise and conservative. Do not invent facts; use only visible patient evidence.
- If multiple items are eligible, tie-break by: (1) best match to the service summary; (2) stricter criteria; (3) higher score.

Return ONLY compact JSON with this exact shape:
{
  "selected_index": 0,
  "confidence": 0.8,
  "reasoning": "why this item matches, <=2 sentences, starting from the service summary",
  "key_factors": ["factor1", "factor2", "factor3"]
}

Formatting constraints:
- selected_index MUST be an integer in [0, %d].
- Output STRICT JSON only, no extra text.`,
		strings.TrimSpace(narrative), sb.String(), len(candidates)-1)
}

// complexityPrompt 构造就诊复杂度判定提示词
func complexityPrompt(narrative string) string {
	return fmt.Sprintf(`You are a medical triage assistant. Read the following clinical note and estimate its complexity level.

Clinical note:
%s

Definitions:
- "Ordinary complexity": single-system issue, no comorbidities, limited differential. Targeted history/exam, management plan, and discharge home. No observation required.
- "Complexity that is more than ordinary but not high": undifferentiated presentation or clear diagnosis needing risk stratification. Time-consuming or multi-strategy management, may include observation or routine point-of-care procedures. Admission possible.
- "High complexity": undifferentiated patient with comorbidities and multiple differentials. Requires specialist consultation, admission planning, and care coordination. Often prolonged observation or short-stay admission.

Return ONLY compact JSON:
{
  "complexity_level": "Ordinary complexity|Complexity that is more than ordinary but not high|High complexity",
  "reasoning": "1 short sentence"
}`, strings.TrimSpace(narrative))
}
