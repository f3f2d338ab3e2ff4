package coding

import (
	"regexp"
	"strings"
)

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinkBlocks 去掉模型输出中的思考块
func stripThinkBlocks(s string) string {
	return strings.TrimSpace(thinkBlockRe.ReplaceAllString(s, ""))
}

// extractLastJSONObject 从模型输出中截取最后一个配平的顶层 JSON 对象。
// 模型可能在 JSON 前后夹杂多余文本，或输出多个对象；以最后一个为准。
// 未找到配平对象时返回空字符串。
func extractLastJSONObject(s string) string {
	var last string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"' && depth > 0:
			inString = !inString
		case inString:
		case c == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case c == '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					last = s[start : i+1]
					start = -1
				}
			}
		}
	}
	return last
}
