package coding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLastJSONObject(t *testing.T) {
	t.Run("纯 JSON", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, extractLastJSONObject(`{"a":1}`))
	})

	t.Run("夹杂文本", func(t *testing.T) {
		assert.Equal(t, `{"a":1}`, extractLastJSONObject(`prefix {"a":1} suffix`))
	})

	t.Run("多个对象取最后一个", func(t *testing.T) {
		assert.Equal(t, `{"b":2}`, extractLastJSONObject(`{"a":1} then {"b":2}`))
	})

	t.Run("嵌套对象", func(t *testing.T) {
		in := `result: {"a": {"b": {"c": 1}}, "d": [1, 2]}`
		assert.Equal(t, `{"a": {"b": {"c": 1}}, "d": [1, 2]}`, extractLastJSONObject(in))
	})

	t.Run("字符串内的大括号不参与配平", func(t *testing.T) {
		in := `{"text": "a } tricky { value"}`
		assert.Equal(t, in, extractLastJSONObject(in))
	})

	t.Run("未闭合对象回退到前一个完整对象", func(t *testing.T) {
		in := `{"a":1} trailing {"b": `
		assert.Equal(t, `{"a":1}`, extractLastJSONObject(in))
	})

	t.Run("无 JSON 返回空", func(t *testing.T) {
		assert.Equal(t, "", extractLastJSONObject("no json here"))
	})
}

func TestStripThinkBlocks(t *testing.T) {
	in := "<think>reasoning\nacross lines</think>  answer"
	assert.Equal(t, "answer", stripThinkBlocks(in))

	assert.Equal(t, "plain", stripThinkBlocks("plain"))
}
