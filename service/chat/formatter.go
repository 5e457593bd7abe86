package chat

import (
	"encoding/json"
	"strings"
)

const jsonFence = "```json"

// FormatAnswer 从模型最终输出中提取结构化内容：
// 先取第一个 ```json 代码块，其次尝试以 [ 开头的 JSON 数组，否则原样返回文本
func FormatAnswer(text string) any {
	if text == "" {
		return text
	}

	if idx := strings.Index(text, jsonFence); idx != -1 {
		block := text[idx+len(jsonFence):]
		if end := strings.Index(block, "```"); end != -1 {
			block = block[:end]
		}
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(block)), &v); err == nil {
			return v
		}
		return text
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var v []any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return text
}
