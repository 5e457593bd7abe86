package response

// Response 通用响应结构
type Response struct {
	Msg       string `json:"msg,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
