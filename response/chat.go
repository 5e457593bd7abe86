package response

// ChatResponse 对话接口的响应不使用 Response 包装。
// 模型服务出错时 Answer 为 "API Error: ..." 且不带 SessionToken
type ChatResponse struct {
	Answer       any    `json:"answer"`
	SessionToken string `json:"session_token,omitempty"`
}
