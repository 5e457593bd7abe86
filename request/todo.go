package request

// CreateTodoRequest 日期格式为 YYYY-MM-DD，状态和优先级为空时使用默认值
type CreateTodoRequest struct {
	Notes    string `json:"notes" binding:"required"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// UpdateTodoRequest 只更新请求中出现的字段
type UpdateTodoRequest struct {
	Notes    *string `json:"notes"`
	Date     *string `json:"date"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

type ListTodosQuery struct {
	Date     string `form:"date"`
	Status   string `form:"status"`
	Priority string `form:"priority"`
}
