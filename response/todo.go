package response

import "todo-agent-backend/model"

type TodoResponse struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"user_id"`
	Notes    string `json:"notes"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func NewTodoResponse(t *model.Todo) TodoResponse {
	return TodoResponse{
		ID:       t.ID,
		UserID:   t.UserID,
		Notes:    t.Notes,
		Date:     model.FormatDate(t.Date),
		Status:   string(t.Status),
		Priority: string(t.Priority),
	}
}

type GetTodosResponse struct {
	Todos []TodoResponse `json:"todos"`
}
