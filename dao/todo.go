package dao

import (
	"context"
	"errors"
	"time"

	"todo-agent-backend/model"

	"gorm.io/gorm"
)

var ErrTodoNotFound = errors.New("todo not found")

// TodoFilter 为空的字段不参与过滤
type TodoFilter struct {
	Date     *time.Time
	Status   *model.TodoStatus
	Priority *model.TodoPriority
}

// TodoUpdate 仅非空字段会被更新
type TodoUpdate struct {
	Notes    *string
	Date     *time.Time
	Status   *model.TodoStatus
	Priority *model.TodoPriority
}

func (u TodoUpdate) columns() map[string]any {
	cols := make(map[string]any)
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	}
	if u.Date != nil {
		cols["date"] = model.DateOf(*u.Date)
	}
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.Priority != nil {
		cols["priority"] = *u.Priority
	}
	return cols
}

func CreateTodo(ctx context.Context, todo *model.Todo) error {
	todo.Date = model.DateOf(todo.Date)
	return DB.WithContext(ctx).Create(todo).Error
}

func CreateTodos(ctx context.Context, todos []model.Todo) error {
	if len(todos) == 0 {
		return nil
	}
	for i := range todos {
		todos[i].Date = model.DateOf(todos[i].Date)
	}
	return DB.WithContext(ctx).CreateInBatches(todos, 100).Error
}

// ListTodos 返回用户的待办事项，日期按日历日匹配
func ListTodos(ctx context.Context, userID uint, filter TodoFilter) ([]model.Todo, error) {
	query := DB.WithContext(ctx).Where("user_id = ?", userID)

	if filter.Date != nil {
		start := model.DateOf(*filter.Date)
		query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 0, 1))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}

	todos := make([]model.Todo, 0)
	if err := query.Order("date ASC, id ASC").Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodo 不属于该用户的待办事项同样返回 ErrTodoNotFound
func GetTodo(ctx context.Context, userID, todoID uint) (*model.Todo, error) {
	var todo model.Todo
	if err := DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", todoID, userID).
		First(&todo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

func UpdateTodo(ctx context.Context, userID, todoID uint, update TodoUpdate) (*model.Todo, error) {
	todo, err := GetTodo(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}

	cols := update.columns()
	if len(cols) == 0 {
		return todo, nil
	}

	if err := DB.WithContext(ctx).
		Model(todo).
		Where("user_id = ?", userID).
		Updates(cols).Error; err != nil {
		return nil, err
	}
	return GetTodo(ctx, userID, todoID)
}

// DeleteTodos 只删除属于该用户的待办事项，返回实际删除的数量
func DeleteTodos(ctx context.Context, userID uint, todoIDs []uint) (int64, error) {
	if len(todoIDs) == 0 {
		return 0, nil
	}
	result := DB.WithContext(ctx).
		Where("id IN ? AND user_id = ?", todoIDs, userID).
		Delete(&model.Todo{})
	return result.RowsAffected, result.Error
}
