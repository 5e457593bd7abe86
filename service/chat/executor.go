package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"todo-agent-backend/dao"
	"todo-agent-backend/model"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTodoNotFound     = dao.ErrTodoNotFound
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ToolResult 工具调用结果，Content 会原样回传给模型
type ToolResult struct {
	Content string

	// 调用失败的原因，仅用于日志和调用方判断
	Err error
}

func (r ToolResult) IsError() bool {
	return r.Err != nil
}

type toolHandler func(ctx context.Context, user *model.User, args json.RawMessage) (ToolResult, error)

// Executor 在指定用户的范围内执行一次工具调用
type Executor struct {
	handlers map[ToolKind]toolHandler
	now      func() time.Time
}

type ExecutorOption func(*Executor)

// WithExecutorClock 替换 "今天" 的来源
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.now = now
	}
}

func NewExecutor(opts ...ExecutorOption) (*Executor, error) {
	e := &Executor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[ToolKind]toolHandler{
		ToolCreateTodo:      e.createTodo,
		ToolBulkCreateTodos: e.bulkCreateTodos,
		ToolGetTodos:        e.getTodos,
		ToolEditTodo:        e.editTodo,
		ToolDeleteTodos:     e.deleteTodos,
	}
	if err := validateHandlers(registry, e.handlers); err != nil {
		return nil, err
	}
	return e, nil
}

// validateHandlers 注册表中的每个工具都必须有处理函数，反之亦然
func validateHandlers(specs []ToolSpec, handlers map[ToolKind]toolHandler) error {
	known := make(map[ToolKind]bool, len(specs))
	for _, spec := range specs {
		known[spec.Kind] = true
		if _, ok := handlers[spec.Kind]; !ok {
			return fmt.Errorf("tool %q has no handler", spec.Name)
		}
	}
	for kind := range handlers {
		if !known[kind] {
			return fmt.Errorf("handler for tool kind %d is not registered", kind)
		}
	}
	return nil
}

// Execute 执行工具调用，任何失败都会被转换为文本结果，不会中断 Agent 循环
func (e *Executor) Execute(ctx context.Context, name, arguments, username string) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool call panicked",
				"tool", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			result = internalFailure(fmt.Errorf("panic: %v", r))
		}
	}()

	spec, ok := LookupTool(name)
	if !ok {
		slog.Warn("model requested unknown tool", "tool", name)
		return ToolResult{
			Content: fmt.Sprintf("Unknown tool: %s", name),
			Err:     ErrUnknownTool,
		}
	}

	user, err := dao.GetUserByUsername(ctx, username)
	if err != nil {
		slog.Error("failed to resolve acting user", "username", username, "err", err)
		return internalFailure(err)
	}
	if user == nil {
		return ToolResult{Content: "User not found!", Err: ErrUserNotFound}
	}

	args, err := decodeArguments(spec, arguments)
	if err != nil {
		return ToolResult{
			Content: fmt.Sprintf("Invalid arguments for %s: %v", name, err),
			Err:     fmt.Errorf("%w: %v", ErrInvalidArguments, err),
		}
	}

	result, err = e.handlers[spec.Kind](ctx, user, args)
	if err != nil {
		slog.Error("tool call failed",
			"tool", name,
			"user_id", user.ID,
			"err", err,
		)
		return internalFailure(err)
	}
	return result
}

func internalFailure(err error) ToolResult {
	return ToolResult{
		Content: fmt.Sprintf("Something went wrong: %v", err),
		Err:     err,
	}
}

// decodeArguments 校验参数为 JSON 对象且包含所有必填字段
func decodeArguments(spec ToolSpec, arguments string) (json.RawMessage, error) {
	raw := bytes.TrimSpace([]byte(arguments))
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}

	var missing []string
	for _, name := range spec.Required() {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return raw, nil
}

// flexID 同时接受数字和数字字符串形式的 ID
type flexID uint

func (id *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		*id = flexID(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(uint64(f)) {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*id = flexID(f)
	return nil
}

// flexString 接受任意 JSON 值。非字符串值不报错，只标记为无效，由各工具自行默认或忽略
type flexString struct {
	value string
	raw   string
	valid bool
}

func (s *flexString) UnmarshalJSON(b []byte) error {
	s.raw = string(b)
	s.valid = json.Unmarshal(b, &s.value) == nil
	return nil
}

// text 字段缺失或不是字符串时 ok 为 false
func (s *flexString) text() (string, bool) {
	if s == nil || !s.valid {
		return "", false
	}
	return s.value, true
}

// set 字段存在且不是空字符串
func (s *flexString) set() bool {
	return s != nil && !(s.valid && s.value == "")
}

func (s *flexString) date() (time.Time, error) {
	v, ok := s.text()
	if !ok {
		return time.Time{}, fmt.Errorf("date %s is not YYYY-MM-DD", s.raw)
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %s is not YYYY-MM-DD", s.raw)
	}
	return d, nil
}

type todoArgs struct {
	Notes    *string     `json:"notes"`
	Date     *flexString `json:"date"`
	Status   *flexString `json:"status"`
	Priority *flexString `json:"priority"`
}

// newTodo 日期缺失或无法解析时使用今天，状态和优先级无效时使用默认值
func (e *Executor) newTodo(userID uint, args todoArgs) model.Todo {
	todo := model.Todo{
		UserID:   userID,
		Date:     e.today(),
		Status:   model.StatusPending,
		Priority: model.PriorityMedium,
	}
	if args.Notes != nil {
		todo.Notes = *args.Notes
	}
	if args.Date != nil {
		if d, err := args.Date.date(); err == nil {
			todo.Date = d
		} else {
			slog.Debug("falling back to today for malformed date", "date", args.Date.raw)
		}
	}
	if v, ok := args.Status.text(); ok {
		if s, ok := model.ParseStatus(v); ok {
			todo.Status = s
		}
	}
	if v, ok := args.Priority.text(); ok {
		if p, ok := model.ParsePriority(v); ok {
			todo.Priority = p
		}
	}
	return todo
}

func (e *Executor) today() time.Time {
	return model.DateOf(e.now())
}

func (e *Executor) createTodo(ctx context.Context, user *model.User, raw json.RawMessage) (ToolResult, error) {
	var args todoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArguments(ToolNameCreateTodo, err), nil
	}

	todo := e.newTodo(user.ID, args)
	if err := dao.CreateTodo(ctx, &todo); err != nil {
		return ToolResult{}, fmt.Errorf("failed to create todo: %w", err)
	}
	return ToolResult{Content: fmt.Sprintf("Successfully added todo for %s!", user.Username)}, nil
}

func (e *Executor) bulkCreateTodos(ctx context.Context, user *model.User, raw json.RawMessage) (ToolResult, error) {
	var args struct {
		Tasks []todoArgs `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArguments(ToolNameBulkCreateTodos, err), nil
	}

	todos := make([]model.Todo, 0, len(args.Tasks))
	for _, task := range args.Tasks {
		todos = append(todos, e.newTodo(user.ID, task))
	}
	if err := dao.CreateTodos(ctx, todos); err != nil {
		return ToolResult{}, fmt.Errorf("failed to create todos: %w", err)
	}
	return ToolResult{Content: fmt.Sprintf("Successfully created %d tasks in bulk!", len(todos))}, nil
}

type todoView struct {
	ID       uint   `json:"id"`
	Notes    string `json:"notes"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func (e *Executor) getTodos(ctx context.Context, user *model.User, raw json.RawMessage) (ToolResult, error) {
	var args todoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArguments(ToolNameGetTodos, err), nil
	}

	var filter dao.TodoFilter
	if args.Date.set() {
		d, err := args.Date.date()
		if err != nil {
			return invalidArguments(ToolNameGetTodos, err), nil
		}
		filter.Date = &d
	}
	if args.Status.set() {
		v, _ := args.Status.text()
		s, ok := model.ParseStatus(v)
		if !ok {
			return invalidArguments(ToolNameGetTodos, fmt.Errorf("unknown status %s", args.Status.raw)), nil
		}
		filter.Status = &s
	}
	if args.Priority.set() {
		v, _ := args.Priority.text()
		p, ok := model.ParsePriority(v)
		if !ok {
			return invalidArguments(ToolNameGetTodos, fmt.Errorf("unknown priority %s", args.Priority.raw)), nil
		}
		filter.Priority = &p
	}

	todos, err := dao.ListTodos(ctx, user.ID, filter)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to list todos: %w", err)
	}

	views := make([]todoView, 0, len(todos))
	for _, t := range todos {
		views = append(views, todoView{
			ID:       t.ID,
			Notes:    t.Notes,
			Date:     model.FormatDate(t.Date),
			Status:   string(t.Status),
			Priority: string(t.Priority),
		})
	}

	content, err := json.Marshal(views)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to marshal todos: %w", err)
	}
	return ToolResult{Content: string(content)}, nil
}

func (e *Executor) editTodo(ctx context.Context, user *model.User, raw json.RawMessage) (ToolResult, error) {
	var args struct {
		TodoID flexID `json:"todo_id"`
		todoArgs
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArguments(ToolNameEditTodo, err), nil
	}

	// 无效的日期、状态、优先级被忽略，其余字段照常更新
	var update dao.TodoUpdate
	update.Notes = args.Notes
	if args.Date != nil {
		if d, err := args.Date.date(); err == nil {
			update.Date = &d
		}
	}
	if v, ok := args.Status.text(); ok {
		if s, ok := model.ParseStatus(v); ok {
			update.Status = &s
		}
	}
	if v, ok := args.Priority.text(); ok {
		if p, ok := model.ParsePriority(v); ok {
			update.Priority = &p
		}
	}

	todoID := uint(args.TodoID)
	if _, err := dao.UpdateTodo(ctx, user.ID, todoID, update); err != nil {
		if errors.Is(err, ErrTodoNotFound) {
			return ToolResult{
				Content: fmt.Sprintf("Task with ID %d not found.", todoID),
				Err:     ErrTodoNotFound,
			}, nil
		}
		return ToolResult{}, fmt.Errorf("failed to update todo %d: %w", todoID, err)
	}
	return ToolResult{Content: fmt.Sprintf("Task %d has been updated!", todoID)}, nil
}

func (e *Executor) deleteTodos(ctx context.Context, user *model.User, raw json.RawMessage) (ToolResult, error) {
	var args struct {
		TodoIDs []flexID `json:"todo_ids"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return invalidArguments(ToolNameDeleteTodos, err), nil
	}
	if len(args.TodoIDs) == 0 {
		return ToolResult{Content: "No IDs provided to delete."}, nil
	}

	ids := make([]uint, 0, len(args.TodoIDs))
	for _, id := range args.TodoIDs {
		ids = append(ids, uint(id))
	}

	deleted, err := dao.DeleteTodos(ctx, user.ID, ids)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to delete todos: %w", err)
	}
	return ToolResult{Content: fmt.Sprintf("Successfully deleted %d tasks.", deleted)}, nil
}

func invalidArguments(tool string, err error) ToolResult {
	return ToolResult{
		Content: fmt.Sprintf("Invalid arguments for %s: %v", tool, err),
		Err:     fmt.Errorf("%w: %v", ErrInvalidArguments, err),
	}
}
