package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"todo-agent-backend/dao"
	"todo-agent-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTodos(t *testing.T, res ToolResult) []todoView {
	t.Helper()
	require.False(t, res.IsError(), res.Content)
	var views []todoView
	require.NoError(t, json.Unmarshal([]byte(res.Content), &views))
	return views
}

func TestCreateThenGetByDateRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"dentist","date":"2025-03-10","priority":"High"}`, "alice")
	require.False(t, res.IsError(), res.Content)
	assert.Equal(t, "Successfully added todo for alice!", res.Content)

	views := decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, `{"date":"2025-03-10"}`, "alice"))
	require.Len(t, views, 1)
	assert.Equal(t, "dentist", views[0].Notes)
	assert.Equal(t, "2025-03-10", views[0].Date)
	assert.Equal(t, "High", views[0].Priority)
	assert.Equal(t, "Pending", views[0].Status)

	assert.Empty(t, decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, `{"date":"2025-03-11"}`, "alice")))
}

func TestCreateTodoDefaultsMalformedDateToToday(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, args := range []string{
		`{"notes":"no date"}`,
		`{"notes":"bad date","date":"next tuesday"}`,
	} {
		res := f.executor.Execute(ctx, ToolNameCreateTodo, args, "alice")
		require.False(t, res.IsError(), res.Content)
	}

	views := decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, `{}`, "alice"))
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, "2025-03-09", v.Date)
	}
}

func TestBulkCreateContinuesPastMalformedDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.executor.Execute(ctx, ToolNameBulkCreateTodos, `{"tasks":[
		{"notes":"a","date":"2025-04-01"},
		{"notes":"b","date":"04/02/2025"},
		{"notes":"c","date":"2025-04-03","status":"InProgress"}
	]}`, "alice")
	require.False(t, res.IsError(), res.Content)
	assert.Equal(t, "Successfully created 3 tasks in bulk!", res.Content)

	views := decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, `{}`, "alice"))
	require.Len(t, views, 3)

	byNotes := make(map[string]todoView)
	for _, v := range views {
		byNotes[v.Notes] = v
	}
	assert.Equal(t, "2025-04-01", byNotes["a"].Date)
	assert.Equal(t, "2025-03-09", byNotes["b"].Date)
	assert.Equal(t, "In Progress", byNotes["c"].Status)
}

func TestBulkCreateToleratesNonStringFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.executor.Execute(ctx, ToolNameBulkCreateTodos, `{"tasks":[
		{"notes":"a","date":"2025-04-01"},
		{"notes":"b","date":20250402,"status":3,"priority":true}
	]}`, "alice")
	require.False(t, res.IsError(), res.Content)
	assert.Equal(t, "Successfully created 2 tasks in bulk!", res.Content)

	views := decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, `{}`, "alice"))
	require.Len(t, views, 2)
	byNotes := make(map[string]todoView)
	for _, v := range views {
		byNotes[v.Notes] = v
	}
	assert.Equal(t, "2025-04-01", byNotes["a"].Date)
	assert.Equal(t, "2025-03-09", byNotes["b"].Date)
	assert.Equal(t, "Pending", byNotes["b"].Status)
	assert.Equal(t, "Medium", byNotes["b"].Priority)
}

func TestGetTodosIsScopedToActingUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		args := fmt.Sprintf(`{"notes":"shared %d","date":"2025-03-10","priority":"High"}`, i)
		f.executor.Execute(ctx, ToolNameCreateTodo, args, "alice")
		f.executor.Execute(ctx, ToolNameCreateTodo, args, "bob")
	}
	f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"bob only"}`, "bob")

	aliceTodos, err := dao.ListTodos(ctx, f.alice.ID, dao.TodoFilter{})
	require.NoError(t, err)
	ownIDs := make(map[uint]bool)
	for _, todo := range aliceTodos {
		ownIDs[todo.ID] = true
	}

	views := decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, ``, "alice"))
	require.Len(t, views, 3)
	for _, v := range views {
		assert.True(t, ownIDs[v.ID], "todo %d does not belong to alice", v.ID)
	}

	filtered := decodeTodos(t, f.executor.Execute(ctx, ToolNameGetTodos, `{"priority":"High","status":"Pending"}`, "alice"))
	assert.Len(t, filtered, 3)
}

func TestGetTodosEmptyIsArray(t *testing.T) {
	f := setup(t)
	res := f.executor.Execute(context.Background(), ToolNameGetTodos, `{"status":"Completed"}`, "alice")
	require.False(t, res.IsError())
	assert.Equal(t, "[]", res.Content)
}

func TestGetTodosRejectsBadFilter(t *testing.T) {
	f := setup(t)
	res := f.executor.Execute(context.Background(), ToolNameGetTodos, `{"date":"tomorrow"}`, "alice")
	assert.ErrorIs(t, res.Err, ErrInvalidArguments)
	assert.Contains(t, res.Content, "YYYY-MM-DD")
}

func TestEditTodoIgnoresMalformedDateButAppliesOtherFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"draft","date":"2025-03-10"}`, "alice")
	todos, err := dao.ListTodos(ctx, f.alice.ID, dao.TodoFilter{})
	require.NoError(t, err)
	require.Len(t, todos, 1)
	id := todos[0].ID

	args := fmt.Sprintf(`{"todo_id":%d,"notes":"final","date":"someday","status":"Completed"}`, id)
	res := f.executor.Execute(ctx, ToolNameEditTodo, args, "alice")
	require.False(t, res.IsError(), res.Content)
	assert.Equal(t, fmt.Sprintf("Task %d has been updated!", id), res.Content)

	todo, err := dao.GetTodo(ctx, f.alice.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "final", todo.Notes)
	assert.Equal(t, model.StatusCompleted, todo.Status)
	assert.Equal(t, "2025-03-10", model.FormatDate(todo.Date))
	assert.Equal(t, model.PriorityMedium, todo.Priority)
}

func TestEditTodoIgnoresNonStringDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"draft","date":"2025-03-10"}`, "alice")
	todos, err := dao.ListTodos(ctx, f.alice.ID, dao.TodoFilter{})
	require.NoError(t, err)
	require.Len(t, todos, 1)
	id := todos[0].ID

	args := fmt.Sprintf(`{"todo_id":%d,"date":20250601,"priority":"High","notes":"changed"}`, id)
	res := f.executor.Execute(ctx, ToolNameEditTodo, args, "alice")
	require.False(t, res.IsError(), res.Content)

	todo, err := dao.GetTodo(ctx, f.alice.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "changed", todo.Notes)
	assert.Equal(t, model.PriorityHigh, todo.Priority)
	assert.Equal(t, "2025-03-10", model.FormatDate(todo.Date))
}

func TestGetTodosRejectsNonStringDateFilter(t *testing.T) {
	f := setup(t)
	res := f.executor.Execute(context.Background(), ToolNameGetTodos, `{"date":20250310}`, "alice")
	assert.ErrorIs(t, res.Err, ErrInvalidArguments)
	assert.Contains(t, res.Content, "date 20250310 is not YYYY-MM-DD")
}

func TestEditTodoNotFoundLooksTheSameForForeignRows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"bob's"}`, "bob")
	bobTodos, err := dao.ListTodos(ctx, f.bob.ID, dao.TodoFilter{})
	require.NoError(t, err)
	foreignID := bobTodos[0].ID

	foreign := f.executor.Execute(ctx, ToolNameEditTodo, fmt.Sprintf(`{"todo_id":%d,"notes":"mine now"}`, foreignID), "alice")
	assert.ErrorIs(t, foreign.Err, ErrTodoNotFound)
	assert.Equal(t, fmt.Sprintf("Task with ID %d not found.", foreignID), foreign.Content)

	missing := f.executor.Execute(ctx, ToolNameEditTodo, `{"todo_id":"424242"}`, "alice")
	assert.ErrorIs(t, missing.Err, ErrTodoNotFound)
	assert.Equal(t, "Task with ID 424242 not found.", missing.Content)

	todo, err := dao.GetTodo(ctx, f.bob.ID, foreignID)
	require.NoError(t, err)
	assert.Equal(t, "bob's", todo.Notes)
}

func TestDeleteTodosSkipsForeignIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"bob's"}`, "bob")
	bobTodos, err := dao.ListTodos(ctx, f.bob.ID, dao.TodoFilter{})
	require.NoError(t, err)

	res := f.executor.Execute(ctx, ToolNameDeleteTodos, fmt.Sprintf(`{"todo_ids":[%d]}`, bobTodos[0].ID), "alice")
	require.False(t, res.IsError(), res.Content)
	assert.Equal(t, "Successfully deleted 0 tasks.", res.Content)

	after, err := dao.ListTodos(ctx, f.bob.ID, dao.TodoFilter{})
	require.NoError(t, err)
	assert.Len(t, after, 1)
}

func TestDeleteTodosDeletesOwnedOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.executor.Execute(ctx, ToolNameBulkCreateTodos, `{"tasks":[{"notes":"a"},{"notes":"b"}]}`, "alice")
	f.executor.Execute(ctx, ToolNameCreateTodo, `{"notes":"c"}`, "bob")

	aliceTodos, _ := dao.ListTodos(ctx, f.alice.ID, dao.TodoFilter{})
	bobTodos, _ := dao.ListTodos(ctx, f.bob.ID, dao.TodoFilter{})

	args := fmt.Sprintf(`{"todo_ids":[%d,"%d",%d]}`, aliceTodos[0].ID, aliceTodos[1].ID, bobTodos[0].ID)
	res := f.executor.Execute(ctx, ToolNameDeleteTodos, args, "alice")
	assert.Equal(t, "Successfully deleted 2 tasks.", res.Content)
}

func TestDeleteTodosEmptyList(t *testing.T) {
	f := setup(t)
	res := f.executor.Execute(context.Background(), ToolNameDeleteTodos, `{"todo_ids":[]}`, "alice")
	require.False(t, res.IsError())
	assert.Equal(t, "No IDs provided to delete.", res.Content)
}

func TestExecuteFailuresBecomeText(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	unknown := f.executor.Execute(ctx, "drop_database", `{}`, "alice")
	assert.ErrorIs(t, unknown.Err, ErrUnknownTool)
	assert.Equal(t, "Unknown tool: drop_database", unknown.Content)

	noUser := f.executor.Execute(ctx, ToolNameGetTodos, `{}`, "mallory")
	assert.ErrorIs(t, noUser.Err, ErrUserNotFound)
	assert.Equal(t, "User not found!", noUser.Content)

	missing := f.executor.Execute(ctx, ToolNameEditTodo, `{"notes":"x"}`, "alice")
	assert.ErrorIs(t, missing.Err, ErrInvalidArguments)
	assert.Contains(t, missing.Content, "todo_id")

	notObject := f.executor.Execute(ctx, ToolNameCreateTodo, `["notes"]`, "alice")
	assert.ErrorIs(t, notObject.Err, ErrInvalidArguments)

	badID := f.executor.Execute(ctx, ToolNameDeleteTodos, `{"todo_ids":["abc"]}`, "alice")
	assert.ErrorIs(t, badID.Err, ErrInvalidArguments)
}

func TestFlexID(t *testing.T) {
	for in, want := range map[string]flexID{`7`: 7, `"8"`: 8, `9.0`: 9} {
		var id flexID
		require.NoError(t, json.Unmarshal([]byte(in), &id), in)
		assert.Equal(t, want, id)
	}

	var id flexID
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &id))
	assert.Error(t, json.Unmarshal([]byte(`-1`), &id))
}
