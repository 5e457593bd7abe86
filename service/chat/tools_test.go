package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCatalog(t *testing.T) {
	names := make([]string, 0)
	for _, spec := range Registry() {
		names = append(names, spec.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolNameCreateTodo,
		ToolNameBulkCreateTodos,
		ToolNameGetTodos,
		ToolNameEditTodo,
		ToolNameDeleteTodos,
	}, names)

	spec, ok := LookupTool(ToolNameEditTodo)
	require.True(t, ok)
	assert.Equal(t, []string{"todo_id"}, spec.Required())

	get, _ := LookupTool(ToolNameGetTodos)
	assert.Empty(t, get.Required())

	_, ok = LookupTool("drop_database")
	assert.False(t, ok)
}

func TestLLMToolsMirrorRegistry(t *testing.T) {
	tools := LLMTools()
	require.Len(t, tools, len(Registry()))

	for i, tool := range tools {
		spec := Registry()[i]
		assert.Equal(t, "function", tool.Type)
		assert.Equal(t, spec.Name, tool.Function.Name)

		fromTool, err := json.Marshal(tool.Function.Parameters)
		require.NoError(t, err)
		fromSpec, err := spec.SchemaJSON()
		require.NoError(t, err)
		assert.JSONEq(t, string(fromSpec), string(fromTool))
	}
}

func TestStatusSchemaEnumeratesAllStatuses(t *testing.T) {
	spec, _ := LookupTool(ToolNameEditTodo)
	raw, err := spec.SchemaJSON()
	require.NoError(t, err)

	var schema struct {
		Properties map[string]struct {
			Enum []string `json:"enum"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, []string{"Pending", "In Progress", "Completed", "Cancelled"}, schema.Properties["status"].Enum)
	assert.Equal(t, []string{"Low", "Medium", "High"}, schema.Properties["priority"].Enum)
}

func TestValidateHandlersLockstep(t *testing.T) {
	noop := func() map[ToolKind]toolHandler {
		handlers := make(map[ToolKind]toolHandler)
		for _, spec := range Registry() {
			handlers[spec.Kind] = nil
		}
		return handlers
	}

	require.NoError(t, validateHandlers(Registry(), noop()))

	missing := noop()
	delete(missing, ToolDeleteTodos)
	assert.ErrorContains(t, validateHandlers(Registry(), missing), "delete_todos")

	extra := noop()
	extra[ToolKind(99)] = nil
	assert.Error(t, validateHandlers(Registry(), extra))
}
