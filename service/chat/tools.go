package chat

import (
	"encoding/json"
	"fmt"

	"todo-agent-backend/model"

	"github.com/tmc/langchaingo/llms"
)

type ToolKind int

const (
	ToolCreateTodo ToolKind = iota + 1
	ToolBulkCreateTodos
	ToolGetTodos
	ToolEditTodo
	ToolDeleteTodos
)

const (
	ToolNameCreateTodo      = "create_todo"
	ToolNameBulkCreateTodos = "bulk_create_todos"
	ToolNameGetTodos        = "get_todos"
	ToolNameEditTodo        = "edit_todo"
	ToolNameDeleteTodos     = "delete_todos"
)

// ToolSpec 工具的名称、描述和参数 JSON Schema，与发送给模型的定义完全一致
type ToolSpec struct {
	Kind        ToolKind
	Name        string
	Description string
	Parameters  map[string]any
}

// Required 返回 Schema 中声明的必填参数
func (s ToolSpec) Required() []string {
	required, _ := s.Parameters["required"].([]string)
	return required
}

func (s ToolSpec) SchemaJSON() (json.RawMessage, error) {
	return json.Marshal(s.Parameters)
}

var registry = []ToolSpec{
	{
		Kind:        ToolCreateTodo,
		Name:        ToolNameCreateTodo,
		Description: "Create a single new todo item.",
		Parameters: objectSchema(map[string]any{
			"notes":    stringProperty("The task content"),
			"date":     dateProperty("ISO date YYYY-MM-DD. Defaults to today."),
			"status":   statusProperty(),
			"priority": priorityProperty(),
		}, "notes"),
	},
	{
		Kind:        ToolBulkCreateTodos,
		Name:        ToolNameBulkCreateTodos,
		Description: "Create multiple todo items at once.",
		Parameters: objectSchema(map[string]any{
			"tasks": map[string]any{
				"type": "array",
				"items": objectSchema(map[string]any{
					"notes":    stringProperty("The task content"),
					"date":     dateProperty("YYYY-MM-DD"),
					"status":   statusProperty(),
					"priority": priorityProperty(),
				}, "notes"),
			},
		}, "tasks"),
	},
	{
		Kind:        ToolGetTodos,
		Name:        ToolNameGetTodos,
		Description: "Retrieve todos. Can filter by date, status, or priority, or leave every filter out to get all todos of the user.",
		Parameters: objectSchema(map[string]any{
			"date":     dateProperty("YYYY-MM-DD"),
			"status":   statusProperty(),
			"priority": priorityProperty(),
		}),
	},
	{
		Kind:        ToolEditTodo,
		Name:        ToolNameEditTodo,
		Description: "Update an existing todo's details by its ID. Only the given fields are changed.",
		Parameters: objectSchema(map[string]any{
			"todo_id": map[string]any{
				"type":        "integer",
				"description": "The ID of the todo to update",
			},
			"notes":    stringProperty("The task content"),
			"date":     dateProperty("YYYY-MM-DD"),
			"status":   statusProperty(),
			"priority": priorityProperty(),
		}, "todo_id"),
	},
	{
		Kind:        ToolDeleteTodos,
		Name:        ToolNameDeleteTodos,
		Description: "Delete todos using their IDs.",
		Parameters: objectSchema(map[string]any{
			"todo_ids": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
		}, "todo_ids"),
	},
}

var registryByName = func() map[string]ToolSpec {
	m := make(map[string]ToolSpec, len(registry))
	for _, spec := range registry {
		if _, dup := m[spec.Name]; dup {
			panic(fmt.Sprintf("duplicate tool name in registry: %s", spec.Name))
		}
		m[spec.Name] = spec
	}
	return m
}()

// Registry 返回全部工具定义
func Registry() []ToolSpec {
	specs := make([]ToolSpec, len(registry))
	copy(specs, registry)
	return specs
}

func LookupTool(name string) (ToolSpec, bool) {
	spec, ok := registryByName[name]
	return spec, ok
}

// LLMTools 将注册表转换为模型调用时的 tools 参数
func LLMTools() []llms.Tool {
	tools := make([]llms.Tool, 0, len(registry))
	for _, spec := range registry {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return tools
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func dateProperty(description string) map[string]any {
	return stringProperty(description)
}

func statusProperty() map[string]any {
	values := make([]string, 0, len(model.TodoStatuses))
	for _, s := range model.TodoStatuses {
		values = append(values, string(s))
	}
	return map[string]any{
		"type":    "string",
		"enum":    values,
		"default": string(model.StatusPending),
	}
}

func priorityProperty() map[string]any {
	values := make([]string, 0, len(model.TodoPriorities))
	for _, p := range model.TodoPriorities {
		values = append(values, string(p))
	}
	return map[string]any{
		"type":    "string",
		"enum":    values,
		"default": string(model.PriorityMedium),
	}
}
