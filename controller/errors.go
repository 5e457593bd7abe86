package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister  = errors.New("failed to register user")
	ErrUserExists    = errors.New("username or email already registered")
	ErrGenerateToken = errors.New("failed to generate token")
	ErrUserLogin     = errors.New("incorrect username or password")
	ErrInactiveUser  = errors.New("user is inactive")

	ErrCreateTodo  = errors.New("failed to create todo")
	ErrGetTodos    = errors.New("failed to get todos")
	ErrUpdateTodo  = errors.New("failed to update todo")
	ErrDeleteTodo  = errors.New("failed to delete todo")
	ErrTodoMissing = errors.New("todo not found or you don't have permission")
	ErrInvalidTodo = errors.New("invalid todo field")

	ErrGetSessions        = errors.New("failed to get chat sessions")
	ErrSessionNotFound    = errors.New("chat session not found")
	ErrDeleteSession      = errors.New("failed to delete chat session")
	ErrGetSessionMessages = errors.New("failed to get session messages")

	ErrMissingSessionToken = errors.New("session_token is required")
	ErrCallAgent           = errors.New("error while calling agent")
	ErrUpgradeWebSocket    = errors.New("failed to upgrade websocket")
)
