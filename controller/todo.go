package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"todo-agent-backend/dao"
	"todo-agent-backend/middleware"
	"todo-agent-backend/model"
	"todo-agent-backend/request"
	"todo-agent-backend/response"

	"github.com/gin-gonic/gin"
)

func CreateTodo(c *gin.Context) {
	var req request.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	user := middleware.CurrentUser(c)
	todo := model.Todo{
		UserID:   user.ID,
		Notes:    req.Notes,
		Date:     model.DateOf(time.Now()),
		Status:   model.StatusPending,
		Priority: model.PriorityMedium,
	}

	// 与工具调用不同，HTTP 接口对无效字段直接返回 400
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			abortInvalidField(c, "date", req.Date)
			return
		}
		todo.Date = d
	}
	if req.Status != "" {
		s, ok := model.ParseStatus(req.Status)
		if !ok {
			abortInvalidField(c, "status", req.Status)
			return
		}
		todo.Status = s
	}
	if req.Priority != "" {
		p, ok := model.ParsePriority(req.Priority)
		if !ok {
			abortInvalidField(c, "priority", req.Priority)
			return
		}
		todo.Priority = p
	}

	if err := dao.CreateTodo(c.Request.Context(), &todo); err != nil {
		slog.Error(ErrCreateTodo.Error(), "user_id", user.ID, "err", err)
		abortInternal(c, ErrCreateTodo)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.NewTodoResponse(&todo),
	})
}

func GetTodos(c *gin.Context) {
	var query request.ListTodosQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	var filter dao.TodoFilter
	if query.Date != "" {
		d, err := model.ParseDate(query.Date)
		if err != nil {
			abortInvalidField(c, "date", query.Date)
			return
		}
		filter.Date = &d
	}
	if query.Status != "" {
		s, ok := model.ParseStatus(query.Status)
		if !ok {
			abortInvalidField(c, "status", query.Status)
			return
		}
		filter.Status = &s
	}
	if query.Priority != "" {
		p, ok := model.ParsePriority(query.Priority)
		if !ok {
			abortInvalidField(c, "priority", query.Priority)
			return
		}
		filter.Priority = &p
	}

	user := middleware.CurrentUser(c)
	todos, err := dao.ListTodos(c.Request.Context(), user.ID, filter)
	if err != nil {
		slog.Error(ErrGetTodos.Error(), "user_id", user.ID, "err", err)
		abortInternal(c, ErrGetTodos)
		return
	}

	resp := response.GetTodosResponse{
		Todos: make([]response.TodoResponse, 0, len(todos)),
	}
	for i := range todos {
		resp.Todos = append(resp.Todos, response.NewTodoResponse(&todos[i]))
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

func UpdateTodo(c *gin.Context) {
	todoID, ok := todoIDParam(c)
	if !ok {
		return
	}

	var req request.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	update := dao.TodoUpdate{Notes: req.Notes}
	if req.Date != nil {
		d, err := model.ParseDate(*req.Date)
		if err != nil {
			abortInvalidField(c, "date", *req.Date)
			return
		}
		update.Date = &d
	}
	if req.Status != nil {
		s, ok := model.ParseStatus(*req.Status)
		if !ok {
			abortInvalidField(c, "status", *req.Status)
			return
		}
		update.Status = &s
	}
	if req.Priority != nil {
		p, ok := model.ParsePriority(*req.Priority)
		if !ok {
			abortInvalidField(c, "priority", *req.Priority)
			return
		}
		update.Priority = &p
	}

	user := middleware.CurrentUser(c)
	todo, err := dao.UpdateTodo(c.Request.Context(), user.ID, todoID, update)
	if errors.Is(err, dao.ErrTodoNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrTodoMissing.Error(),
		})
		return
	}
	if err != nil {
		slog.Error(ErrUpdateTodo.Error(), "user_id", user.ID, "todo_id", todoID, "err", err)
		abortInternal(c, ErrUpdateTodo)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.NewTodoResponse(todo),
	})
}

func DeleteTodo(c *gin.Context) {
	todoID, ok := todoIDParam(c)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	deleted, err := dao.DeleteTodos(c.Request.Context(), user.ID, []uint{todoID})
	if err != nil {
		slog.Error(ErrDeleteTodo.Error(), "user_id", user.ID, "todo_id", todoID, "err", err)
		abortInternal(c, ErrDeleteTodo)
		return
	}
	if deleted == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrTodoMissing.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func todoIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return 0, false
	}
	return uint(id), true
}

func abortInvalidField(c *gin.Context, field, value string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
		Msg: fmt.Sprintf("%s: %s %q", ErrInvalidTodo.Error(), field, value),
	})
}
