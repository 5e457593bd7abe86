package model

import (
	"strings"
	"time"
)

type TodoStatus string

const (
	StatusPending    TodoStatus = "Pending"
	StatusInProgress TodoStatus = "In Progress"
	StatusCompleted  TodoStatus = "Completed"
	StatusCancelled  TodoStatus = "Cancelled"
)

var TodoStatuses = []TodoStatus{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

type TodoPriority string

const (
	PriorityLow    TodoPriority = "Low"
	PriorityMedium TodoPriority = "Medium"
	PriorityHigh   TodoPriority = "High"
)

var TodoPriorities = []TodoPriority{PriorityLow, PriorityMedium, PriorityHigh}

// Todo 的 Date 为日历日期，统一存储为 UTC 零点
type Todo struct {
	ID       uint         `gorm:"primarykey" json:"id"`
	UserID   uint         `gorm:"not null;index" json:"user_id"`
	Notes    string       `gorm:"type:text" json:"notes"`
	Date     time.Time    `gorm:"not null;index" json:"date"`
	Status   TodoStatus   `gorm:"not null;size:32;default:Pending" json:"status"`
	Priority TodoPriority `gorm:"not null;size:16;default:Medium" json:"priority"`
}

func (Todo) TableName() string {
	return "todos"
}

// ParseStatus 忽略大小写、空格和下划线，"InProgress"、"in_progress" 都映射到 "In Progress"
func ParseStatus(s string) (TodoStatus, bool) {
	key := normalizeEnum(s)
	for _, status := range TodoStatuses {
		if normalizeEnum(string(status)) == key {
			return status, true
		}
	}
	return "", false
}

func ParsePriority(s string) (TodoPriority, bool) {
	key := normalizeEnum(s)
	for _, priority := range TodoPriorities {
		if normalizeEnum(string(priority)) == key {
			return priority, true
		}
	}
	return "", false
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// DateOf 截取日历日期
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
