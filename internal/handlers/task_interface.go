package handlers

import (
	"context"
	"time"

	"todoList/internal/models/task"
	"todoList/internal/service"
	"todoList/internal/theme"
	"todoList/internal/view"

	"github.com/google/uuid"
)

type Service interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, string, ...task.TaskOption) (*task.Task, error)
	GetTaskByID(context.Context, uuid.UUID) (*task.Task, error)
	ToggleTask(context.Context, uuid.UUID) (*task.Task, error)
	DeleteTask(context.Context, uuid.UUID) error
	ListTasks(context.Context, task.Filter, string) ([]task.Task, error)
	GetStats(context.Context) (view.Stats, error)
	Snapshot(context.Context) (service.Snapshot, error)
	Subscribe(func(service.Snapshot)) func()
	Now() time.Time
}

type ThemeStore interface {
	Current() theme.Theme
	Toggle() theme.Theme
}

var (
	_ Service    = (*service.TaskService)(nil)
	_ ThemeStore = (*theme.Store)(nil)
)
