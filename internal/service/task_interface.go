package service

import (
	"context"
	"time"

	"todoList/internal/models/task"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	GetAll(context.Context) ([]*task.Task, error)
	GetDueBefore(context.Context, time.Time) ([]*task.Task, error)
	Toggle(context.Context, uuid.UUID) (*task.Task, error)
	Delete(context.Context, uuid.UUID) error
}
