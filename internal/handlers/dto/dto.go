package dto

import (
	"time"

	"todoList/internal/models/task"
	"todoList/internal/view"
)

// Время на проводе передаётся в миллисекундах Unix.

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     *int64 `json:"due_date,omitempty"`
	ImageURI    string `json:"image_uri"`
}

func (r CreateTaskRequest) Options() []task.TaskOption {
	options := []task.TaskOption{
		task.WithDescription(r.Description),
		task.WithPriority(task.Priority(r.Priority)),
		task.WithImageURI(r.ImageURI),
	}
	if r.DueDate != nil {
		options = append(options, task.WithDueDate(time.UnixMilli(*r.DueDate)))
	}
	return options
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TaskResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
	CreatedAt   int64   `json:"created_at"`
	Priority    string  `json:"priority"`
	DueDate     *int64  `json:"due_date,omitempty"`
	ImageURI    *string `json:"image_uri,omitempty"`
	IsOverdue   bool    `json:"is_overdue"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UnixMilli(),
		Priority:    string(t.Priority),
		ImageURI:    t.ImageURI,
		IsOverdue:   view.IsOverdue(*t, now),
	}
	if t.DueDate != nil {
		ms := t.DueDate.UnixMilli()
		resp.DueDate = &ms
	}
	return resp
}

func FromTaskList(tasks []task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i := range tasks {
		result[i] = FromTask(&tasks[i], now)
	}
	return result
}

// SnapshotEvent is one message of the task event stream.
type SnapshotEvent struct {
	Version uint64         `json:"version"`
	At      int64          `json:"at"`
	Tasks   []TaskResponse `json:"tasks"`
	Stats   view.Stats     `json:"stats"`
}

func FromSnapshot(version uint64, tasks []task.Task, at time.Time) SnapshotEvent {
	return SnapshotEvent{
		Version: version,
		At:      at.UnixMilli(),
		Tasks:   FromTaskList(tasks, at),
		Stats:   view.Compute(tasks, at),
	}
}
