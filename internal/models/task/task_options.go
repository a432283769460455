package task

import (
	"strings"
	"time"
)

// опции применяются только при создании задачи, после создания меняется лишь Completed
type TaskOption func(*Task)

func WithDescription(description string) TaskOption {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = &description
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	if dueDate.IsZero() {
		return nil
	}
	dueDate = Millis(dueDate)
	return func(task *Task) {
		task.DueDate = &dueDate
	}
}

func WithImageURI(uri string) TaskOption {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil
	}
	return func(task *Task) {
		task.ImageURI = &uri
	}
}

// Apply пропускает nil-опции, которые возвращаются для пустых значений
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
