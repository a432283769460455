package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Priority    Priority   `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	ImageURI    *string    `json:"image_uri,omitempty" db:"image_uri"`
}

type Priority string
type Filter string

const PriorityHigh Priority = "high"
const PriorityMedium Priority = "medium"
const PriorityLow Priority = "low"

const FilterAll Filter = "all"
const FilterActive Filter = "active"
const FilterCompleted Filter = "completed"

// ParsePriority нормализует значение приоритета, пустая строка означает medium
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityLow:
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// ParseFilter нормализует фильтр, пустая строка означает all
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Clone returns a deep copy, optional fields included.
func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.ImageURI != nil {
		u := *t.ImageURI
		c.ImageURI = &u
	}
	return &c
}

// Toggled returns a copy with Completed flipped.
func (t *Task) Toggled() *Task {
	c := t.Clone()
	c.Completed = !c.Completed
	return c
}

// Millis truncates a timestamp to the millisecond precision used on the wire.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}
