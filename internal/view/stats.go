package view

import (
	"math"
	"time"

	"todoList/internal/models/task"
)

const week = 7 * 24 * time.Hour

type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type Stats struct {
	Total             int            `json:"total"`
	Completed         int            `json:"completed"`
	Active            int            `json:"active"`
	CompletionRate    int            `json:"completion_rate"`
	ByPriority        PriorityCounts `json:"by_priority"`
	Overdue           int            `json:"overdue"`
	DueToday          int            `json:"due_today"`
	CompletedThisWeek int            `json:"completed_this_week"`
}

// Compute aggregates the whole collection. Calendar comparisons use the
// location of now.
func Compute(tasks []task.Task, now time.Time) Stats {
	st := Stats{Total: len(tasks)}
	today := Midnight(now, now.Location())
	weekAgo := now.Add(-week)

	for _, t := range tasks {
		if t.Completed {
			st.Completed++
			if !t.CreatedAt.Before(weekAgo) {
				st.CompletedThisWeek++
			}
			continue
		}

		switch t.Priority {
		case task.PriorityHigh:
			st.ByPriority.High++
		case task.PriorityMedium:
			st.ByPriority.Medium++
		case task.PriorityLow:
			st.ByPriority.Low++
		}

		if t.DueDate == nil {
			continue
		}
		due := Midnight(*t.DueDate, now.Location())
		switch {
		case due.Before(today):
			st.Overdue++
		case due.Equal(today):
			st.DueToday++
		}
	}

	st.Active = st.Total - st.Completed
	st.CompletionRate = CompletionRate(st.Completed, st.Total)
	return st
}

// CompletionRate rounds half up, 0 for an empty collection.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(completed)/float64(total)*100 + 0.5))
}

// Midnight returns the start of t's calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsOverdue reports whether an incomplete task's due day is before now's day.
func IsOverdue(t task.Task, now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return Midnight(*t.DueDate, now.Location()).Before(Midnight(now, now.Location()))
}
