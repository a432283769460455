// Package view derives display lists and statistics from a task snapshot.
// Every function here is pure and never mutates its input.
package view

import (
	"slices"
	"strings"

	"todoList/internal/models/task"
)

// Apply filters tasks by completion state and query, then orders them:
// incomplete first, newest CreatedAt first inside each group. Ties keep the
// input order.
func Apply(tasks []task.Task, filter task.Filter, query string) []task.Task {
	query = strings.ToLower(strings.TrimSpace(query))

	res := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchFilter(t, filter) {
			continue
		}
		if query != "" && !matchQuery(t, query) {
			continue
		}
		res = append(res, t)
	}

	slices.SortStableFunc(res, compare)
	return res
}

func matchFilter(t task.Task, filter task.Filter) bool {
	switch filter {
	case task.FilterActive:
		return !t.Completed
	case task.FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// query уже в нижнем регистре
func matchQuery(t task.Task, query string) bool {
	if strings.Contains(strings.ToLower(t.Title), query) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), query)
}

func compare(a, b task.Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}
