// Package seed fills an empty store with demo tasks described in a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"todoList/internal/logger"
	"todoList/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Entry struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Priority    string `yaml:"priority"`
	Completed   bool   `yaml:"completed"`
	CreatedAgo  string `yaml:"created_ago"`
	DueIn       string `yaml:"due_in"`
}

type file struct {
	Tasks []Entry `yaml:"tasks"`
}

type Creator interface {
	Create(ctx context.Context, t *task.Task) error
}

func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}

	return f.Tasks, nil
}

// Build turns entries into tasks relative to now. Any invalid entry fails the
// whole batch.
func Build(entries []Entry, now time.Time) ([]*task.Task, error) {
	tasks := make([]*task.Task, 0, len(entries))
	for i, e := range entries {
		t, err := e.toTask(now)
		if err != nil {
			return nil, fmt.Errorf("задача #%d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Apply inserts entries so that the store ends up listing them in file order.
func Apply(ctx context.Context, repo Creator, entries []Entry, now time.Time) error {
	tasks, err := Build(entries, now)
	if err != nil {
		return err
	}

	// хранилище добавляет в начало, поэтому идём с конца
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := repo.Create(ctx, tasks[i]); err != nil {
			return fmt.Errorf("задача #%d: %w", i, err)
		}
	}

	logger.Info("Seed: Демо-задачи загружены", zap.Int("count", len(tasks)))
	return nil
}

func (e Entry) toTask(now time.Time) (*task.Task, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return nil, errors.New("пустое название")
	}

	priority, err := task.ParsePriority(e.Priority)
	if err != nil {
		return nil, err
	}

	createdAt := now
	if e.CreatedAgo != "" {
		ago, err := time.ParseDuration(e.CreatedAgo)
		if err != nil {
			return nil, fmt.Errorf("created_ago: %w", err)
		}
		createdAt = now.Add(-ago)
	}

	t := &task.Task{
		ID:        uuid.New(),
		Title:     title,
		Completed: e.Completed,
		CreatedAt: task.Millis(createdAt),
	}

	options := []task.TaskOption{
		task.WithDescription(e.Description),
		task.WithPriority(priority),
	}
	if e.DueIn != "" {
		in, err := time.ParseDuration(e.DueIn)
		if err != nil {
			return nil, fmt.Errorf("due_in: %w", err)
		}
		options = append(options, task.WithDueDate(now.Add(in)))
	}
	t.Apply(options...)

	return t, nil
}
