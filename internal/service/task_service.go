package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"todoList/internal/logger"
	"todoList/internal/models/task"
	"todoList/internal/pubsub"
	rep "todoList/internal/repository"
	"todoList/internal/view"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики и рассылка снимков наблюдателям

const resourceTask = "задача"

// Snapshot is the full task collection at one point in time, in collection order.
type Snapshot struct {
	Version uint64      `json:"version"`
	Tasks   []task.Task `json:"tasks"`
	At      time.Time   `json:"at"`
}

type TaskService struct {
	repo    TaskRepository
	broker  *pubsub.Broker[Snapshot]
	now     func() time.Time
	mtx     sync.Mutex
	version uint64
}

type Option func(*TaskService)

// WithClock подменяет источник времени, его локация задаёт границы суток в статистике
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		s.now = now
	}
}

func NewTaskService(repo TaskRepository, opts ...Option) *TaskService {
	s := &TaskService{
		repo:   repo,
		broker: pubsub.NewBroker[Snapshot](),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка репозитория: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, title string, options ...task.TaskOption) (*task.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		logger.Warn("Service: Пустое название задачи")
		return nil, NewValidationError("title", "название не может быть пустым")
	}

	newTask := &task.Task{
		ID:        uuid.New(),
		Title:     title,
		Priority:  task.PriorityMedium,
		CreatedAt: task.Millis(s.now()),
	}
	newTask.Apply(options...)

	priority, err := task.ParsePriority(string(newTask.Priority))
	if err != nil {
		return nil, NewValidationError("priority", err.Error())
	}
	newTask.Priority = priority

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.repo.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана", zap.String("task_id", newTask.ID.String()))
	s.publishLocked(ctx, true)
	return newTask.Clone(), nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err, id, "получение задачи")
	}
	return t, nil
}

func (s *TaskService) ToggleTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return nil, s.wrapRepoError(err, id, "переключение задачи")
	}

	logger.Info("Service: Задача переключена",
		zap.String("task_id", id.String()),
		zap.Bool("completed", t.Completed))
	s.publishLocked(ctx, true)
	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrapRepoError(err, id, "удаление задачи")
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	s.publishLocked(ctx, true)
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, filter task.Filter, query string) ([]task.Task, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return view.Apply(snap.Tasks, filter, query), nil
}

func (s *TaskService) GetStats(ctx context.Context) (view.Stats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return view.Stats{}, err
	}
	return view.Compute(snap.Tasks, s.now()), nil
}

func (s *TaskService) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.snapshotLocked(ctx)
}

// Refresh рассылает текущий снимок без изменения версии
func (s *TaskService) Refresh(ctx context.Context) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.publishLocked(ctx, false)
}

// Subscribe registers fn for every published snapshot. fn runs while the
// store is locked, so it must not call back into the service.
func (s *TaskService) Subscribe(fn func(Snapshot)) func() {
	return s.broker.Subscribe(fn)
}

func (s *TaskService) Now() time.Time {
	return s.now()
}

func (s *TaskService) snapshotLocked(ctx context.Context) (Snapshot, error) {
	tasks, err := s.repo.GetAll(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("получение задач: %w", err)
	}

	values := make([]task.Task, len(tasks))
	for i, t := range tasks {
		values[i] = *t
	}
	return Snapshot{Version: s.version, Tasks: values, At: s.now()}, nil
}

// мутация уже применена, ошибка чтения снимка только логируется
func (s *TaskService) publishLocked(ctx context.Context, bump bool) {
	if bump {
		s.version++
	}

	snap, err := s.snapshotLocked(ctx)
	if err != nil {
		logger.Error("Service: Не удалось собрать снимок задач", err, zap.Uint64("version", s.version))
		return
	}
	s.broker.Publish(snap)
}

func (s *TaskService) wrapRepoError(err error, id uuid.UUID, op string) error {
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		return NewNotFound(resourceTask, id.String(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
