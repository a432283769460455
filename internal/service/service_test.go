package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"todoList/internal/models/task"
	"todoList/internal/repository"
	"todoList/internal/repository/task/inmemory"
	"todoList/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) GetAll(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) GetDueBefore(ctx context.Context, deadline time.Time) ([]*task.Task, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Toggle(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

func fixedClock(t time.Time) service.Option {
	return service.WithClock(func() time.Time { return t })
}

// TestTaskService_HealthCheck тестирует HealthCheck
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		repoErr     error
		expectError bool
	}{
		{name: "success - health check passes"},
		{name: "error - repository down", repoErr: errors.New("connection refused"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			mockRepo.On("HealthCheck", mock.Anything).Return(tt.repoErr)

			svc := service.NewTaskService(mockRepo)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_CreateTask тестирует создание задачи
func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)
	svc := service.NewTaskService(inmemory.NewTaskStorage(), fixedClock(now))

	created, err := svc.CreateTask(ctx, "  Buy milk  ", task.WithDescription(" 2 liters "))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	require.NotNil(t, created.Description)
	assert.Equal(t, "2 liters", *created.Description)
	assert.False(t, created.Completed)
	assert.Equal(t, task.PriorityMedium, created.Priority)
	assert.Equal(t, now.UnixMilli(), created.CreatedAt.UnixMilli())
	assert.Nil(t, created.DueDate)
	assert.Nil(t, created.ImageURI)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Tasks, 1)
}

// TestTaskService_CreateTask_IncreasesSizeByOne тестирует рост коллекции и уникальность id
func TestTaskService_CreateTask_IncreasesSizeByOne(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage())
	ids := map[uuid.UUID]bool{}

	for i := 0; i < 20; i++ {
		before, err := svc.Snapshot(ctx)
		require.NoError(t, err)

		created, err := svc.CreateTask(ctx, "task", task.WithPriority(task.PriorityHigh))
		require.NoError(t, err)
		assert.False(t, ids[created.ID])
		ids[created.ID] = true

		after, err := svc.Snapshot(ctx)
		require.NoError(t, err)
		assert.Len(t, after.Tasks, len(before.Tasks)+1)
		assert.Equal(t, created.ID, after.Tasks[0].ID, "новая задача добавляется в начало")
	}
}

// TestTaskService_CreateTask_Validation тестирует валидацию
func TestTaskService_CreateTask_Validation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		options []task.TaskOption
		field   string
	}{
		{name: "empty title", title: "", field: "title"},
		{name: "whitespace title", title: " \t\n ", field: "title"},
		{name: "bad priority", title: "ok", options: []task.TaskOption{task.WithPriority("urgent")}, field: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mockRepo := new(MockTaskRepository)
			svc := service.NewTaskService(mockRepo)

			published := 0
			svc.Subscribe(func(service.Snapshot) { published++ })

			created, err := svc.CreateTask(ctx, tt.title, tt.options...)
			assert.Nil(t, created)

			busErr, ok := service.AsBusinessError(err)
			require.True(t, ok)
			assert.Equal(t, service.CodeValidation, busErr.Code)
			assert.Equal(t, tt.field, busErr.Details["field"])
			assert.Zero(t, published)

			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

// TestTaskService_CreateTask_RepositoryError тестирует ошибку репозитория
func TestTaskService_CreateTask_RepositoryError(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(errors.New("disk full"))

	svc := service.NewTaskService(mockRepo)
	published := 0
	svc.Subscribe(func(service.Snapshot) { published++ })

	_, err := svc.CreateTask(context.Background(), "title")
	assert.Error(t, err)
	_, isBusiness := service.AsBusinessError(err)
	assert.False(t, isBusiness)
	assert.Zero(t, published)
	mockRepo.AssertExpectations(t)
}

// TestTaskService_ToggleTask тестирует переключение
func TestTaskService_ToggleTask(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage())

	created, err := svc.CreateTask(ctx, "toggle me")
	require.NoError(t, err)

	toggled, err := svc.ToggleTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	back, err := svc.ToggleTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, back, "двойное переключение возвращает исходную задачу")
}

// TestTaskService_ToggleTask_NotFound тестирует отсутствующую задачу
func TestTaskService_ToggleTask_NotFound(t *testing.T) {
	id := uuid.New()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("Toggle", mock.Anything, id).Return(nil, repository.ErrNotFound)

	svc := service.NewTaskService(mockRepo)
	published := 0
	svc.Subscribe(func(service.Snapshot) { published++ })

	_, err := svc.ToggleTask(context.Background(), id)
	assert.True(t, service.IsNotFound(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, published)
	mockRepo.AssertExpectations(t)
}

// TestTaskService_DeleteTask тестирует удаление
func TestTaskService_DeleteTask(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage())

	keep, err := svc.CreateTask(ctx, "keep")
	require.NoError(t, err)
	remove, err := svc.CreateTask(ctx, "remove")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, remove.ID))

	all, err := svc.ListTasks(ctx, task.FilterAll, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].ID)

	_, err = svc.GetTaskByID(ctx, remove.ID)
	assert.True(t, service.IsNotFound(err))

	// неизвестный id не меняет коллекцию
	err = svc.DeleteTask(ctx, uuid.New())
	assert.True(t, service.IsNotFound(err))
	all, err = svc.ListTasks(ctx, task.FilterAll, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// TestTaskService_DeleteTask_RepositoryError тестирует инфраструктурную ошибку
func TestTaskService_DeleteTask_RepositoryError(t *testing.T) {
	id := uuid.New()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("Delete", mock.Anything, id).Return(errors.New("timeout"))

	svc := service.NewTaskService(mockRepo)
	err := svc.DeleteTask(context.Background(), id)
	assert.Error(t, err)
	assert.False(t, service.IsNotFound(err))
	mockRepo.AssertExpectations(t)
}

// TestTaskService_Subscribe тестирует рассылку снимков
func TestTaskService_Subscribe(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage())

	var snaps []service.Snapshot
	cancel := svc.Subscribe(func(s service.Snapshot) { snaps = append(snaps, s) })

	created, err := svc.CreateTask(ctx, "one")
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, uuid.New())
	require.Error(t, err)
	require.NoError(t, svc.DeleteTask(ctx, created.ID))

	require.Len(t, snaps, 3)
	assert.Equal(t, uint64(1), snaps[0].Version)
	assert.Equal(t, uint64(2), snaps[1].Version)
	assert.Equal(t, uint64(3), snaps[2].Version)
	assert.Len(t, snaps[0].Tasks, 1)
	assert.False(t, snaps[0].Tasks[0].Completed)
	assert.True(t, snaps[1].Tasks[0].Completed)
	assert.Empty(t, snaps[2].Tasks)

	// изменение полученного снимка не влияет на хранилище
	_, err = svc.CreateTask(ctx, "two")
	require.NoError(t, err)
	last := snaps[len(snaps)-1]
	last.Tasks[0].Title = "mutated"
	current, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", current.Tasks[0].Title)

	cancel()
	_, err = svc.CreateTask(ctx, "three")
	require.NoError(t, err)
	assert.Len(t, snaps, 4)
}

// TestTaskService_Refresh тестирует повторную рассылку без смены версии
func TestTaskService_Refresh(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTaskService(inmemory.NewTaskStorage())

	_, err := svc.CreateTask(ctx, "one")
	require.NoError(t, err)

	var got []service.Snapshot
	svc.Subscribe(func(s service.Snapshot) { got = append(got, s) })

	svc.Refresh(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Version)
	assert.Len(t, got[0].Tasks, 1)
}

// TestTaskService_ListTasks тестирует производный список
func TestTaskService_ListTasks(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := service.NewTaskService(inmemory.NewTaskStorage(), service.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	a, err := svc.CreateTask(ctx, "Alpha report")
	require.NoError(t, err)
	b, err := svc.CreateTask(ctx, "Beta", task.WithDescription("see the report"))
	require.NoError(t, err)
	c, err := svc.CreateTask(ctx, "Gamma")
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, c.ID)
	require.NoError(t, err)

	all, err := svc.ListTasks(ctx, task.FilterAll, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID, c.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	active, err := svc.ListTasks(ctx, task.FilterActive, "REPORT")
	require.NoError(t, err)
	require.Len(t, active, 2)

	completed, err := svc.ListTasks(ctx, task.FilterCompleted, "")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, c.ID, completed[0].ID)
}

// TestTaskService_GetStats тестирует статистику
func TestTaskService_GetStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	svc := service.NewTaskService(inmemory.NewTaskStorage(), fixedClock(now))

	st, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CompletionRate)

	yesterday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	overdue, err := svc.CreateTask(ctx, "overdue", task.WithDueDate(yesterday), task.WithPriority(task.PriorityHigh))
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "today", task.WithDueDate(now.Add(2*time.Hour)))
	require.NoError(t, err)
	done1, err := svc.CreateTask(ctx, "done1")
	require.NoError(t, err)
	done2, err := svc.CreateTask(ctx, "done2", task.WithPriority(task.PriorityLow))
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, done1.ID)
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, done2.ID)
	require.NoError(t, err)

	st, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.Completed)
	assert.Equal(t, 2, st.Active)
	assert.Equal(t, 50, st.CompletionRate)
	assert.Equal(t, 1, st.Overdue)
	assert.Equal(t, 1, st.DueToday)
	assert.Equal(t, 2, st.CompletedThisWeek)
	assert.Equal(t, 1, st.ByPriority.High)
	assert.Equal(t, 1, st.ByPriority.Medium)
	assert.Equal(t, 0, st.ByPriority.Low)

	_, err = svc.ToggleTask(ctx, overdue.ID)
	require.NoError(t, err)
	st, err = svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Overdue)
}

// TestTaskService_SnapshotError тестирует ошибку чтения коллекции
func TestTaskService_SnapshotError(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetAll", mock.Anything).Return(nil, errors.New("broken"))

	svc := service.NewTaskService(mockRepo)
	_, err := svc.ListTasks(context.Background(), task.FilterAll, "")
	assert.Error(t, err)

	_, err = svc.GetStats(context.Background())
	assert.Error(t, err)
}
