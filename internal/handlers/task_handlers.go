package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"todoList/internal/handlers/dto"
	"todoList/internal/logger"
	"todoList/internal/middleware"
	"todoList/internal/models/task"
	"todoList/internal/service"

	"go.uber.org/zap"
)

const serviceName = "todo-list"

var heartbeatInterval = 15 * time.Second

type TaskHandler struct {
	TaskService Service
}

func NewTaskHandler(taskService Service) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Health check не пройден", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
	)
}

// ListTasks отдаёт производное представление: фильтр, поиск и сортировка
func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter, err := task.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("query", "filter"),
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, errBadRequest, err.Error())
		return
	}
	query := r.URL.Query().Get("q")

	tasks, err := s.TaskService.ListTasks(r.Context(), filter, query)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Debug("HTTP_OUT: Задачи получены",
		zap.String("filter", string(filter)),
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", dto.FromTaskList(tasks, s.TaskService.Now())),
		toPayload("count", len(tasks)),
	)
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, errUnsupported, "Content-Type должен быть application/json")
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, errBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), request.Title, request.Options()...)
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("task", dto.FromTask(created, s.TaskService.Now())))
}

func (s *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.TaskService.GetStats(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "get_stats")
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("stats", stats))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, errBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	t, err := s.TaskService.GetTaskByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t, s.TaskService.Now())))
}

func (s *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := parseID(r)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, errBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	t, err := s.TaskService.ToggleTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "toggle_task")
		return
	}

	logger.Info("HTTP_OUT: Задача переключена",
		zap.String("task_id", id.String()),
		zap.Bool("completed", t.Completed),
		zap.Duration("ms", time.Since(start)))

	responseWithJSON(w, http.StatusOK, toPayload("task", dto.FromTask(t, s.TaskService.Now())))
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := parseID(r)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, errBadRequest, "не удалось получить id: "+err.Error())
		return
	}

	if err := s.TaskService.DeleteTask(r.Context(), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	w.WriteHeader(http.StatusNoContent)
}

// Events держит поток server-sent events. Первым уходит текущий снимок,
// дальше каждый опубликованный. Медленный клиент получает только последний.
func (s *TaskHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	updates := make(chan service.Snapshot, 1)
	cancel := s.TaskService.Subscribe(func(snap service.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer cancel()

	current, err := s.TaskService.Snapshot(ctx)
	if err != nil {
		handleServiceError(w, r, err, "events")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	requestId := middleware.GetRequestID(ctx)
	logger.Info("HTTP: Подписка на события", zap.String("request_id", requestId))

	if err := writeSnapshot(w, rc, current); err != nil {
		logger.Warn("HTTP: Не удалось отправить снимок", zap.Error(err))
		return
	}

	last := current

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("HTTP: Подписчик отключился", zap.String("request_id", requestId))
			return
		case snap := <-updates:
			if !newerSnapshot(snap, last) {
				continue
			}
			if err := writeSnapshot(w, rc, snap); err != nil {
				logger.Warn("HTTP: Не удалось отправить снимок", zap.Error(err))
				return
			}
			last = snap
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// newerSnapshot отсекает снимки, которые клиент уже получил: публикация могла
// попасть в очередь между Subscribe и Snapshot. Refresh не меняет версию,
// поэтому при равной версии сравнивается момент снимка.
func newerSnapshot(snap, last service.Snapshot) bool {
	if snap.Version != last.Version {
		return snap.Version > last.Version
	}
	return snap.At.After(last.At)
}

func writeSnapshot(w http.ResponseWriter, rc *http.ResponseController, snap service.Snapshot) error {
	data, err := json.Marshal(dto.FromSnapshot(snap.Version, snap.Tasks, snap.At))
	if err != nil {
		return fmt.Errorf("сериализация снимка: %w", err)
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data); err != nil {
		return err
	}
	return rc.Flush()
}
