package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"todoList/internal/logger"
	"todoList/internal/service"
	"todoList/internal/view"

	"go.uber.org/zap"
)

// Publisher is the part of the task service the worker drives.
type Publisher interface {
	GetStats(ctx context.Context) (view.Stats, error)
	Refresh(ctx context.Context)
	Now() time.Time
}

type Report struct {
	Overdue  int
	DueToday int
	Stats    view.Stats
	Rollover bool
}

type OverdueWorker struct {
	repo     service.TaskRepository
	svc      Publisher
	interval time.Duration

	mtx     sync.Mutex
	lastDay time.Time
}

func NewOverdueWorker(repo service.TaskRepository, svc Publisher, interval *time.Duration) *OverdueWorker {
	intervalToSet := time.Minute
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	return &OverdueWorker{
		repo:     repo,
		svc:      svc,
		interval: intervalToSet,
	}
}

func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Фоновая проверка запущена", zap.Duration("interval", w.interval))
	w.remember(w.svc.Now())

	for {
		select {
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Warn("Worker: Ошибка проверки задач", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Check считает просроченные задачи и задачи на сегодня. При смене
// календарного дня наблюдатели получают свежий снимок.
func (w *OverdueWorker) Check(ctx context.Context) (Report, error) {
	start := time.Now()
	now := w.svc.Now()
	today := view.Midnight(now, now.Location())

	var report Report
	if w.remember(now) {
		logger.Info("Worker: Наступил новый день, обновляем подписчиков", zap.Time("day", today))
		w.svc.Refresh(ctx)
		report.Rollover = true
	}

	tasks, err := w.repo.GetDueBefore(ctx, today.AddDate(0, 0, 1))
	if err != nil {
		return report, fmt.Errorf("получение задач со сроком: %w", err)
	}

	for _, t := range tasks {
		if view.IsOverdue(*t, now) {
			report.Overdue++
		} else {
			report.DueToday++
		}
	}

	stats, err := w.svc.GetStats(ctx)
	if err != nil {
		return report, fmt.Errorf("статистика: %w", err)
	}
	report.Stats = stats

	logger.Info(
		"Worker: Завершение проверки задач",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("overdue", report.Overdue),
		zap.Int("due_today", report.DueToday),
		zap.Int("active", stats.Active),
		zap.Int("completion_rate", stats.CompletionRate),
	)
	return report, nil
}

// remember запоминает день и сообщает, сменился ли он с прошлого раза
func (w *OverdueWorker) remember(now time.Time) bool {
	day := view.Midnight(now, now.Location())

	w.mtx.Lock()
	defer w.mtx.Unlock()

	changed := !w.lastDay.IsZero() && !day.Equal(w.lastDay)
	w.lastDay = day
	return changed
}
