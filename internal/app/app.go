package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"todoList/internal/auth"
	"todoList/internal/config"
	"todoList/internal/handlers"
	"todoList/internal/logger"
	"todoList/internal/repository/task/inmemory"
	"todoList/internal/repository/task/postgres"
	"todoList/internal/repository/task/sqlite"
	"todoList/internal/seed"
	"todoList/internal/service"
	"todoList/internal/theme"
	"todoList/internal/worker"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type shutdownFunc struct {
	name string
	fn   func() error
}

type App struct {
	config     *config.Config
	server     *http.Server
	handler    http.Handler
	repository service.TaskRepository // интерфейс!
	service    *service.TaskService
	themes     *theme.Store
	worker     *worker.OverdueWorker
	shutdowns  []shutdownFunc // функции для graceful shutdown, выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]shutdownFunc, 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.onShutdown("logger", func() error {
		logger.Sync()
		return nil
	})

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	loc := a.config.Location()
	a.service = service.NewTaskService(a.repository, service.WithClock(func() time.Time {
		return time.Now().In(loc)
	}))

	if err := a.initSeed(ctx); err != nil {
		return err
	}

	a.themes = theme.NewStore()
	a.themes.Subscribe(themeLogger(a.config.Logging.Development))

	if a.config.Worker.Enabled {
		interval := a.config.Worker.Interval
		a.worker = worker.NewOverdueWorker(a.repository, a.service, &interval)
	}

	a.initHTTP()

	logger.Info("App: Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("auth", a.config.Auth.Enabled),
		zap.Bool("worker", a.config.Worker.Enabled),
		zap.String("timezone", loc.String()))
	return nil
}

// themeLogger пишет смену темы. В режиме разработки консольный лог stderr
// получает ещё и цветной образец палитры.
func themeLogger(development bool) func(theme.Theme) {
	var renderer *lipgloss.Renderer
	if development {
		renderer = lipgloss.NewRenderer(os.Stderr)
	}
	return func(th theme.Theme) {
		fields := []zap.Field{zap.String("theme", string(th.Name))}
		if renderer != nil {
			fields = append(fields, zap.String("preview", th.Preview(renderer)))
		}
		logger.Debug("App: Тема изменена", fields...)
	}
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepoPostgres:
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConnections: a.config.Database.MaxConnections,
			MinConnections: a.config.Database.MinConnections,
			IdleTimeout:    a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.onShutdown("postgres", storage.Close)

		if err := storage.Migrate(ctx); err != nil {
			return fmt.Errorf("миграции postgres: %w", err)
		}
		a.repository = storage

	case config.RepoSQLite:
		storage, err := sqlite.New(ctx, a.config.Repository.SQLitePath)
		if err != nil {
			return fmt.Errorf("открытие sqlite: %w", err)
		}
		a.onShutdown("sqlite", storage.Close)

		if err := storage.Migrate(ctx); err != nil {
			return fmt.Errorf("миграции sqlite: %w", err)
		}
		a.repository = storage

	default:
		a.repository = inmemory.NewTaskStorage()
	}

	logger.Info("App: Хранилище готово", zap.String("type", a.config.Repository.Type))
	return nil
}

// initSeed наполняет только пустое хранилище
func (a *App) initSeed(ctx context.Context) error {
	if a.config.Seed.Path == "" {
		return nil
	}

	existing, err := a.repository.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("проверка хранилища перед загрузкой демо-задач: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("App: Хранилище не пустое, демо-задачи пропущены", zap.Int("tasks", len(existing)))
		return nil
	}

	entries, err := seed.Load(a.config.Seed.Path)
	if err != nil {
		return fmt.Errorf("загрузка демо-задач: %w", err)
	}
	if err := seed.Apply(ctx, a.repository, entries, a.service.Now()); err != nil {
		return fmt.Errorf("загрузка демо-задач: %w", err)
	}
	return nil
}

func (a *App) initHTTP() {
	var authenticator auth.Authenticator = auth.NewStatic(
		a.config.Auth.Username,
		a.config.Auth.Password,
		auth.WithPasswordHash(a.config.Auth.PasswordHash),
	)

	routerConfig := handlers.RouterConfig{
		RequestTimeout: a.config.Server.RequestTimeout,
		RateLimit:      a.config.Server.RateLimit,
		CORSOrigins:    a.config.Server.CORSOrigins,
	}
	if a.config.Auth.Enabled {
		routerConfig.Authenticator = authenticator
	}

	a.handler = handlers.NewRouter(
		handlers.NewTaskHandler(a.service),
		handlers.NewThemeHandler(a.themes),
		handlers.NewAuthHandler(authenticator),
		routerConfig,
	)

	// потоки событий закрываются вместе с базовым контекстом при остановке
	baseCtx, cancelBase := context.WithCancel(context.Background())

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.handler,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	a.server.RegisterOnShutdown(cancelBase)
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Service() *service.TaskService {
	return a.service
}

// Run блокируется до отмены ctx или падения сервера
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Start(gctx)
			return nil
		})
	}

	watching := a.config.Watch(func(next *config.Config) {
		if err := logger.SetLevel(next.Logging.Level); err != nil {
			logger.Error("App: Не удалось применить уровень логирования", err)
			return
		}
		logger.Info("App: Конфигурация перечитана", zap.String("level", next.Logging.Level))
	}, func(err error) {
		logger.Error("App: Новая конфигурация отклонена", err)
	})
	if watching {
		logger.Info("App: Слежение за файлом конфигурации включено")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: Остановка приложения")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		err = multierr.Append(err, a.server.Shutdown(ctx))
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		s := a.shutdowns[i]
		if closeErr := s.fn(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", s.name, closeErr))
		}
	}
	a.shutdowns = nil

	return err
}

func (a *App) onShutdown(name string, fn func() error) {
	a.shutdowns = append(a.shutdowns, shutdownFunc{name: name, fn: fn})
}
