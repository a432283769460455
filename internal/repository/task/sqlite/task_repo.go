package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"todoList/internal/logger"
	"todoList/internal/models/task"
	repo "todoList/internal/repository"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

const selectColumns = `id, title, description, completed, priority, created_at, due_date, image_uri`

//go:embed migrations/*.sql
var migrations embed.FS

// Storage хранит задачи в файле SQLite, время хранится в миллисекундах
type Storage struct {
	db *sql.DB
}

func New(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err)
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	// один писатель, остальные ждут на busy_timeout
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Открыта база SQLite")
	return &Storage{db: db}, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("драйвер миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("создание мигратора: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Не удалось применить миграции", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Repository: Миграции SQLite применены")
	return nil
}

func (s *Storage) Close() error {
	logger.Info("Repository: Закрытие SQLite")
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = task.Millis(time.Now())
	}

	query := `INSERT INTO tasks
				(id, title, description, completed, priority, created_at, due_date, image_uri)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		taskToCreate.ID.String(),
		taskToCreate.Title,
		nullString(taskToCreate.Description),
		taskToCreate.Completed,
		string(taskToCreate.Priority),
		taskToCreate.CreatedAt.UnixMilli(),
		nullMillis(taskToCreate.DueDate),
		nullString(taskToCreate.ImageURI),
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func (s *Storage) GetAll(ctx context.Context) ([]*task.Task, error) {
	return s.queryTasks(ctx, `SELECT `+selectColumns+` FROM tasks ORDER BY seq DESC`)
}

func (s *Storage) GetDueBefore(ctx context.Context, deadline time.Time) ([]*task.Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks
				WHERE completed = 0 AND due_date IS NOT NULL AND due_date < ?
				ORDER BY seq DESC`
	return s.queryTasks(ctx, query, deadline.UnixMilli())
}

func (s *Storage) Toggle(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := `UPDATE tasks SET completed = 1 - completed WHERE id = ? RETURNING ` + selectColumns

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось переключить задачу", err)
		return nil, fmt.Errorf("переключение задачи: %w", err)
	}
	return t, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		logger.Error("Repository: Удаление задачи", err)
		return fmt.Errorf("удаление задачи: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		id          string
		t           task.Task
		description sql.NullString
		priority    string
		createdAt   int64
		dueDate     sql.NullInt64
		imageURI    sql.NullString
	)

	err := row.Scan(&id, &t.Title, &description, &t.Completed, &priority, &createdAt, &dueDate, &imageURI)
	if err != nil {
		return nil, err
	}

	t.ID, err = uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("неверный id %q: %w", id, err)
	}
	t.Priority = task.Priority(priority)
	t.CreatedAt = time.UnixMilli(createdAt)
	if description.Valid {
		t.Description = &description.String
	}
	if dueDate.Valid {
		d := time.UnixMilli(dueDate.Int64)
		t.DueDate = &d
	}
	if imageURI.Valid {
		t.ImageURI = &imageURI.String
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
