package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"todoList/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
)

//go:embed migrations/*.sql
var migrations embed.FS

// withMigrator отдаёт мигратор на время fn. Драйвер держит соединение пула,
// поэтому и мигратор, и обёртка database/sql закрываются сразу после fn,
// иначе pool.Close() ждёт их вечно.
func (s *Storage) withMigrator(fn func(*migrate.Migrate) error) (err error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("закрытие db мигратора: %w", closeErr))
		}
	}()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("драйвер миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("создание мигратора: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			err = multierr.Append(err, fmt.Errorf("закрытие источника миграций: %w", srcErr))
		}
		if dbErr != nil {
			err = multierr.Append(err, fmt.Errorf("закрытие драйвера миграций: %w", dbErr))
		}
	}()

	return fn(m)
}

func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Применение миграций")

	err := s.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("применение миграций: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось применить миграции", err)
		return err
	}

	logger.Info("Repository: Миграции применены")
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	logger.Info("Repository: Откат миграций")

	err := s.withMigrator(func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("откат миграций: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Repository: Не удалось откатить миграции", err)
		return err
	}

	logger.Info("Repository: Миграции откачены")
	return nil
}
