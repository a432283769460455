package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "TODO"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Seed       SeedConfig       `mapstructure:"seed"`
	Timezone   string           `mapstructure:"timezone"`

	v *viper.Viper
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type RepositoryConfig struct {
	Type       string `mapstructure:"type"` // "inmemory", "postgres" или "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

type AuthConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

type WorkerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

const (
	RepoInMemory = "inmemory"
	RepoPostgres = "postgres"
	RepoSQLite   = "sqlite"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")

	v.SetDefault("repository.type", RepoInMemory)
	v.SetDefault("repository.sqlite_path", "todo.db")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.password_hash", "")

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.interval", time.Minute)

	v.SetDefault("seed.path", "")
	v.SetDefault("timezone", "Local")
}

// Load читает флаги, config.yml и переменные TODO_*. Отсутствующий файл по
// умолчанию не ошибка, явно указанный через --config обязан существовать.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("todo-list", pflag.ContinueOnError)
	path := flags.String("config", "config.yml", "путь к файлу конфигурации")
	flags.Bool("dev", false, "режим разработки (цветные логи)")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("разбор флагов: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(*path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("logging.development", flags.Lookup("dev")); err != nil {
		return nil, fmt.Errorf("привязка флага dev: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if !missing || flags.Changed("config") {
			return nil, fmt.Errorf("не могу прочитать %s: %w", *path, err)
		}
		v.SetConfigFile("")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Repository.Type {
	case RepoInMemory:
	case RepoPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url обязателен для postgres"))
		}
	case RepoSQLite:
		if c.Repository.SQLitePath == "" {
			errs = append(errs, errors.New("repository.sqlite_path обязателен для sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный тип репозитория %q", c.Repository.Type))
	}

	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port не может быть пустым"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit не может быть отрицательным"))
	}

	if c.Auth.Enabled && (c.Auth.Username == "" || (c.Auth.Password == "" && c.Auth.PasswordHash == "")) {
		errs = append(errs, errors.New("auth включён без логина или пароля"))
	}

	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("worker.interval должен быть положительным"))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("неверная конфигурация: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the zone used for calendar-day boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Watch следит за файлом конфигурации и вызывает onChange с новой валидной
// конфигурацией. Невалидные правки передаются в onError, текущая остаётся.
// Без файла ничего не делает.
func (c *Config) Watch(onChange func(*Config), onError func(error)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.v)
		if err != nil {
			onError(err)
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()
	return true
}
