package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TASKS"

type Config struct {
	Server     ServerConfig      `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Logging    LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Repository RepositoryConfig  `mapstructure:"repository" yaml:"repository"`
	Gateway    GatewayConfig     `mapstructure:"gateway" yaml:"gateway"`
	Sync       SyncConfig        `mapstructure:"sync" yaml:"sync"`
	Statuses   map[string]string `mapstructure:"statuses" yaml:"statuses,omitempty"`
	Access     AccessConfig      `mapstructure:"access" yaml:"access"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port" yaml:"port"`
	Host           string        `mapstructure:"host" yaml:"host"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit      int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	MinConnections int           `mapstructure:"min_connections" yaml:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	Migrate        bool          `mapstructure:"migrate" yaml:"migrate"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "postgres" или "inmemory"
}

// GatewayConfig адрес сервера задач для клиента
type GatewayConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	User    string        `mapstructure:"user" yaml:"user"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SyncConfig struct {
	FailurePolicy   string        `mapstructure:"failure_policy" yaml:"failure_policy"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	UndoWindow      time.Duration `mapstructure:"undo_window" yaml:"undo_window"`
	IncludeTrash    bool          `mapstructure:"include_trash" yaml:"include_trash"`
}

type AccessConfig struct {
	Admins []string `mapstructure:"admins" yaml:"admins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", "inmemory")

	v.SetDefault("gateway.url", "http://localhost:8080")
	v.SetDefault("gateway.user", "")
	v.SetDefault("gateway.timeout", 10*time.Second)

	v.SetDefault("sync.failure_policy", "rollback")
	v.SetDefault("sync.refresh_interval", 30*time.Second)
	v.SetDefault("sync.undo_window", time.Duration(0))
	v.SetDefault("sync.include_trash", true)

	v.SetDefault("access.admins", []string{})
}

// Load читает config.yml (или файл path) и накрывает его переменными TASKS_*.
// Отсутствующий файл не ошибка: остаются значения по умолчанию.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case "inmemory", "postgres":
	default:
		return fmt.Errorf("неизвестный тип репозитория %q", c.Repository.Type)
	}
	if c.Repository.Type == "postgres" && c.Database.URL == "" {
		return errors.New("для postgres нужен database.url")
	}
	switch c.Sync.FailurePolicy {
	case "", "rollback", "keep":
	default:
		return fmt.Errorf("неизвестная политика отказа %q", c.Sync.FailurePolicy)
	}
	if c.Sync.UndoWindow < 0 {
		return errors.New("sync.undo_window не может быть отрицательным")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// YAML действующая конфигурация после всех переопределений
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("сериализация конфигурации: %w", err)
	}
	return out, nil
}
