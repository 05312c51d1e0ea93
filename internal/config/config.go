// config - загрузка конфигурации клиента (Config) и локального сервера (ServerConfig).
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// Значения из файла всегда перекрываются переменными окружения.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища учётных данных.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ErrUnknownDriver - store.driver не из списка драйверов.
var ErrUnknownDriver = errors.New("config: unknown store driver")

// Config - конфигурация клиента meetings.
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig     `yaml:"api"`
	Store    StoreConfig   `yaml:"store"`
	Auth     AuthConfig    `yaml:"auth"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// APIConfig - адрес шлюза.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"API_BASE_URL"   env-default:"http://localhost:8080"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"meetings-cli/1.0"`
}

// StoreConfig - хранилище пары токенов.
type StoreConfig struct {
	Driver   string        `yaml:"driver"    env:"STORE_DRIVER"    env-default:"file"`
	Path     string        `yaml:"path"      env:"STORE_PATH"`
	RedisURL string        `yaml:"redis_url" env:"STORE_REDIS_URL" env-default:"redis://localhost:6379/0"`
	Prefix   string        `yaml:"prefix"    env:"STORE_PREFIX"    env-default:"planner:creds:"`
	TTL      time.Duration `yaml:"ttl"       env:"STORE_TTL"       env-default:"0s"`
}

// FilePath возвращает путь файла хранилища; пустой Path - каталог конфигурации пользователя.
func (s StoreConfig) FilePath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user config dir: %w", err)
	}

	name := "credentials.json"
	if s.Driver == DriverSQLite {
		name = "credentials.db"
	}

	return filepath.Join(dir, "event-planner", name), nil
}

// AuthConfig - поведение обёртки защищённых запросов.
type AuthConfig struct {
	CoalesceRefresh bool `yaml:"coalesce_refresh" env:"AUTH_COALESCE_REFRESH" env-default:"true"`
}

// TimeoutConfig - таймауты запросов.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"TIMEOUT_REQUEST" env-default:"15s"`
	Refresh time.Duration `yaml:"refresh" env:"TIMEOUT_REFRESH" env-default:"10s"`
}

// MetricsConfig - HTTP для Prometheus; пустой адрес - выключено.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR"`
}

// Validate проверяет значения, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}

	return nil
}

// ServerConfig - конфигурация локального сервера devserver.
type ServerConfig struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      ServerAuth      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Timeouts  ServerTimeouts  `yaml:"timeouts"`
	Seed      bool            `yaml:"seed" env:"DEVSERVER_SEED" env-default:"true"`
}

// HTTPConfig - адрес REST-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// ServerAuth - выпуск токенов.
type ServerAuth struct {
	JWTSecret       string        `yaml:"jwt_secret"        env:"AUTH_JWT_SECRET"        env-default:"dev-secret-change-me"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"  env:"AUTH_ACCESS_TOKEN_TTL"  env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"AUTH_REFRESH_TOKEN_TTL" env-default:"720h"`
	Issuer          string        `yaml:"issuer"            env:"AUTH_ISSUER"            env-default:"event-planner-devserver"`
}

// RateLimitConfig - ограничение регистраций с одного адреса.
type RateLimitConfig struct {
	RegisterPerMinute int `yaml:"register_per_minute" env:"RATELIMIT_REGISTER_PER_MINUTE" env-default:"10"`
	Burst             int `yaml:"burst"               env:"RATELIMIT_BURST"               env-default:"5"`
}

// ServerTimeouts - таймаут обработки запроса.
type ServerTimeouts struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// Validate проверяет значения сервера.
func (c *ServerConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	if c.RateLimit.RegisterPerMinute <= 0 {
		return errors.New("config: ratelimit.register_per_minute must be positive")
	}

	return nil
}

// MustLoad - паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load читает конфигурацию клиента.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoadServer - паника при ошибке загрузки.
func MustLoadServer(path string) *ServerConfig {
	cfg, err := LoadServer(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// LoadServer читает конфигурацию devserver.
func LoadServer(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func load(path string, cfg any) error {
	tryRead := func(p string) error {
		if p == "" {
			return fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}

		return nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", cfg); err != nil {
			return fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}

		return nil
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return nil
}
