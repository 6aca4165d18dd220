package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Драйверы хранилища слота
const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	App     AppConfig
	Log     LogConfig
	Storage StorageConfig
	DB      DBConfig
	Redis   RedisConfig
}

type AppConfig struct {
	Port                   string
	BaseURL                string
	Timezone               string
	DefaultValidityMinutes int
}

type LogConfig struct {
	Level       string
	Development bool
	Encoding    string
}

type StorageConfig struct {
	Driver  string
	Key     string // имя слота, в котором лежит вся коллекция
	FileDir string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Load читает конфигурацию из .env (если есть) и переменных окружения
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.BaseURL = strings.TrimRight(v.GetString("APP_BASE_URL"), "/")
	cfg.App.Timezone = v.GetString("APP_TIMEZONE")
	cfg.App.DefaultValidityMinutes = v.GetInt("APP_DEFAULT_VALIDITY_MINUTES")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Development = v.GetBool("LOG_DEVELOPMENT")
	cfg.Log.Encoding = v.GetString("LOG_ENCODING")

	cfg.Storage.Driver = strings.ToLower(v.GetString("STORAGE_DRIVER"))
	cfg.Storage.Key = v.GetString("STORAGE_KEY")
	cfg.Storage.FileDir = v.GetString("STORAGE_FILE_DIR")

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_BASE_URL", "http://localhost:8080")
	v.SetDefault("APP_TIMEZONE", "Local")
	v.SetDefault("APP_DEFAULT_VALIDITY_MINUTES", 30)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("LOG_ENCODING", "json")

	v.SetDefault("STORAGE_DRIVER", DriverFile)
	v.SetDefault("STORAGE_KEY", "shortenedUrls")
	v.SetDefault("STORAGE_FILE_DIR", "./data")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
}

// Validate проверяет значения, которые нельзя исправить дефолтами
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("%w: storage key is empty", ErrInvalidConfig)
	}

	if c.App.DefaultValidityMinutes < 0 {
		return fmt.Errorf("%w: default validity must be >= 0 minutes", ErrInvalidConfig)
	}

	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// Location возвращает часовой пояс для группировки кликов по дням
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}
