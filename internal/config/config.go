package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/kapu/enka-kakao-bot-go/internal/constants"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Iris     IrisConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Enka     EnkaConfig
	Render   RenderConfig
	Logging  LoggingConfig
	Bot      BotConfig
}

type IrisConfig struct {
	BaseURL string
	WSURL   string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type DatabaseConfig struct {
	Driver     string
	SQLitePath string
	Postgres   PostgresConfig
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type CacheConfig struct {
	Backend string
}

type EnkaConfig struct {
	BaseURL       string // showcase site or reverse proxy
	APIBaseURL    string
	NamesURL      string
	CharactersURL string
	DataDir       string
	Locales       []string
	WatchData     bool
	UserAgent     string
}

type RenderConfig struct {
	CacheTTL          time.Duration
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	CaptureTimeout    time.Duration
	SettleDelay       time.Duration
	Locale            string
	Watermark         string
	Headless          bool
	ChromePath        string
	RemoteURL         string
}

type LoggingConfig struct {
	Level string
	File  string
}

type BotConfig struct {
	Prefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Iris: IrisConfig{
			BaseURL: getEnv("IRIS_BASE_URL", "http://localhost:3000"),
			WSURL:   getEnv("IRIS_WS_URL", "ws://localhost:3000/ws"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
			SQLitePath: getEnv("SQLITE_PATH", "data/enka.db"),
			Postgres: PostgresConfig{
				Host:     getEnv("POSTGRES_HOST", "localhost"),
				Port:     getEnvInt("POSTGRES_PORT", 5432),
				User:     getEnv("POSTGRES_USER", "enka"),
				Password: getEnv("POSTGRES_PASSWORD", ""),
				Database: getEnv("POSTGRES_DB", "enka"),
			},
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis)),
		},
		Enka: EnkaConfig{
			BaseURL:       strings.TrimRight(getEnv("ENKA_BASE_URL", constants.EnkaConfig.BaseURL), "/"),
			APIBaseURL:    strings.TrimRight(getEnv("ENKA_API_BASE_URL", constants.EnkaConfig.APIBaseURL), "/"),
			NamesURL:      getEnv("ENKA_NAMES_URL", constants.EnkaConfig.NamesURL),
			CharactersURL: getEnv("ENKA_CHARACTERS_URL", constants.EnkaConfig.CharactersURL),
			DataDir:       getEnv("ENKA_DATA_DIR", "data/enka"),
			Locales:       parseCommaSeparated(getEnv("ENKA_LOCALES", "ko,en,ja,zh-CN")),
			WatchData:     getEnvBool("ENKA_WATCH_DATA", true),
			UserAgent:     getEnv("ENKA_USER_AGENT", constants.EnkaConfig.UserAgent),
		},
		Render: RenderConfig{
			CacheTTL:          getEnvDuration("RENDER_CACHE_TTL", constants.RenderCacheConfig.DefaultTTL),
			NavigationTimeout: getEnvDuration("RENDER_NAVIGATION_TIMEOUT", constants.ShowcaseConfig.NavigationTimeout),
			ActionTimeout:     getEnvDuration("RENDER_ACTION_TIMEOUT", constants.ShowcaseConfig.ActionTimeout),
			CaptureTimeout:    getEnvDuration("RENDER_CAPTURE_TIMEOUT", constants.ShowcaseConfig.CaptureTimeout),
			SettleDelay:       getEnvDuration("RENDER_SETTLE_DELAY", constants.ShowcaseConfig.SettleDelay),
			Locale:            getEnv("RENDER_LOCALE", "ko"),
			Watermark:         getEnv("RENDER_WATERMARK", constants.ShowcaseConfig.Watermark),
			Headless:          getEnvBool("CHROME_HEADLESS", true),
			ChromePath:        getEnv("CHROME_PATH", ""),
			RemoteURL:         getEnv("CHROME_REMOTE_URL", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/bot.log"),
		},
		Bot: BotConfig{
			Prefix: getEnv("BOT_PREFIX", "!"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Iris,
		validation.Field(&c.Iris.BaseURL, validation.Required.Error("IRIS_BASE_URL is required")),
		validation.Field(&c.Iris.WSURL, validation.Required.Error("IRIS_WS_URL is required")),
	); err != nil {
		return err
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Cache,
		validation.Field(&c.Cache.Backend, validation.In(CacheBackendRedis, CacheBackendMemory).Error("CACHE_BACKEND must be redis or memory")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Enka,
		validation.Field(&c.Enka.BaseURL, validation.Required.Error("ENKA_BASE_URL is required")),
		validation.Field(&c.Enka.APIBaseURL, validation.Required.Error("ENKA_API_BASE_URL is required")),
		validation.Field(&c.Enka.NamesURL, validation.Required),
		validation.Field(&c.Enka.CharactersURL, validation.Required),
		validation.Field(&c.Enka.DataDir, validation.Required.Error("ENKA_DATA_DIR is required")),
	); err != nil {
		return err
	}

	return c.Render.Validate()
}

func (c *DatabaseConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverPostgres, DriverSQLite).Error("DATABASE_DRIVER must be postgres or sqlite")),
	); err != nil {
		return err
	}
	if c.Driver == DriverSQLite {
		return validation.ValidateStruct(c,
			validation.Field(&c.SQLitePath, validation.Required.Error("SQLITE_PATH is required")),
		)
	}
	return validation.ValidateStruct(&c.Postgres,
		validation.Field(&c.Postgres.Host, validation.Required.Error("POSTGRES_HOST is required")),
		validation.Field(&c.Postgres.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Postgres.Database, validation.Required.Error("POSTGRES_DB is required")),
	)
}

func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheTTL,
			validation.Required,
			validation.Min(constants.RenderCacheConfig.MinTTL).Error("RENDER_CACHE_TTL must be at least 1m"),
			validation.Max(constants.RenderCacheConfig.MaxTTL).Error("RENDER_CACHE_TTL must be at most 150m"),
		),
		validation.Field(&c.NavigationTimeout, validation.Required),
		validation.Field(&c.ActionTimeout, validation.Required),
		validation.Field(&c.Locale, validation.Required, validation.By(knownLocale)),
	)
}

func knownLocale(value interface{}) error {
	locale, _ := value.(string)
	if _, ok := constants.LocaleLabels[locale]; !ok {
		return fmt.Errorf("unsupported render locale %q", locale)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("5m") or bare milliseconds ("300000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
