package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Calendar    CalendarConfig    `mapstructure:"calendar"`
	Server      ServerConfig      `mapstructure:"server"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Log         LogConfig         `mapstructure:"log"`
}

// APIConfig points at the recipe/plan API.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// SigningKey is "id:hexsecret"; when set requests carry a bearer token.
	SigningKey string        `mapstructure:"signing_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserID     string        `mapstructure:"user_id"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PreferencesConfig selects where user preferences live: sqlite, redis or file.
type PreferencesConfig struct {
	Backend string `mapstructure:"backend"`
	File    string `mapstructure:"file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type CalendarConfig struct {
	// WeekStart is the weekday index grids start on, 0 = Sunday.
	WeekStart int    `mapstructure:"week_start"`
	Timezone  string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TelegramConfig is optional for the CLI and required for the bot.
type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	WebhookURL string `mapstructure:"webhook_url"`
	// AllowUserIDs is a comma separated list of Telegram user ids.
	AllowUserIDs string `mapstructure:"allow_user_ids"`
}

// GeminiConfig is optional; without a key the clipper only reads JSON-LD.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var envBindings = map[string]string{
	"api.base_url":            "MEAL_API_URL",
	"api.signing_key":         "MEAL_API_SIGNING_KEY",
	"api.timeout":             "MEAL_API_TIMEOUT",
	"api.user_id":             "MEAL_USER_ID",
	"database.path":           "DATABASE_PATH",
	"preferences.backend":     "PREFERENCES_BACKEND",
	"preferences.file":        "PREFERENCES_FILE",
	"redis.addr":              "REDIS_ADDR",
	"redis.password":          "REDIS_PASSWORD",
	"redis.db":                "REDIS_DB",
	"redis.key":               "REDIS_KEY",
	"calendar.week_start":     "WEEK_START",
	"calendar.timezone":       "MEAL_TIMEZONE",
	"server.port":             "PORT",
	"telegram.bot_token":      "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_url":    "TELEGRAM_WEBHOOK_URL",
	"telegram.allow_user_ids": "TELEGRAM_ALLOW_USER_IDS",
	"gemini.api_key":          "GEMINI_API_KEY",
	"gemini.model":            "GEMINI_MODEL",
	"log.level":               "LOG_LEVEL",
}

// NewFromEnv creates a new Config from environment variables, reading a
// .env file in the working directory first when there is one.
func NewFromEnv() (*Config, error) {
	return Load(".env")
}

// Load reads envFile (if it exists) into the environment and builds the
// Config. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.user_id", "public")
	v.SetDefault("database.path", "data/meal-planner.db")
	v.SetDefault("preferences.backend", "sqlite")
	v.SetDefault("preferences.file", "data/preferences.json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "meal-planner:preferences")
	v.SetDefault("calendar.week_start", 1)
	v.SetDefault("calendar.timezone", "Australia/Brisbane")
	v.SetDefault("server.port", 8080)
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("log.level", "info")
}

func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("MEAL_API_URL environment variable not set")
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if cfg.API.SigningKey != "" && !strings.Contains(cfg.API.SigningKey, ":") {
		return fmt.Errorf("invalid MEAL_API_SIGNING_KEY: expected id:secret")
	}
	if cfg.Calendar.WeekStart < 0 || cfg.Calendar.WeekStart > 6 {
		return fmt.Errorf("invalid WEEK_START %d: must be 0 (Sunday) to 6", cfg.Calendar.WeekStart)
	}
	if _, err := time.LoadLocation(cfg.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid MEAL_TIMEZONE %q: %w", cfg.Calendar.Timezone, err)
	}
	switch cfg.Preferences.Backend {
	case "sqlite", "redis", "file":
	default:
		return fmt.Errorf("invalid PREFERENCES_BACKEND %q: must be sqlite, redis or file", cfg.Preferences.Backend)
	}
	if cfg.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if _, err := cfg.Telegram.AllowedUserIDs(); err != nil {
		return err
	}
	return nil
}

// Location returns the time zone dates are computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStart returns the configured first day of the week.
func (c *Config) WeekStart() time.Weekday {
	return time.Weekday(c.Calendar.WeekStart)
}

// AllowedUserIDs parses the allow list. An empty list allows nobody.
func (t TelegramConfig) AllowedUserIDs() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(t.AllowUserIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
