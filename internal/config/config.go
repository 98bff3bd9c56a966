package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

const tokenSecretPath = "/run/secrets/telegram_bot_token"

type Config struct {
	TelegramToken string `mapstructure:"-"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	InstancesFile string `mapstructure:"INSTANCES_FILE"`

	StoreDriver       string `mapstructure:"STORE_DRIVER"`
	DataFile          string `mapstructure:"DATA_FILE"`
	SQLitePath        string `mapstructure:"SQLITE_PATH"`
	LegacyInstanceKey string `mapstructure:"LEGACY_INSTANCE_KEY"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisKey      string `mapstructure:"REDIS_KEY"`

	// HTTPAddr serves /healthz, /metrics and /instances. Loopback by default;
	// empty disables the server.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	MoodPromptTimeout time.Duration `mapstructure:"MOOD_PROMPT_TIMEOUT"`
	StartupResetDelay time.Duration `mapstructure:"STARTUP_RESET_DELAY"`
	CommandPrefix     string        `mapstructure:"COMMAND_PREFIX"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("INSTANCES_FILE", "instances.yaml")
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("DATA_FILE", "medication_data.json")
	v.SetDefault("SQLITE_PATH", "/root/data/medication.db")
	v.SetDefault("LEGACY_INSTANCE_KEY", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY", "medication:document")
	v.SetDefault("HTTP_ADDR", "127.0.0.1:8080")
	v.SetDefault("MOOD_PROMPT_TIMEOUT", "5m")
	v.SetDefault("STARTUP_RESET_DELAY", "5s")
	v.SetDefault("COMMAND_PREFIX", "!pill")
}

// Load reads config.yaml (optional, from . or ./config) and the environment;
// environment values win.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case DriverFile, DriverSQLite, DriverRedis:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	token, err := botToken(tokenSecretPath)
	if err != nil {
		return Config{}, err
	}
	cfg.TelegramToken = token
	return cfg, nil
}

// botToken prefers the Docker secret, then TELEGRAM_BOT_TOKEN.
func botToken(secretPath string) (string, error) {
	if data, err := os.ReadFile(secretPath); err == nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			return token, nil
		}
	}
	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token != "" {
		return token, nil
	}
	return "", errors.New("bot token not found: neither the Docker secret nor TELEGRAM_BOT_TOKEN is set")
}
