package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     int    `mapstructure:"SERVER_PORT"`
		LogLevel string `mapstructure:"LOG_LEVEL"`
		LogJSON  bool   `mapstructure:"LOG_JSON"`
	} `mapstructure:",squash"`

	Database struct {
		Host     string `mapstructure:"DB_HOST"`
		Port     int    `mapstructure:"DB_PORT"`
		User     string `mapstructure:"DB_USER"`
		Password string `mapstructure:"DB_PASSWORD"`
		DBName   string `mapstructure:"DB_NAME"`
	} `mapstructure:",squash"`

	Redis struct {
		Addr     string `mapstructure:"REDIS_ADDR"`
		Password string `mapstructure:"REDIS_PASSWORD"`
		DB       int    `mapstructure:"REDIS_DB"`
	} `mapstructure:",squash"`

	JWT struct {
		Secret           string `mapstructure:"JWT_SECRET"`
		MagicTokenSecret string `mapstructure:"MAGIC_TOKEN_SECRET"`
	} `mapstructure:",squash"`

	GoogleAPI struct {
		ClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
		ClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
		RedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
	} `mapstructure:",squash"`

	Archive struct {
		S3Bucket        string `mapstructure:"ARCHIVE_S3_BUCKET"`
		S3Region        string `mapstructure:"ARCHIVE_S3_REGION"`
		AccessKeyID     string `mapstructure:"ARCHIVE_AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `mapstructure:"ARCHIVE_AWS_SECRET_ACCESS_KEY"`
		RetentionDays   int    `mapstructure:"ARCHIVE_RETENTION_DAYS"`
	} `mapstructure:",squash"`

	Scheduler struct {
		FormBaseURL        string `mapstructure:"FORM_BASE_URL"`
		MinParticipants    int    `mapstructure:"DEFAULT_MIN_PARTICIPANTS"`
		TentativeHoldLimit int    `mapstructure:"TENTATIVE_HOLD_LIMIT"`
	} `mapstructure:",squash"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads .env (if present) plus the environment into the config singleton.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", 7070)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "gameplan")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ARCHIVE_S3_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_RETENTION_DAYS", 30)
	v.SetDefault("FORM_BASE_URL", "http://localhost:3000/availability")
	v.SetDefault("DEFAULT_MIN_PARTICIPANTS", 2)
	v.SetDefault("TENTATIVE_HOLD_LIMIT", 3)

	// Bind explicitly so AutomaticEnv picks up keys that have no default.
	for _, key := range []string{
		"DB_PASSWORD", "REDIS_PASSWORD", "JWT_SECRET", "MAGIC_TOKEN_SECRET",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI",
		"ARCHIVE_S3_BUCKET", "ARCHIVE_AWS_ACCESS_KEY_ID", "ARCHIVE_AWS_SECRET_ACCESS_KEY",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWT.MagicTokenSecret == "" {
		return nil, fmt.Errorf("MAGIC_TOKEN_SECRET is required")
	}

	instance = cfg
	return cfg, nil
}

// Get returns the loaded config. Panics if Load was never called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("config not loaded")
	}
	return instance
}

// GetSafe returns the loaded config without panicking.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// SetForTesting swaps the singleton. Test use only.
func SetForTesting(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}
