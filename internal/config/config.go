package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	BaseImage           string `mapstructure:"BASE_IMAGE" validate:"required"`
	DefaultStartCommand string `mapstructure:"DEFAULT_START_COMMAND" validate:"required"`
	PinRevision         bool   `mapstructure:"PIN_REVISION"`

	// Zero disables the deadline.
	BuildTimeout time.Duration `mapstructure:"BUILD_TIMEOUT" validate:"gte=0"`
	RunTimeout   time.Duration `mapstructure:"RUN_TIMEOUT" validate:"gte=0"`
	StopTimeout  time.Duration `mapstructure:"STOP_TIMEOUT" validate:"gte=0"`

	PollInterval      time.Duration `mapstructure:"POLL_INTERVAL" validate:"gt=0"`
	HeartbeatInterval time.Duration `mapstructure:"HEARTBEAT_INTERVAL" validate:"gt=0"`

	// IdentityHeader names a trusted proxy header carrying the caller address.
	// Empty means the connection's remote address is used.
	IdentityHeader string `mapstructure:"IDENTITY_HEADER"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"BASE_IMAGE",
	"DEFAULT_START_COMMAND",
	"PIN_REVISION",
	"BUILD_TIMEOUT",
	"RUN_TIMEOUT",
	"STOP_TIMEOUT",
	"POLL_INTERVAL",
	"HEARTBEAT_INTERVAL",
	"IDENTITY_HEADER",
}

// Load reads .env files if present, applies defaults, binds env vars, and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("BASE_IMAGE", "python:3.9-slim")
	v.SetDefault("DEFAULT_START_COMMAND", "python bot.py")
	v.SetDefault("PIN_REVISION", true)
	v.SetDefault("BUILD_TIMEOUT", "0s")
	v.SetDefault("RUN_TIMEOUT", "0s")
	v.SetDefault("STOP_TIMEOUT", "10s")
	v.SetDefault("POLL_INTERVAL", "1s")
	v.SetDefault("HEARTBEAT_INTERVAL", "15s")
	v.SetDefault("IDENTITY_HEADER", "")

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}
