package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Env    string       `env:"APP_ENV" envDefault:"local" validate:"oneof=local dev prod"`
	Log    LogConfig    `envPrefix:"LOG_"`
	Server ServerConfig `envPrefix:"SERVER_"`
	Web    WebConfig    `envPrefix:"WEB_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"FORMAT" envDefault:"text" validate:"oneof=json text"`
}

// ServerConfig configures the remove-bg API.
type ServerConfig struct {
	Addr           string   `env:"ADDR" envDefault:":8080" validate:"required"`
	GinMode        string   `env:"GIN_MODE" envDefault:"release" validate:"oneof=debug release test"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" envDefault:"5242880" validate:"gt=0"`
	MaxPixels      int64    `env:"MAX_PIXELS" envDefault:"89478485" validate:"gt=0"`
	Remover        string   `env:"REMOVER" envDefault:"colorkey" validate:"oneof=colorkey upstream"`
	UpstreamURL    string   `env:"UPSTREAM_URL" validate:"required_if=Remover upstream"`
	Tolerance      uint8    `env:"TOLERANCE" envDefault:"32"`
	MaxSide        int      `env:"MAX_SIDE" envDefault:"2048" validate:"gte=0"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// WebConfig configures the widget host.
type WebConfig struct {
	Addr       string        `env:"ADDR" envDefault:":8081" validate:"required"`
	GinMode    string        `env:"GIN_MODE" envDefault:"release" validate:"oneof=debug release test"`
	RemoteURL  string        `env:"REMOTE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"30m" validate:"gt=0"`
	SweepSpec  string        `env:"SWEEP_SPEC" envDefault:"@every 1m" validate:"required"`
}

// Load reads an optional .env file, then the environment.
func Load(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
