package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`

	SentryEnabled bool `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// exercise catalog (external exercise database API)
	ExerciseCatalogBaseURL string `toml:"exercise_catalog_base_url"`

	// ai coach
	CoachBaseURL        string `toml:"coach_base_url"`
	CoachModel          string `toml:"coach_model"`
	CoachTimeoutSeconds int    `toml:"coach_timeout_seconds"`

	// analytics response cache TTL in seconds (0 disables caching)
	AnalyticsCacheTTLSeconds int `toml:"analytics_cache_ttl_seconds"`
}

// Secrets are taken from the environment, never from the config file.
type Secrets struct {
	SentryDSN          string `env:"LIFTLOG_SENTRY_DSN"`
	CoachAPIKey        string `env:"LIFTLOG_COACH_API_KEY"`
	ExerciseCatalogKey string `env:"LIFTLOG_EXERCISE_CATALOG_KEY"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlConfig Toml
	if _, err := toml.DecodeFile(path, &tomlConfig); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := tomlConfig.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}

	cfg.Environment = env
	return cfg, nil
}

func LoadSecrets(ctx context.Context) (*Secrets, error) {
	var secrets Secrets
	if err := envconfig.Process(ctx, &secrets); err != nil {
		return nil, fmt.Errorf("process env secrets: %w", err)
	}
	return &secrets, nil
}
