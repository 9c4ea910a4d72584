// Package config loads the copilot process's own configuration: where
// the cluster's metric/log/knowledge-base sources live, how to reach
// the relational store, Redis, and the object store, which LLM
// providers back the two narrator tiers, and the ambient cadence and
// server settings. Configuration is YAML on disk with an environment
// overlay, validated with struct tags before anything else starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the read API's HTTP listener.
type ServerConfig struct {
	ListenAddr    string `yaml:"listen_addr" validate:"required"`
	MetricsAddr   string `yaml:"metrics_addr" validate:"required"`
	TimelineLimit int    `yaml:"timeline_limit" validate:"gt=0"`
}

// SourcesConfig points at the cluster's observable surfaces.
type SourcesConfig struct {
	PrometheusEndpoint string        `yaml:"prometheus_endpoint" validate:"required,url"`
	LokiEndpoint       string        `yaml:"loki_endpoint" validate:"required,url"`
	KBEndpoint         string        `yaml:"kb_endpoint" validate:"required,url"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

// StoreConfig is the persistence layer's connection settings. MaxConns
// and MaxIdleConns are forwarded into the Compiler's persistence
// preset as starting values, not the final Safety-resolved ones.
type StoreConfig struct {
	PostgresDSN  string `yaml:"postgres_dsn" validate:"required"`
	RedisAddr    string `yaml:"redis_addr" validate:"required"`
	ObjectBucket string `yaml:"object_bucket" validate:"required"`
	MaxConns     int    `yaml:"max_conns" validate:"gt=0"`
	MaxIdleConns int    `yaml:"max_idle_conns" validate:"gt=0"`
}

// NarratorConfig configures both narrator tiers: a cheap triage model
// reached through langchaingo's generic llms.Model interface, and the
// deep narrator backed directly by the Anthropic Messages API.
type NarratorConfig struct {
	TriageProvider string `yaml:"triage_provider" validate:"required,oneof=ollama anthropic"`
	TriageEndpoint string `yaml:"triage_endpoint"`
	TriageModel    string `yaml:"triage_model" validate:"required"`

	AnthropicAPIKey string `yaml:"anthropic_api_key" validate:"required"`
	DeepModel       string `yaml:"deep_model" validate:"required"`
}

// LoopConfig controls the Observation Loop's cadence.
type LoopConfig struct {
	ClusterID                string        `yaml:"cluster_id" validate:"required"`
	Namespace                string        `yaml:"namespace"`
	TaskQueue                string        `yaml:"task_queue"`
	PollInterval             time.Duration `yaml:"poll_interval" validate:"gt=0"`
	ScheduledAssessmentEvery time.Duration `yaml:"scheduled_assessment_every" validate:"gt=0"`
	ProfileCaptureEvery      time.Duration `yaml:"profile_capture_every" validate:"gt=0"`
}

// LoggingConfig controls the zap logger constructed at process start.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"required,oneof=json console"`
}

// Config is the top-level process configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Sources  SourcesConfig  `yaml:"sources" validate:"required"`
	Store    StoreConfig    `yaml:"store" validate:"required"`
	Narrator NarratorConfig `yaml:"narrator" validate:"required"`
	Loop     LoopConfig     `yaml:"loop" validate:"required"`
	Logging  LoggingConfig  `yaml:"logging" validate:"required"`
}

// Default returns a Config with every non-secret field set to the
// values this copilot runs with when nothing overrides them. Secrets
// (API keys, DSNs) are left empty; Load's environment overlay or the
// config file must supply them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:    ":8080",
			MetricsAddr:   ":9090",
			TimelineLimit: 20,
		},
		Sources: SourcesConfig{
			FetchTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			MaxConns:     50,
			MaxIdleConns: 50,
		},
		Narrator: NarratorConfig{
			TriageProvider: "ollama",
			TriageModel:    "llama3",
			DeepModel:      "claude-sonnet-4-5",
		},
		Loop: LoopConfig{
			PollInterval:             30 * time.Second,
			ScheduledAssessmentEvery: 4 * time.Minute,
			ProfileCaptureEvery:      time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path as YAML over Default, overlays process environment
// variables, validates the result, and returns it.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv overlays a small set of deployment secrets and knobs that
// should never live in a checked-in config file.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("COPILOT_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("COPILOT_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("COPILOT_ANTHROPIC_API_KEY"); v != "" {
		cfg.Narrator.AnthropicAPIKey = v
	}
	if v := os.Getenv("COPILOT_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("COPILOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COPILOT_TIMELINE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COPILOT_TIMELINE_LIMIT must be an integer: %w", err)
		}
		cfg.Server.TimelineLimit = n
	}
	return nil
}

var validate10 = validator.New()

// validate runs struct-tag validation and translates the first failure
// only into a message naming the field and constraint, rather
// than the validator library's default Go-struct-path-based message.
func validate(cfg *Config) error {
	err := validate10.Struct(cfg)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	first := verrs[0]
	return fmt.Errorf("config validation failed: field %q failed constraint %q (value: %v)",
		first.Namespace(), first.Tag(), first.Value())
}
