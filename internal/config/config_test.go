package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Clearenv()
	})

	Describe("Load", func() {
		Context("when the config file has valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  listen_addr: ":8080"
  metrics_addr: ":9090"
  timeline_limit: 25

sources:
  prometheus_endpoint: "http://prometheus.internal:9090"
  loki_endpoint: "http://loki.internal:3100"
  kb_endpoint: "http://kb.internal:8081"
  fetch_timeout: "5s"

store:
  postgres_dsn: "postgres://copilot@dsql.internal:5432/copilot"
  redis_addr: "redis.internal:6379"
  object_bucket: "copilot-behaviour-profiles"
  max_conns: 50
  max_idle_conns: 50

narrator:
  triage_provider: "ollama"
  triage_endpoint: "http://ollama.internal:11434"
  triage_model: "llama3"
  anthropic_api_key: "test-key"
  deep_model: "claude-sonnet-4-5"

loop:
  cluster_id: "prod-cluster-1"
  poll_interval: "30s"
  scheduled_assessment_every: "4m"

logging:
  level: "info"
  format: "json"
`
				Expect(os.WriteFile(configFile, []byte(validConfig), 0644)).To(Succeed())
			})

			It("loads every section", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.ListenAddr).To(Equal(":8080"))
				Expect(cfg.Server.TimelineLimit).To(Equal(25))
				Expect(cfg.Sources.PrometheusEndpoint).To(Equal("http://prometheus.internal:9090"))
				Expect(cfg.Sources.FetchTimeout).To(Equal(5 * time.Second))
				Expect(cfg.Store.MaxConns).To(Equal(50))
				Expect(cfg.Narrator.TriageProvider).To(Equal("ollama"))
				Expect(cfg.Loop.ClusterID).To(Equal("prod-cluster-1"))
				Expect(cfg.Loop.PollInterval).To(Equal(30 * time.Second))
				Expect(cfg.Logging.Format).To(Equal("json"))
			})
		})

		Context("when the config file does not exist", func() {
			It("returns an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when the config file has invalid YAML", func() {
			BeforeEach(func() {
				Expect(os.WriteFile(configFile, []byte("server: [invalid"), 0644)).To(Succeed())
			})

			It("returns an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when a required field is missing", func() {
			BeforeEach(func() {
				missingSources := `
server:
  listen_addr: ":8080"
  metrics_addr: ":9090"
  timeline_limit: 10

store:
  postgres_dsn: "postgres://x"
  redis_addr: "redis:6379"
  object_bucket: "bucket"
  max_conns: 10
  max_idle_conns: 10

narrator:
  triage_provider: "ollama"
  triage_model: "llama3"
  anthropic_api_key: "key"
  deep_model: "claude-sonnet-4-5"

loop:
  cluster_id: "c1"
  poll_interval: "30s"
  scheduled_assessment_every: "4m"

logging:
  level: "info"
  format: "json"
`
				Expect(os.WriteFile(configFile, []byte(missingSources), 0644)).To(Succeed())
			})

			It("fails validation naming the missing field", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config validation failed"))
				Expect(err.Error()).To(ContainSubstring("Config.Sources"))
			})
		})
	})

	Describe("validate", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = Default()
			cfg.Sources = SourcesConfig{
				PrometheusEndpoint: "http://prom:9090",
				LokiEndpoint:       "http://loki:3100",
				KBEndpoint:         "http://kb:8081",
				FetchTimeout:       5 * time.Second,
			}
			cfg.Store.PostgresDSN = "postgres://x"
			cfg.Store.RedisAddr = "redis:6379"
			cfg.Store.ObjectBucket = "bucket"
			cfg.Narrator.AnthropicAPIKey = "key"
			cfg.Loop.ClusterID = "c1"
		})

		It("passes for a fully populated config", func() {
			Expect(validate(cfg)).To(Succeed())
		})

		It("rejects an unsupported triage provider", func() {
			cfg.Narrator.TriageProvider = "bedrock"
			err := validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Narrator.TriageProvider"))
		})

		It("rejects a zero timeline limit", func() {
			cfg.Server.TimelineLimit = 0
			Expect(validate(cfg)).To(HaveOccurred())
		})

		It("rejects a non-URL prometheus endpoint", func() {
			cfg.Sources.PrometheusEndpoint = "not-a-url"
			Expect(validate(cfg)).To(HaveOccurred())
		})
	})

	Describe("loadFromEnv", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = Default()
			os.Clearenv()
		})

		It("overlays known environment variables", func() {
			os.Setenv("COPILOT_POSTGRES_DSN", "postgres://env")
			os.Setenv("COPILOT_REDIS_ADDR", "env-redis:6379")
			os.Setenv("COPILOT_ANTHROPIC_API_KEY", "env-key")
			os.Setenv("COPILOT_LISTEN_ADDR", ":9999")
			os.Setenv("COPILOT_LOG_LEVEL", "debug")
			os.Setenv("COPILOT_TIMELINE_LIMIT", "42")

			Expect(loadFromEnv(cfg)).To(Succeed())
			Expect(cfg.Store.PostgresDSN).To(Equal("postgres://env"))
			Expect(cfg.Store.RedisAddr).To(Equal("env-redis:6379"))
			Expect(cfg.Narrator.AnthropicAPIKey).To(Equal("env-key"))
			Expect(cfg.Server.ListenAddr).To(Equal(":9999"))
			Expect(cfg.Logging.Level).To(Equal("debug"))
			Expect(cfg.Server.TimelineLimit).To(Equal(42))
		})

		It("leaves the config untouched when nothing is set", func() {
			before := *cfg
			Expect(loadFromEnv(cfg)).To(Succeed())
			Expect(*cfg).To(Equal(before))
		})

		It("rejects a non-integer timeline limit", func() {
			os.Setenv("COPILOT_TIMELINE_LIMIT", "not-a-number")
			Expect(loadFromEnv(cfg)).To(HaveOccurred())
		})
	})

	Describe("Default", func() {
		It("produces a config whose non-secret fields already satisfy validation", func() {
			cfg := Default()
			cfg.Sources = SourcesConfig{
				PrometheusEndpoint: "http://prom:9090",
				LokiEndpoint:       "http://loki:3100",
				KBEndpoint:         "http://kb:8081",
				FetchTimeout:       5 * time.Second,
			}
			cfg.Store.PostgresDSN = "postgres://x"
			cfg.Store.RedisAddr = "redis:6379"
			cfg.Store.ObjectBucket = "bucket"
			cfg.Narrator.AnthropicAPIKey = "key"
			cfg.Loop.ClusterID = "c1"
			Expect(validate(cfg)).To(Succeed())
		})
	})
})
