package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

// GraphConfig selects and configures the knowledge-store backend.
// Provider is "sparql" (HTTP endpoint) or "cypher" (bolt).
type GraphConfig struct {
	Provider       string `toml:"provider"`
	Endpoint       string `toml:"endpoint"`
	URI            string `toml:"uri"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type TranslatorConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type DecisionConfig struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type AnalyticsConfig struct {
	Endpoint           string `toml:"endpoint"`
	CapabilityEndpoint string `toml:"capability_endpoint"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

type TelemetryConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Database        string `toml:"database"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"sslmode"`
	Table           string `toml:"table"`
	TimestampColumn string `toml:"timestamp_column"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// DSN returns the PostgreSQL connection string.
func (t TelemetryConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		t.Host, t.Port, t.User, t.Password, t.Database, t.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type RegistryConfig struct {
	SensorTTLSeconds     int `toml:"sensor_ttl_seconds"`
	CapabilityTTLSeconds int `toml:"capability_ttl_seconds"`
	FuzzyThreshold       int `toml:"fuzzy_threshold"`
}

type ArtifactConfig struct {
	Dir string `toml:"dir"`
}

type SummaryPrompts struct {
	Ontology string `toml:"ontology"`
	Enriched string `toml:"enriched"`
}

type PromptsConfig struct {
	Translation string         `toml:"translation"`
	Summary     SummaryPrompts `toml:"summary"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	LLM        LLMConfig        `toml:"llm"`
	Graph      GraphConfig      `toml:"graph"`
	Translator TranslatorConfig `toml:"translator"`
	Decision   DecisionConfig   `toml:"decision"`
	Analytics  AnalyticsConfig  `toml:"analytics"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Redis      RedisConfig      `toml:"redis"`
	Registry   RegistryConfig   `toml:"registry"`
	Artifacts  ArtifactConfig   `toml:"artifacts"`
	Prompts    PromptsConfig    `toml:"prompts"`
	Logging    LoggingConfig    `toml:"logging"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Graph.Provider == "" {
		c.Graph.Provider = "sparql"
	}
	if c.Graph.TimeoutSeconds == 0 {
		c.Graph.TimeoutSeconds = 30
	}
	if c.Translator.TimeoutSeconds == 0 {
		c.Translator.TimeoutSeconds = 30
	}
	if c.Decision.TimeoutSeconds == 0 {
		c.Decision.TimeoutSeconds = 10
	}
	if c.Analytics.TimeoutSeconds == 0 {
		c.Analytics.TimeoutSeconds = 60
	}
	if c.Telemetry.TimestampColumn == "" {
		c.Telemetry.TimestampColumn = "ts"
	}
	if c.Telemetry.TimeoutSeconds == 0 {
		c.Telemetry.TimeoutSeconds = 30
	}
	if c.Registry.SensorTTLSeconds == 0 {
		c.Registry.SensorTTLSeconds = 300
	}
	if c.Registry.CapabilityTTLSeconds == 0 {
		c.Registry.CapabilityTTLSeconds = 300
	}
	if c.Registry.FuzzyThreshold == 0 {
		c.Registry.FuzzyThreshold = 80
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "artifacts"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// SensorTTL returns the sensor registry staleness window.
func (r RegistryConfig) SensorTTL() time.Duration {
	return time.Duration(r.SensorTTLSeconds) * time.Second
}

// CapabilityTTL returns the capability registry staleness window.
func (r RegistryConfig) CapabilityTTL() time.Duration {
	return time.Duration(r.CapabilityTTLSeconds) * time.Second
}
