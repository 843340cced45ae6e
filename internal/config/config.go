package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the orchestrator gateway
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Backend      BackendConfig      `yaml:"backend"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Inference    InferenceConfig    `yaml:"inference"`
	Conversation ConversationConfig `yaml:"conversation"`
	Events       EventsConfig       `yaml:"events"`
	Channels     ChannelsConfig     `yaml:"channels"`
	HealthRing   HealthRingConfig   `yaml:"healthring,omitempty"`
	Scheduler    SchedulerConfig    `yaml:"scheduler,omitempty"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// CORSOrigins lists browser origins allowed to call the HTTP API.
	// "*" allows any origin; empty disables CORS headers.
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// BackendConfig defines the project backend (identity + project creation) connection
type BackendConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the timeout as a time.Duration
func (c *BackendConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// KnowledgeConfig defines the knowledge-lookup service connection
type KnowledgeConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the timeout as a time.Duration
func (c *KnowledgeConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// EngineConfig defines an inference engine configuration
type EngineConfig struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	URL     string   `yaml:"url,omitempty"`
	APIKey  string   `yaml:"api_key,omitempty"`
	Models  []string `yaml:"models,omitempty"`
	Timeout string   `yaml:"timeout,omitempty"`
}

// GetTimeout returns the timeout as a time.Duration
func (e *EngineConfig) GetTimeout() time.Duration {
	return parseDuration(e.Timeout, 120*time.Second)
}

// LaneConfig defines an inference lane configuration
type LaneConfig struct {
	Name   string `yaml:"name"`
	Engine string `yaml:"engine"`
	Model  string `yaml:"model,omitempty"`
}

// InferenceConfig defines inference configurations
type InferenceConfig struct {
	Engines      []EngineConfig `yaml:"engines"`
	Lanes        []LaneConfig   `yaml:"lanes"`
	DefaultLane  string         `yaml:"default_lane,omitempty"`
	ClassifyLane string         `yaml:"classify_lane,omitempty"`
	RespondLane  string         `yaml:"respond_lane,omitempty"`
}

// ConversationConfig tunes the slot-filling dialogue
type ConversationConfig struct {
	// Locale selects the confirm/deny/edit keyword set ("vi", "en").
	Locale       string   `yaml:"locale"`
	NameKeywords []string `yaml:"name_keywords,omitempty"`
}

// EventsConfig defines the Redis Streams outcome publisher
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

// ChannelsConfig defines channel configurations
type ChannelsConfig struct {
	WebChat WebChatConfig `yaml:"webchat"`
}

// WebChatConfig defines WebChat channel settings
type WebChatConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// HealthRingConfig defines collaborator health probe settings
type HealthRingConfig struct {
	Enabled bool                 `yaml:"enabled"`
	Members []HealthMemberConfig `yaml:"members"`
}

// HealthMemberConfig defines a probed collaborator
type HealthMemberConfig struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	ExpectStatus *int   `yaml:"expect_status,omitempty"`
}

// SchedulerConfig defines cron specs for background jobs
type SchedulerConfig struct {
	HealthSpec  string `yaml:"health_spec"`
	SessionSpec string `yaml:"session_spec"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Default returns a configuration usable for local development
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8000, Host: "0.0.0.0", CORSOrigins: []string{"*"}},
		Backend:   BackendConfig{URL: "http://localhost:8082", Timeout: "10s"},
		Knowledge: KnowledgeConfig{URL: "http://localhost:8001", Timeout: "30s"},
		Inference: InferenceConfig{
			Engines: []EngineConfig{
				{Name: "gemini", Type: "gemini", Models: []string{"gemini-2.5-flash"}},
			},
			Lanes:       []LaneConfig{{Name: "default", Engine: "gemini"}},
			DefaultLane: "default",
		},
		Conversation: ConversationConfig{Locale: "vi"},
		Events:       EventsConfig{Addr: "localhost:6379", Stream: "orchestrator:events"},
		Channels:     ChannelsConfig{WebChat: WebChatConfig{Enabled: true}},
		HealthRing:   HealthRingConfig{Enabled: true},
		Scheduler:    SchedulerConfig{HealthSpec: "@every 30s", SessionSpec: "@every 1m"},
		Logging:      LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load loads configuration from a YAML file with environment variable overrides.
// A missing file yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("GATEWAY_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if url := os.Getenv("BACKEND_URL"); url != "" {
		c.Backend.URL = url
	}
	if url := os.Getenv("KNOWLEDGE_URL"); url != "" {
		c.Knowledge.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Events.Addr = addr
		c.Events.Enabled = true
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	for i := range c.Inference.Engines {
		e := &c.Inference.Engines[i]
		switch e.Type {
		case "openai", "openai-compatible":
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				e.APIKey = key
			}
		case "gemini":
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				e.APIKey = key
			}
		case "ollama":
			if url := os.Getenv("OLLAMA_URL"); url != "" {
				e.URL = url
			}
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend URL is required")
	}
	if c.Knowledge.URL == "" {
		return fmt.Errorf("knowledge URL is required")
	}
	if len(c.Inference.Lanes) == 0 {
		return fmt.Errorf("at least one inference lane is required")
	}
	engines := make(map[string]bool, len(c.Inference.Engines))
	for _, e := range c.Inference.Engines {
		engines[e.Name] = true
	}
	for _, l := range c.Inference.Lanes {
		if !engines[l.Engine] {
			return fmt.Errorf("lane %s references unknown engine %s", l.Name, l.Engine)
		}
	}
	if c.Events.Enabled && c.Events.Addr == "" {
		return fmt.Errorf("events addr is required when events are enabled")
	}
	return nil
}
