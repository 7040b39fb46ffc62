package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Laundry    LaundryConfig    `yaml:"laundry"`
	Engine     EngineConfig     `yaml:"engine"`
	Database   DatabaseConfig   `yaml:"database"`
	AI         AIConfig         `yaml:"ai"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// LaundryConfig describes the machine fleet of each residence.
type LaundryConfig struct {
	Residences []string `yaml:"residences"`
	Washers    int      `yaml:"washers"`
	Dryers     int      `yaml:"dryers"`
}

// EngineConfig holds the tick driver and retention configuration.
type EngineConfig struct {
	TickSeconds    int           `yaml:"tick_seconds"`
	Tick           time.Duration `yaml:"-"` // Ignored by YAML parser
	RetentionDays  int           `yaml:"retention_days"`
	CleanupMinutes int           `yaml:"cleanup_minutes"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AIConfig holds the Gemini client configuration.
type AIConfig struct {
	Enabled                  bool   `yaml:"enabled"`
	BaseURL                  string `yaml:"base_url"`
	Model                    string `yaml:"model"`
	APIKeyEnv                string `yaml:"api_key_env"`
	TimeoutSeconds           int    `yaml:"timeout_seconds"`
	CacheTTLSeconds          int    `yaml:"cache_ttl_seconds"`
	MinRequestIntervalMillis int    `yaml:"min_request_interval_millis"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the push delivery worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// DefaultResidences is used when the config file does not list any.
var DefaultResidences = []string{
	"Dagbreek",
	"Eendrag",
	"Goldfields",
	"Harmonie",
	"Helshoogte",
	"Huis Marais",
	"Huis Neethling",
	"Huis Visser",
	"Irene",
	"Majuba",
	"Metanoia",
	"Monica",
	"Nemesia",
	"Nkosi Johnson",
	"Simonsberg",
	"Wimbledon",
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if len(cfg.Laundry.Residences) == 0 {
		cfg.Laundry.Residences = DefaultResidences
	}
	if cfg.Laundry.Washers <= 0 {
		cfg.Laundry.Washers = 5
	}
	if cfg.Laundry.Dryers <= 0 {
		cfg.Laundry.Dryers = 3
	}

	if cfg.Engine.TickSeconds <= 0 {
		cfg.Engine.TickSeconds = 1
	}
	cfg.Engine.Tick = time.Duration(cfg.Engine.TickSeconds) * time.Second
	if cfg.Engine.RetentionDays <= 0 {
		cfg.Engine.RetentionDays = 7
	}
	if cfg.Engine.CleanupMinutes <= 0 {
		cfg.Engine.CleanupMinutes = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		// All state is process-resident by default.
		cfg.Database.DSN = "file::memory:?cache=shared"
	}

	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash"
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 15
	}
	if cfg.AI.CacheTTLSeconds <= 0 {
		cfg.AI.CacheTTLSeconds = 300
	}
	if cfg.AI.MinRequestIntervalMillis <= 0 {
		cfg.AI.MinRequestIntervalMillis = 1000
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
