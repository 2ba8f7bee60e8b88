package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Providers ProvidersConfig `yaml:"providers"`
	Cache     CacheConfig     `yaml:"cache"`
	Guild     GuildConfig     `yaml:"guild"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds the metric-observation ingestion configuration
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	GroupID      string        `yaml:"group_id"`
	Enabled      bool          `yaml:"enabled"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// ProviderConfig holds one origin API's endpoint and credentials
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// ProvidersConfig holds all origin API configurations
type ProvidersConfig struct {
	Mojang        ProviderConfig `yaml:"mojang"`
	MojangSession ProviderConfig `yaml:"mojang_session"`
	Hypixel       ProviderConfig `yaml:"hypixel"`
	Wynncraft     ProviderConfig `yaml:"wynncraft"`
	Timeout       time.Duration  `yaml:"timeout"`
}

// CacheConfig holds TTLs for the cache tiers. Identity records stay stored
// far beyond the soft TTL so stale-allowed reads and bulk roster resolution
// never need an origin call.
type CacheConfig struct {
	IdentitySoftTTL time.Duration `yaml:"identity_soft_ttl"`
	IdentityHardTTL time.Duration `yaml:"identity_hard_ttl"`
	StatsTTL        time.Duration `yaml:"stats_ttl"`
	MetricDefTTL    time.Duration `yaml:"metric_def_ttl"`
}

// GuildConfig holds roster pagination limits
type GuildConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	ResolveWorkers int `yaml:"resolve_workers"`
}

// TrackerConfig holds live status tracker configuration
type TrackerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// WorkerConfig holds background task queue configuration
type WorkerConfig struct {
	Workers     int           `yaml:"workers"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 30
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "metric-observations"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "playerstats-consumer"
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = 100
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = 1 * time.Second
	}

	// Provider defaults
	if c.Providers.Mojang.BaseURL == "" {
		c.Providers.Mojang.BaseURL = "https://api.mojang.com"
	}
	if c.Providers.MojangSession.BaseURL == "" {
		c.Providers.MojangSession.BaseURL = "https://sessionserver.mojang.com"
	}
	if c.Providers.Hypixel.BaseURL == "" {
		c.Providers.Hypixel.BaseURL = "https://api.hypixel.net"
	}
	if c.Providers.Wynncraft.BaseURL == "" {
		c.Providers.Wynncraft.BaseURL = "https://api.wynncraft.com"
	}
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = 10 * time.Second
	}

	// Cache defaults. Identity soft TTL keeps normal searches fresh while the
	// hard TTL backs bulk roster resolution; guild lookups get rate-limited
	// quickly upstream, so stored records stay usable for a week.
	if c.Cache.IdentitySoftTTL == 0 {
		c.Cache.IdentitySoftTTL = 3 * time.Minute
	}
	if c.Cache.IdentityHardTTL == 0 {
		c.Cache.IdentityHardTTL = 7 * 24 * time.Hour
	}
	if c.Cache.StatsTTL == 0 {
		c.Cache.StatsTTL = 3 * time.Minute
	}
	if c.Cache.MetricDefTTL == 0 {
		c.Cache.MetricDefTTL = 10 * time.Minute
	}

	// Guild defaults
	if c.Guild.DefaultLimit == 0 {
		c.Guild.DefaultLimit = 20
	}
	if c.Guild.MaxLimit == 0 {
		c.Guild.MaxLimit = 50
	}
	if c.Guild.ResolveWorkers == 0 {
		c.Guild.ResolveWorkers = 8
	}

	// Tracker defaults
	if c.Tracker.PollInterval == 0 {
		c.Tracker.PollInterval = 20 * time.Second
	}

	// Worker defaults
	if c.Worker.Workers == 0 {
		c.Worker.Workers = 4
	}
	if c.Worker.TaskTimeout == 0 {
		c.Worker.TaskTimeout = 10 * time.Second
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Tracker.Enabled = true
	return cfg
}
