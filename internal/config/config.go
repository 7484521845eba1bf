// Package config loads application configuration.
//
// Sources in priority order: environment variables (WALLETD_ prefix), config
// file, defaults. Durations accept Go duration strings ("500ms", "5s").
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	WriteDB   DatabaseConfig  `mapstructure:"write_db"`
	ReadDB    DatabaseConfig  `mapstructure:"read_db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Projector ProjectorConfig `mapstructure:"projector"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
}

// AppConfig identifies the service instance.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
}

// IsProduction reports whether the environment is production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Address returns the listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig describes one PostgreSQL endpoint. Two instances exist: the
// write primary and the read replica.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig describes the cache endpoint.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig describes the broker endpoint.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig holds the admin token settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// EngineConfig holds command deadlines and retry budgets.
type EngineConfig struct {
	CommandDeadline     time.Duration `mapstructure:"command_deadline"`
	ReadDeadline        time.Duration `mapstructure:"read_deadline"`
	OptimisticRetryMax  int           `mapstructure:"optimistic_retry_max"`
	OptimisticRetryBase time.Duration `mapstructure:"optimistic_retry_base"`
	OptimisticRetryCap  time.Duration `mapstructure:"optimistic_retry_cap"`
	TransientRetryMax   int           `mapstructure:"transient_retry_max"`
	TransientRetryBase  time.Duration `mapstructure:"transient_retry_base"`
	TransientRetryCap   time.Duration `mapstructure:"transient_retry_cap"`
	SingleWalletPerUser bool          `mapstructure:"single_wallet_per_user"`
}

// OutboxConfig tunes the relay.
type OutboxConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	BatchSize      int           `mapstructure:"batch_size"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	Retention      time.Duration `mapstructure:"retention"`
	CleanupEvery   time.Duration `mapstructure:"cleanup_every"`
}

// ProjectorConfig tunes the read-side consumer.
type ProjectorConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	EventDeadline time.Duration `mapstructure:"event_deadline"`
}

// CacheConfig tunes the wallet snapshot cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LogConfig tunes logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads configuration from an optional file plus environment variables.
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/walletd")

	v.SetEnvPrefix("WALLETD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file is fine: defaults plus env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "walletd")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.cors_origins", []string{"*"})

	for _, db := range []string{"write_db", "read_db"} {
		v.SetDefault(db+".host", "localhost")
		v.SetDefault(db+".user", "postgres")
		v.SetDefault(db+".password", "postgres")
		v.SetDefault(db+".ssl_mode", "disable")
		v.SetDefault(db+".max_connections", 25)
		v.SetDefault(db+".min_connections", 5)
		v.SetDefault(db+".max_conn_lifetime", "1h")
		v.SetDefault(db+".max_conn_idle_time", "30m")
	}
	v.SetDefault("write_db.port", 5432)
	v.SetDefault("write_db.database", "walletd")
	v.SetDefault("read_db.port", 5433)
	v.SetDefault("read_db.database", "walletd_read")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("auth.jwt_secret", "change-me-in-production")

	v.SetDefault("engine.command_deadline", "1s")
	v.SetDefault("engine.read_deadline", "500ms")
	v.SetDefault("engine.optimistic_retry_max", 5)
	v.SetDefault("engine.optimistic_retry_base", "10ms")
	v.SetDefault("engine.optimistic_retry_cap", "200ms")
	v.SetDefault("engine.transient_retry_max", 3)
	v.SetDefault("engine.transient_retry_base", "100ms")
	v.SetDefault("engine.transient_retry_cap", "1s")
	v.SetDefault("engine.single_wallet_per_user", false)

	v.SetDefault("outbox.interval", "5s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.publish_timeout", "5s")
	v.SetDefault("outbox.retention", "168h") // 7 days
	v.SetDefault("outbox.cleanup_every", "1h")

	v.SetDefault("projector.concurrency", 4)
	v.SetDefault("projector.event_deadline", "2s")

	v.SetDefault("cache.ttl", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.App.IsProduction() && c.Auth.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT secret must be changed in production")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.WriteDB.Host == "" || c.ReadDB.Host == "" {
		return fmt.Errorf("write and read database hosts are required")
	}
	if c.Engine.OptimisticRetryMax < 1 || c.Engine.TransientRetryMax < 1 {
		return fmt.Errorf("retry budgets must be at least 1")
	}
	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("outbox batch size must be at least 1")
	}
	if c.Projector.Concurrency < 1 {
		return fmt.Errorf("projector concurrency must be at least 1")
	}
	return nil
}

// Test returns a configuration suitable for tests.
func Test() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	cfg.App.Environment = "test"
	cfg.Log.Level = "error"
	return &cfg
}
