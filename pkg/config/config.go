package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/notify"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MirrorRedis   RedisConfig         `mapstructure:"mirror_redis"`
	Session       SessionConfig       `mapstructure:"session"`
	Mirror        MirrorConfig        `mapstructure:"mirror"`
	Cooldown      CooldownConfig      `mapstructure:"cooldown"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Database      DatabaseConfig      `mapstructure:"database"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Host        string `mapstructure:"host"`
	// SecretKey enables bearer token auth; empty means X-Requester-ID is trusted.
	SecretKey string   `mapstructure:"secret_key"`
	AdminIDs  []string `mapstructure:"admin_ids"`
	// FeedMaxConnections bounds concurrent websocket feed clients.
	FeedMaxConnections int `mapstructure:"feed_max_connections"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	EnableLatency bool `mapstructure:"enable_latency"`
}

// RedisConfig with an empty host selects the in-process memory backend.
type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type SessionConfig struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	ClosedRetention time.Duration `mapstructure:"closed_retention"`
	EvictionSlack   time.Duration `mapstructure:"eviction_slack"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MailboxSize     int           `mapstructure:"mailbox_size"`
}

type MirrorConfig struct {
	LocalTTL time.Duration `mapstructure:"local_ttl"`
}

type CooldownConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ExemptScopes []string      `mapstructure:"exempt_scopes"`
}

type SchedulerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ExpiryInterval time.Duration `mapstructure:"expiry_interval"`
	StartInterval  time.Duration `mapstructure:"start_interval"`
	TeardownGrace  time.Duration `mapstructure:"teardown_grace"`
	SideChannelTTL time.Duration `mapstructure:"side_channel_ttl"`
	LeaderName     string        `mapstructure:"leader_name"`
	LeaderTTL      time.Duration `mapstructure:"leader_ttl"`
	Parallelism    int           `mapstructure:"parallelism"`
}

type NotificationsConfig struct {
	Workers     int                 `mapstructure:"workers"`
	QueueSize   int                 `mapstructure:"queue_size"`
	SinkTimeout time.Duration       `mapstructure:"sink_timeout"`
	Sinks       []notify.SinkConfig `mapstructure:"sinks"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Load reads config.yaml from configPath, ./config or the working directory. A
// missing file is not an error: defaults and environment variables still apply,
// with dots replaced by underscores (REDIS_HOST, SESSION_DEFAULT_TTL).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if !cfg.MirrorRedis.Enabled() {
		cfg.MirrorRedis = cfg.Redis
	}
	if cfg.Session.EvictionSlack <= 0 {
		cfg.Session.EvictionSlack = 2 * cfg.Scheduler.ExpiryInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.feed_max_connections", 1024)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency", true)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.op_timeout", 3*time.Second)
	v.SetDefault("session.default_ttl", 8*time.Hour)
	v.SetDefault("session.closed_retention", 5*time.Hour)
	// Zero derives the slack from scheduler.expiry_interval.
	v.SetDefault("session.eviction_slack", time.Duration(0))
	v.SetDefault("session.lock_ttl", 30*time.Second)
	v.SetDefault("session.idle_timeout", time.Minute)
	v.SetDefault("session.mailbox_size", 64)
	v.SetDefault("mirror.local_ttl", 30*time.Second)
	v.SetDefault("cooldown.interval", 60*time.Second)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.expiry_interval", time.Hour)
	v.SetDefault("scheduler.start_interval", time.Minute)
	v.SetDefault("scheduler.teardown_grace", 5*time.Minute)
	v.SetDefault("scheduler.side_channel_ttl", 24*time.Hour)
	v.SetDefault("scheduler.leader_name", "recruitgate-scheduler")
	v.SetDefault("scheduler.leader_ttl", 30*time.Second)
	v.SetDefault("scheduler.parallelism", 8)
	v.SetDefault("notifications.workers", 4)
	v.SetDefault("notifications.queue_size", 1000)
	v.SetDefault("notifications.sink_timeout", 5*time.Second)
	v.SetDefault("notifications.sinks", []map[string]interface{}{{"name": "log"}})
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if c.Session.DefaultTTL <= 0 {
		return errors.New("session.default_ttl must be positive")
	}
	// A record must outlive one missed sweep, or it vanishes without its
	// auto-close side effects.
	if c.Scheduler.Enabled && c.Session.EvictionSlack < 2*c.Scheduler.ExpiryInterval {
		return errors.New("session.eviction_slack must be at least twice scheduler.expiry_interval")
	}
	if c.Scheduler.LeaderTTL < 3*time.Second {
		return errors.New("scheduler.leader_ttl must be at least 3s")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return errors.New("database.host is required when the archive is enabled")
	}
	return nil
}

// IsAdmin reports whether id is on the static admin list.
func (c *Config) IsAdmin(id string) bool {
	for _, admin := range c.Server.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}
