package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Config is the main configuration struct.
type Config struct {
	Environment string          `yaml:"environment"` // "production" or "development"
	Server      ServerConfig    `yaml:"server"`
	Storage     StorageConfig   `yaml:"storage"`
	Logging     LoggingConfig   `yaml:"logging"`
	Reasoning   ReasoningConfig `yaml:"reasoning"`
	Delivery    DeliveryConfig  `yaml:"delivery"`
	Retention   RetentionConfig `yaml:"retention"`
}

// ServerConfig holds the ops HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds pebble settings. CacheSize accepts human byte sizes
// ("64MB").
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	CacheSize string `yaml:"cache_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ReasoningConfig holds the remote reasoning service settings. APIKey is
// normally supplied via AGENTDESK_REASONING_API_KEY rather than the file.
type ReasoningConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// DeliveryConfig holds queue and worker configuration.
type DeliveryConfig struct {
	Queue  QueueConfig  `yaml:"queue"`
	Worker WorkerConfig `yaml:"worker"`
	SMTP   SMTPConfig   `yaml:"smtp"`
}

// QueueConfig selects and tunes the delivery queue backend. Backend is
// "pebble", "kafka" or "memory"; when empty outside production the memory
// stand-in is substituted automatically.
type QueueConfig struct {
	Backend  string      `yaml:"backend"`
	Capacity int         `yaml:"capacity"`
	Kafka    KafkaConfig `yaml:"kafka"`
}

// KafkaConfig holds broker settings for the kafka queue backend.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// WorkerConfig tunes the delivery worker pool.
type WorkerConfig struct {
	Concurrency int     `yaml:"concurrency"`
	SendRPS     float64 `yaml:"send_rps"`
	SendBurst   int     `yaml:"send_burst"`
}

// SMTPConfig holds outbound mail settings. When Host is empty the daemon
// falls back to the log-only transport.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RetentionConfig holds configuration for the workflow-run purge runner.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Period  string `yaml:"period"`
}

// Addr returns the host:port listen address for the ops server.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Production reports whether the daemon is running in production mode.
func (c *Config) Production() bool { return c.Environment == "production" }

// ReasoningTimeout returns the configured per-call timeout.
func (c *Config) ReasoningTimeout() time.Duration {
	if c.Reasoning.TimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Reasoning.TimeoutMs) * time.Millisecond
}

// CacheBytes parses Storage.CacheSize ("64MB") into bytes; 0 means use the
// pebble default.
func (c *Config) CacheBytes() (int64, error) {
	if c.Storage.CacheSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.Storage.CacheSize)
	if err != nil {
		return 0, fmt.Errorf("invalid storage.cache_size %q: %w", c.Storage.CacheSize, err)
	}
	return int64(n), nil
}

// RetentionPeriod parses Retention.Period ("720h", "30d") into a duration.
func (c *Config) RetentionPeriod() (time.Duration, error) {
	p := c.Retention.Period
	if p == "" {
		return 0, nil
	}
	// accept a trailing "d" suffix for days
	if n := len(p); n > 1 && p[n-1] == 'd' {
		days, err := strconv.Atoi(p[:n-1])
		if err != nil {
			return 0, fmt.Errorf("invalid retention.period %q", p)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(p)
	if err != nil {
		return 0, fmt.Errorf("invalid retention.period %q: %w", p, err)
	}
	return d, nil
}

// ValidateConfig applies canonical defaults in place so downstream
// packages can rely on populated values.
func ValidateConfig(c *Config) error {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Address == "" {
		c.Server.Address = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "./.agentdesk"
	}
	if c.Delivery.Worker.Concurrency <= 0 {
		c.Delivery.Worker.Concurrency = 5
	}
	if c.Delivery.Queue.Capacity <= 0 {
		c.Delivery.Queue.Capacity = 1024
	}
	if c.Delivery.Queue.Backend == "" {
		if c.Production() {
			c.Delivery.Queue.Backend = "pebble"
		} else {
			// non-production with no configured backend: in-memory stand-in
			c.Delivery.Queue.Backend = "memory"
		}
	}
	switch c.Delivery.Queue.Backend {
	case "pebble", "kafka", "memory":
	default:
		return fmt.Errorf("unknown delivery.queue.backend %q", c.Delivery.Queue.Backend)
	}
	if c.Delivery.Queue.Backend == "kafka" {
		if len(c.Delivery.Queue.Kafka.Brokers) == 0 {
			return fmt.Errorf("delivery.queue.backend=kafka requires delivery.queue.kafka.brokers")
		}
		if c.Delivery.Queue.Kafka.Topic == "" {
			c.Delivery.Queue.Kafka.Topic = "agentdesk-deliveries"
		}
		if c.Delivery.Queue.Kafka.GroupID == "" {
			c.Delivery.Queue.Kafka.GroupID = "agentdesk-delivery-worker"
		}
	}
	if _, err := c.CacheBytes(); err != nil {
		return err
	}
	if _, err := c.RetentionPeriod(); err != nil {
		return err
	}
	return nil
}
