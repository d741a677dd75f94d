package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the order service
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	RabbitMQ     RabbitMQConfig     `yaml:"rabbitmq"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	Identity     IdentityConfig     `yaml:"identity"`
	Auth         AuthConfig         `yaml:"auth"`
	Notification NotificationConfig `yaml:"notification"`
	Cache        CacheConfig        `yaml:"cache"`
	Timeouts     TimeoutsConfig     `yaml:"timeouts"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	MigrationsPath string `yaml:"migrations_path"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Prefetch      int    `yaml:"prefetch"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

// KafkaConfig holds Kafka broker configuration
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IdentityConfig points at the customer and user service
type IdentityConfig struct {
	BaseURL      string `yaml:"base_url"`
	CustomerPath string `yaml:"customer_path"`
	UserPath     string `yaml:"user_path"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	Algorithm     string `yaml:"algorithm"`
	PublicKeyPath string `yaml:"public_key_path"`
	Secret        string `yaml:"secret"`
}

// Notification transports
const (
	TransportRabbitMQ = "rabbitmq"
	TransportKafka    = "kafka"
)

// NotificationConfig selects the transport and destination for order events
type NotificationConfig struct {
	Transport string `yaml:"transport"`
	Queue     string `yaml:"queue"`
}

// CacheConfig holds listing cache settings
type CacheConfig struct {
	ListingTTL time.Duration `yaml:"listing_ttl"`
}

// TimeoutsConfig bounds every outbound call
type TimeoutsConfig struct {
	Store    time.Duration `yaml:"store"`
	Identity time.Duration `yaml:"identity"`
	Cache    time.Duration `yaml:"cache"`
	Queue    time.Duration `yaml:"queue"`
}

// TelemetryConfig holds OTLP exporter settings; an empty endpoint disables export
type TelemetryConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AuthHeader string `yaml:"auth_header"`
	TracesPath string `yaml:"traces_path"`
	LogsPath   string `yaml:"logs_path"`
}

// Load reads configuration from a YAML file and applies environment overrides
func Load(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	return Parse(content)
}

// Parse decodes YAML content, applies defaults and environment overrides
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used for keys absent from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 3000, MigrationsPath: "migrations"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		RabbitMQ: RabbitMQConfig{
			Host:          "localhost",
			Port:          5672,
			Prefetch:      10,
			RetryAttempts: 3,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Identity: IdentityConfig{
			CustomerPath: "/customers",
			UserPath:     "/users",
		},
		Auth:         AuthConfig{Algorithm: "RS256"},
		Notification: NotificationConfig{Transport: TransportRabbitMQ, Queue: "order_notifications"},
		Cache:        CacheConfig{ListingTTL: 60 * time.Second},
		Timeouts: TimeoutsConfig{
			Store:    5 * time.Second,
			Identity: 5 * time.Second,
			Cache:    500 * time.Millisecond,
			Queue:    2 * time.Second,
		},
		Telemetry: TelemetryConfig{TracesPath: "/v1/traces", LogsPath: "/v1/logs"},
	}
}

// applyEnv overrides file values with ORDER_* environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ORDER_DB_HOST":                &c.Database.Host,
		"ORDER_DB_USER":                &c.Database.User,
		"ORDER_DB_PASSWORD":            &c.Database.Password,
		"ORDER_DB_NAME":                &c.Database.Database,
		"ORDER_RABBITMQ_HOST":          &c.RabbitMQ.Host,
		"ORDER_RABBITMQ_USER":          &c.RabbitMQ.User,
		"ORDER_RABBITMQ_PASSWORD":      &c.RabbitMQ.Password,
		"ORDER_REDIS_HOST":             &c.Redis.Host,
		"ORDER_REDIS_PASSWORD":         &c.Redis.Password,
		"ORDER_IDENTITY_BASE_URL":      &c.Identity.BaseURL,
		"ORDER_AUTH_ALGORITHM":         &c.Auth.Algorithm,
		"ORDER_AUTH_PUBLIC_KEY":        &c.Auth.PublicKeyPath,
		"ORDER_AUTH_SECRET":            &c.Auth.Secret,
		"ORDER_NOTIFICATION_QUEUE":     &c.Notification.Queue,
		"ORDER_NOTIFICATION_TRANSPORT": &c.Notification.Transport,
		"ORDER_OTEL_ENDPOINT":          &c.Telemetry.Endpoint,
		"ORDER_OTEL_AUTH_HEADER":       &c.Telemetry.AuthHeader,
	}
	for key, field := range strs {
		if value, ok := lookup(key); ok {
			*field = value
		}
	}

	ints := map[string]*int{
		"ORDER_DB_PORT":       &c.Database.Port,
		"ORDER_RABBITMQ_PORT": &c.RabbitMQ.Port,
		"ORDER_REDIS_PORT":    &c.Redis.Port,
		"ORDER_SERVER_PORT":   &c.Server.Port,
	}
	for key, field := range ints {
		if value, ok := lookup(key); ok {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field = n
		}
	}

	if value, ok := lookup("ORDER_KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = strings.Split(value, ",")
	}

	return nil
}

// Validate checks the settings that have no sensible default
func (c *Config) Validate() error {
	switch c.Notification.Transport {
	case TransportRabbitMQ:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when notification.transport is kafka")
		}
	default:
		return fmt.Errorf("notification.transport must be one of: rabbitmq, kafka")
	}

	switch c.Auth.Algorithm {
	case "RS256", "HS256":
	default:
		return fmt.Errorf("auth.algorithm must be one of: RS256, HS256")
	}

	if c.Cache.ListingTTL <= 0 {
		return fmt.Errorf("cache.listing_ttl must be positive")
	}

	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database, c.Database.SSLMode)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RedisAddr returns the host:port address of Redis
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
