package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the relay. Every key can be set from the
// environment (HTTP_ADDR, DB_URL, BROKER_DRIVER, ...) or from an optional config.yaml.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	Store struct {
		Driver      string `mapstructure:"driver"` // postgres | memory
		AutoMigrate bool   `mapstructure:"auto_migrate"`
		MaxConns    int32  `mapstructure:"max_conns"`
	} `mapstructure:"store"`

	DBURL    string `mapstructure:"db_url"`
	RedisURL string `mapstructure:"redis_url"`

	Cache struct {
		Driver    string        `mapstructure:"driver"` // redis | memory
		DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
	} `mapstructure:"cache"`

	Broker struct {
		Driver           string        `mapstructure:"driver"` // asynq | kafka | memory
		Queue            string        `mapstructure:"queue"`
		MaxRetry         int           `mapstructure:"max_retry"`
		ProcessingWindow time.Duration `mapstructure:"processing_window"`
	} `mapstructure:"broker"`

	Asynq struct {
		Concurrency int    `mapstructure:"concurrency"`
		Queues      string `mapstructure:"queues"`
	} `mapstructure:"asynq"`

	Kafka struct {
		Brokers string `mapstructure:"brokers"`
		Topic   string `mapstructure:"topic"`
		GroupID string `mapstructure:"group_id"`
	} `mapstructure:"kafka"`

	Auth struct {
		JWTSecret    string `mapstructure:"jwt_secret"`
		JWTPublicKey string `mapstructure:"jwt_public_key"`
		Issuer       string `mapstructure:"issuer"`
		Audience     string `mapstructure:"audience"`
		CookieName   string `mapstructure:"cookie_name"`
	} `mapstructure:"auth"`

	Directory struct {
		URL     string        `mapstructure:"url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"directory"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	OTEL struct {
		Endpoint    string  `mapstructure:"exporter_otlp_endpoint"`
		ServiceName string  `mapstructure:"service_name"`
		SampleRatio float64 `mapstructure:"traces_sampler_arg"`
	} `mapstructure:"otel"`
}

// Load reads .env (when present), config.yaml (when present) and the environment.
// Nested keys map to upper-case env vars with "." replaced by "_", so store.driver
// is STORE_DRIVER and otel.exporter_otlp_endpoint is OTEL_EXPORTER_OTLP_ENDPOINT.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.auto_migrate", false)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("db_url", "")
	v.SetDefault("redis_url", "")

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.dedupe_ttl", 10*time.Minute)

	v.SetDefault("broker.driver", "asynq")
	v.SetDefault("broker.queue", "delivery")
	v.SetDefault("broker.max_retry", 10)
	v.SetDefault("broker.processing_window", 10*time.Second)

	v.SetDefault("asynq.concurrency", 10)
	v.SetDefault("asynq.queues", "")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "chat.message_created")
	v.SetDefault("kafka.group_id", "chat-relay")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.cookie_name", "__session")

	v.SetDefault("directory.url", "")
	v.SetDefault("directory.api_key", "")
	v.SetDefault("directory.timeout", 3*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("otel.exporter_otlp_endpoint", "")
	v.SetDefault("otel.service_name", "chat-relay")
	v.SetDefault("otel.traces_sampler_arg", 1.0)
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "postgres":
		if c.DBURL == "" {
			return fmt.Errorf("config: DB_URL is required for store driver %q", c.Store.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for cache driver %q", c.Cache.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}

	switch c.Broker.Driver {
	case "asynq":
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required for broker driver %q", c.Broker.Driver)
		}
	case "kafka":
		if strings.TrimSpace(c.Kafka.Brokers) == "" {
			return fmt.Errorf("config: KAFKA_BROKERS is required for broker driver %q", c.Broker.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown broker driver %q", c.Broker.Driver)
	}

	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		return fmt.Errorf("config: one of AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY is required")
	}
	return nil
}
