package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaultsWithMemoryDrivers(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("BROKER_DRIVER", "memory")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "delivery", cfg.Broker.Queue)
	assert.Equal(t, 10*time.Second, cfg.Broker.ProcessingWindow)
	assert.Equal(t, 10*time.Minute, cfg.Cache.DedupeTTL)
	assert.Equal(t, "__session", cfg.Auth.CookieName)
	assert.Equal(t, "chat-relay", cfg.OTEL.ServiceName)
}

func TestLoadReadsNestedEnvKeys(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("BROKER_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("BROKER_PROCESSING_WINDOW", "3s")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kafka", cfg.Broker.Driver)
	assert.Equal(t, "k1:9092,k2:9092", cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Broker.ProcessingWindow)
	assert.Equal(t, "collector:4318", cfg.OTEL.Endpoint)
}

func TestLoadRejectsMissingRequirements(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without DB_URL": {
			"STORE_DRIVER": "postgres", "CACHE_DRIVER": "memory", "BROKER_DRIVER": "memory", "AUTH_JWT_SECRET": "s",
		},
		"asynq without REDIS_URL": {
			"STORE_DRIVER": "memory", "CACHE_DRIVER": "memory", "BROKER_DRIVER": "asynq", "AUTH_JWT_SECRET": "s",
		},
		"no verification key": {
			"STORE_DRIVER": "memory", "CACHE_DRIVER": "memory", "BROKER_DRIVER": "memory",
		},
		"unknown broker": {
			"STORE_DRIVER": "memory", "CACHE_DRIVER": "memory", "BROKER_DRIVER": "rabbit", "AUTH_JWT_SECRET": "s",
		},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
