package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("REDIS_URL", "")
		t.Setenv("KAFKA_BROKERS", "")
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
		assert.Empty(t, cfg.Redis.URL)
		assert.Nil(t, cfg.Kafka.Brokers)
		assert.Positive(t, cfg.Coherence.Workers)
		assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("WORKERS", "3")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,a:9092")
		t.Setenv("DB_TX_TIMEOUT", "2s")
		t.Setenv("RELAY_ENABLED", "false")
		cfg := FromEnv()
		assert.Equal(t, 3, cfg.Coherence.Workers)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 2*time.Second, cfg.Database.TxTimeout)
		assert.False(t, cfg.Coherence.RelayEnabled)
	})

	t.Run("invalid numbers fall back", func(t *testing.T) {
		t.Setenv("WORKERS", "-1")
		t.Setenv("DB_TX_TIMEOUT", "soon")
		cfg := FromEnv()
		assert.Positive(t, cfg.Coherence.Workers)
		assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	})
}
