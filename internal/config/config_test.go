package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadMemoryStoreDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "memory")
	for _, k := range []string{"APP_PORT", "TICKET_PREFIX", "REJECTION_REASON_MIN", "SHUTDOWN_TIMEOUT", "DB_USER"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "FEL", cfg.TicketPrefix)
	assert.Equal(t, 10, cfg.RejectionReasonMin)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.DBUser, "database settings are not read for the memory store")
}

func TestLoadMySQLReadsDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "MySQL")
	t.Setenv("DB_USER", "felicity")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "felicity")
	t.Setenv("DB_PORT", "")

	cfg := Load()
	assert.Equal(t, StoreMySQL, cfg.Store)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "db", cfg.DBHost)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg := LoadRateLimitConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.Equal(t, "user_route", cfg.KeyStrategy)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "bogus")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 2*time.Second, cfg.TTL)
}
