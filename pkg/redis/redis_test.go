package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prohmpiriya/event-ticketing/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "localhost:6379", cfg.Addr())
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.RedisConfig{
		Host:     "redis.internal",
		Port:     6380,
		Password: "secret",
		DB:       2,
		PoolSize: 7,
	})

	assert.Equal(t, "redis.internal:6380", cfg.Addr())
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 7, cfg.PoolSize)
	// Unset values keep defaults
	assert.Equal(t, 10, cfg.MinIdleConns)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "invalid-host-that-does-not-exist",
		Port:          9999,
		MaxRetries:    0,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, cfg)
	assert.Error(t, err)
}

func TestClient_HealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, c.HealthCheck(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.Error(t, c.HealthCheck(context.Background()))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_KeyOperations(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewFromClient(db)
	ctx := context.Background()

	mock.ExpectSetNX("idempotency:k1", "v", time.Minute).SetVal(true)
	mock.ExpectGet("idempotency:k1").SetVal("v")
	mock.ExpectSet("idempotency:k1", "v2", time.Hour).SetVal("OK")
	mock.ExpectDel("idempotency:k1").SetVal(1)

	ok, err := c.SetNX(ctx, "idempotency:k1", "v", time.Minute).Result()
	require.NoError(t, err)
	assert.True(t, ok)

	val, err := c.Get(ctx, "idempotency:k1").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Set(ctx, "idempotency:k1", "v2", time.Hour).Err())
	require.NoError(t, c.Del(ctx, "idempotency:k1").Err())

	require.NoError(t, mock.ExpectationsWereMet())
}
