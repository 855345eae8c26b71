package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithPath_Defaults(t *testing.T) {
	path := writeEnvFile(t, "APP_NAME=ticketing-test\n")

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, "ticketing-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "live", cfg.Gateway.Mode)
	assert.Equal(t, "payment.verified", cfg.Kafka.PaymentTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UseMockGateways())
}

func TestLoadWithPath_Overrides(t *testing.T) {
	path := writeEnvFile(t, "GATEWAY_MODE=mock\nGATEWAY_TIMEOUT=3s\nKAFKA_BROKERS=a:9092,b:9092\n")

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.True(t, cfg.UseMockGateways())
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Name: "ticketing", Environment: "development"},
		Server:  ServerConfig{Port: 8080},
		Gateway: GatewayConfig{Mode: "live", Timeout: time.Second},
		Ticket:  TicketConfig{QRSigningKey: "secret"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "zero gateway timeout", mutate: func(c *Config) { c.Gateway.Timeout = 0 }, wantErr: true},
		{name: "unknown gateway mode", mutate: func(c *Config) { c.Gateway.Mode = "sandbox" }, wantErr: true},
		{name: "missing qr key", mutate: func(c *Config) { c.Ticket.QRSigningKey = "" }, wantErr: true},
		{
			name: "default qr key in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Ticket.QRSigningKey = defaultQRSigningKey
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
