package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ConfigYAML(t *testing.T) {
	path := filepath.Join("..", "..", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Host == "" {
		t.Fatalf("expected database.host to be set")
	}
	if cfg.RabbitMQ.Port == 0 {
		t.Fatalf("expected rabbitmq.port to be set")
	}
	if cfg.Cache.ListingTTL != 60*time.Second {
		t.Fatalf("expected cache.listing_ttl to be 60s, got %v", cfg.Cache.ListingTTL)
	}
}

func TestParse_DefaultsAndEnv(t *testing.T) {
	t.Setenv("ORDER_DB_HOST", "db.internal")
	t.Setenv("ORDER_REDIS_PORT", "6380")

	cfg, err := Parse([]byte("database:\n  user: barista\n"))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "barista", cfg.Database.User)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr())
	assert.Equal(t, "order_notifications", cfg.Notification.Queue)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeouts.Cache)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown transport",
			content: "notification:\n  transport: sqs\n",
			wantErr: "notification.transport",
		},
		{
			name:    "kafka without brokers",
			content: "notification:\n  transport: kafka\n",
			wantErr: "kafka.brokers",
		},
		{
			name:    "unsupported algorithm",
			content: "auth:\n  algorithm: none\n",
			wantErr: "auth.algorithm",
		},
		{
			name:    "bad port override",
			content: "",
			env:     map[string]string{"ORDER_DB_PORT": "five"},
			wantErr: "ORDER_DB_PORT",
		},
		{
			name:    "malformed yaml",
			content: "database: [",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := Default()
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Database = "shop"

	assert.Equal(t, "postgres://u:p@localhost:5432/shop?sslmode=disable", cfg.DatabaseURL())
}
