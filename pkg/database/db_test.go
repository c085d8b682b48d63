package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'UTC'", quoteLiteral("UTC"))
	assert.Equal(t, "'Asia/O''Brien'", quoteLiteral("Asia/O'Brien"))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("DATABASE_MAX_CONNS", "3")
	cfg := ConfigFromEnv()
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN)
	assert.Equal(t, 3, cfg.MaxConns)

	t.Setenv("DATABASE_MAX_CONNS", "nope")
	assert.Equal(t, 10, ConfigFromEnv().MaxConns)
}
