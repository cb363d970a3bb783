package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", " SQLite ")
	t.Setenv("SEED_DEMO", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRejectsNodeOutOfRange(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "2048")

	_, err := Load()
	assert.ErrorContains(t, err, "SNOWFLAKE_NODE")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	err := Config{
		NodeID:        -1,
		DBType:        "oracle",
		DBMaxIdleConn: 10,
		DBMaxOpenConn: 5,
	}.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "SNOWFLAKE_NODE")
	assert.ErrorContains(t, err, "DATABASE_TYPE")
	assert.ErrorContains(t, err, "DATABASE_NAME")
	assert.ErrorContains(t, err, "DATABASE_MAX_IDLE_CONN")
}
