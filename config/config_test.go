package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/config"
	"github.com/warp/stock-ledger/inventory"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "inventory.db", cfg.DBPath)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.AllowedOrigins)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, inventory.DefaultPolicy(), policy)

	strategy, err := cfg.Strategy()
	require.NoError(t, err)
	assert.Equal(t, inventory.StrategyExhaustive, strategy)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("INVENTORY_PORT", "9090")
	t.Setenv("INVENTORY_DB_DRIVER", "memory")
	t.Setenv("INVENTORY_REFERENCES", "enforce")
	t.Setenv("INVENTORY_EMPTY_MOVEMENTS", "reject")
	t.Setenv("INVENTORY_REPORT_STRATEGY", "grouped")
	t.Setenv("INVENTORY_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, config.DriverMemory, cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)

	policy, _ := cfg.Policy()
	assert.Equal(t, inventory.ReferencesEnforced, policy.References)
	assert.Equal(t, inventory.EmptyMovementsRejected, policy.EmptyMovements)
	strategy, _ := cfg.Strategy()
	assert.Equal(t, inventory.StrategyGrouped, strategy)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":    {"INVENTORY_DB_DRIVER": "mysql"},
		"postgres w/o dsn":  {"INVENTORY_DB_DRIVER": "postgres"},
		"bad references":    {"INVENTORY_REFERENCES": "strict"},
		"bad strategy":      {"INVENTORY_REPORT_STRATEGY": "fast"},
		"bad port":          {"INVENTORY_PORT": "0"},
		"unparseable value": {"INVENTORY_READ_TIMEOUT": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestIsProduction(t *testing.T) {
	var nilCfg *config.Config
	assert.False(t, nilCfg.IsProduction())
	assert.True(t, (&config.Config{Env: "production"}).IsProduction())
}
