package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
env: test
params:
  base_spread_bps: 12
  max_inventory: 25
risk:
  outlier_method: iqr
`

func TestLoadAppliesOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 12.0, cfg.Params.BaseSpreadBps)
	assert.Equal(t, 25.0, cfg.Params.MaxInventory)
	assert.Equal(t, "iqr", cfg.Risk.OutlierMethod)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.5, cfg.Params.RiskAversion)
	assert.Equal(t, 8, cfg.Engine.Workers)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, `
env: test
params:
  base_spread_pbs: 12
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse yaml")
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative spread", "env: test\nparams:\n  base_spread_bps: -1\n"},
		{"zero inventory", "env: test\nparams:\n  max_inventory: 0\n"},
		{"decay above one", "env: test\nparams:\n  level_size_decay: 1.5\n"},
		{"bad outlier method", "env: test\nrisk:\n  outlier_method: zscore\n"},
		{"inverted expiry", "env: test\norders:\n  min_expiry_ms: 5000\n  max_expiry_ms: 1000\n"},
		{"zero workers", "env: test\nengine:\n  workers: 0\n"},
		{"missing env", "params:\n  base_spread_bps: 10\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QE_FEED_URL", "ws://override:9000/feed")
	t.Setenv("QE_STORE_PATH", "/tmp/override.db")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "ws://override:9000/feed", cfg.Feed.URL)
	assert.Equal(t, "/tmp/override.db", cfg.Store.Path)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Env = "test"

	sp := cfg.Params.Strategy()
	assert.Equal(t, cfg.Params.BaseSpreadBps, sp.BaseSpreadBps)
	assert.Equal(t, cfg.Params.InventorySkewStrength, sp.SkewStrength)
	assert.Equal(t, cfg.Params.MaxInventory, sp.MaxInventory)

	oc := cfg.Order()
	assert.Equal(t, cfg.Orders.MaxOpenOrders, oc.MaxOpenOrders)
	assert.Equal(t, cfg.Params.VolRef, oc.VolRef)

	rc := cfg.RiskController()
	assert.Equal(t, cfg.Risk.Window, rc.Window)
	assert.NotNil(t, rc.Outlier)
}
