package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "once"

[scanner]
interval = "5m"

[strategy]
min_profit_pct = 25.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "once", cfg.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Scanner.Interval.Duration)
	assert.Equal(t, 25.0, cfg.Strategy.MinProfitPct)

	// Untouched sections keep their defaults.
	assert.Equal(t, 0.12, cfg.Skinport.CommissionRate)
	assert.Equal(t, 38*time.Second, cfg.Skinport.MinDelay.Duration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[risk]
max_total_investment = 100.0
`)

	t.Setenv("SKINARB_RISK_MAX_TOTAL_INVESTMENT", "250")
	t.Setenv("SKINARB_MODE", "full")
	t.Setenv("SKINARB_SKINPORT_MIN_DELAY", "45s")
	t.Setenv("SKINARB_NOTIFY_EVENTS", "cycle_failed, deals_found")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.Risk.MaxTotalInvestment)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, 45*time.Second, cfg.Skinport.MinDelay.Duration)
	assert.Equal(t, []string{"cycle_failed", "deals_found"}, cfg.Notify.Events)
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	path := writeConfig(t, "")

	t.Setenv("SKINARB_RISK_MAX_ITEMS_PER_DAY", "plenty")
	t.Setenv("SKINARB_SCANNER_INTERVAL", "later")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Malformed values leave the defaults alone.
	assert.Equal(t, 20, cfg.Risk.MaxItemsPerDay)
	assert.Equal(t, 10*time.Minute, cfg.Scanner.Interval.Duration)
}
