package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("backtest:\n  symbols: [spy]\n"))
	require.NoError(t, err)

	assert.Equal(t, 100_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, "mean_reversion", cfg.Backtest.Strategy)
	assert.Equal(t, "forward_fill", cfg.Backtest.MergeMode)
	assert.Equal(t, 3.0, cfg.Strategy.EntryThreshold)
	assert.Equal(t, 390, cfg.Strategy.Window)
	assert.Equal(t, 30, cfg.Strategy.CooldownBars)
	assert.True(t, cfg.Strategy.RegimeEnabled())
	assert.True(t, cfg.Strategy.TrendEnabled())
	assert.Equal(t, 0.95, cfg.MonteCarlo.Confidence)
	assert.Equal(t, "iex", cfg.API.Feed)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestParse_TogglesOff(t *testing.T) {
	cfg, err := Parse([]byte("backtest:\n  symbols: [SPY]\nstrategy:\n  use_regime: false\n  use_trend: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Strategy.RegimeEnabled())
	assert.False(t, cfg.Strategy.TrendEnabled())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", " aapl, msft ,,")
	t.Setenv("ALPACA_KEY", "k")
	t.Setenv("ALPACA_SECRET", "s")
	t.Setenv("STORAGE_DSN", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte("backtest:\n  symbols: [SPY]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Backtest.Symbols)
	assert.Equal(t, "k", cfg.API.Key)
	assert.Equal(t, "s", cfg.API.Secret)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg, err := Parse([]byte("backtest:\n  merge_mode: average\nmontecarlo:\n  enabled: true\n  confidence: 1.5\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols is empty")
	assert.Contains(t, err.Error(), "merge_mode")
	assert.Contains(t, err.Error(), "confidence")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("backtest: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Backtest.Symbols)
	assert.True(t, cfg.MonteCarlo.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_Timeframe(t *testing.T) {
	cfg, err := Parse([]byte("backtest:\n  symbols: [SPY]\n  timeframe: 5min\n"))
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backtest.timeframe")

	for _, tf := range []string{"minute", "hour", "day", "1Min", "1Hour", "1Day"} {
		cfg.Backtest.Timeframe = tf
		assert.NoError(t, cfg.Validate(), tf)
	}
}
