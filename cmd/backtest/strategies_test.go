package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/revertbot/config"
	"github.com/alejandrodnm/revertbot/internal/domain"
	"github.com/alejandrodnm/revertbot/internal/strategy"
)

func TestBuildRegistry(t *testing.T) {
	cfg, err := config.Parse([]byte("backtest:\n  symbols: [SPY]\n"))
	require.NoError(t, err)

	reg := buildRegistry(cfg.Strategy, domain.TimeframeMinute)
	assert.Equal(t, []string{strategy.NameCrossover, strategy.NameMeanReversion}, reg.Names())

	s, err := reg.Lookup(strategy.NameMeanReversion)
	require.NoError(t, err)
	mr, ok := s.(*strategy.MeanReversion)
	require.True(t, ok)
	assert.Equal(t, 390, mr.Config().Timeframe)
	assert.Equal(t, float64(252*390), mr.Config().Annualization)
	assert.True(t, mr.Config().UseRegime)
}

func TestMeanReversionConfig_DailyBars(t *testing.T) {
	cfg, err := config.Parse([]byte("strategy:\n  window: 20\n  use_trend: false\n"))
	require.NoError(t, err)

	mc := meanReversionConfig(cfg.Strategy, domain.TimeframeDay)
	assert.Equal(t, 20, mc.Timeframe)
	assert.Equal(t, 252.0, mc.Annualization)
	assert.False(t, mc.UseTrend)
	assert.Equal(t, 60, mc.Trend.Lookback)
}

func TestApplyFlags(t *testing.T) {
	cfg, err := config.Parse([]byte("backtest:\n  symbols: [SPY]\n"))
	require.NoError(t, err)

	applyFlags(cfg, "aapl,msft", 10, "day", "ma_crossover", 42, false, true)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Backtest.Symbols)
	assert.Equal(t, 10, cfg.Backtest.LookbackDays)
	assert.Equal(t, "day", cfg.Backtest.Timeframe)
	assert.Equal(t, "ma_crossover", cfg.Backtest.Strategy)
	assert.Equal(t, uint64(42), cfg.MonteCarlo.Seed)
	assert.True(t, cfg.MonteCarlo.Enabled)
	assert.True(t, cfg.MonteCarlo.RegimeAware)

	applyFlags(cfg, "", 0, "", "", 0, true, false)
	assert.False(t, cfg.MonteCarlo.Enabled)
	assert.Equal(t, uint64(42), cfg.MonteCarlo.Seed)
}
