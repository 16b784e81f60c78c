package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturns(t *testing.T) {
	r := Returns([]float64{100, 110, 99})
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), r[1], 1e-12)

	// precio no positivo: retornos simples
	r = Returns([]float64{0, 1, 2})
	assert.InDelta(t, 1e12, r[0], 1)
	assert.InDelta(t, 1.0, r[1], 1e-12)

	assert.Nil(t, Returns([]float64{1}))
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	assert.Equal(t, 1.0, Percentile(xs, 0))
	assert.Equal(t, 4.0, Percentile(xs, 100))
	assert.InDelta(t, 1.75, Percentile(xs, 25), 1e-12)
	assert.InDelta(t, 2.5, Percentile(xs, 50), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, xs, "input must not be sorted in place")
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestRollingStdDev(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 10}
	got := RollingStdDev(xs, 3)
	assert.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12)
	assert.InDelta(t, StdDev([]float64{3, 4, 10}), got[2], 1e-12)

	flat := RollingStdDev([]float64{0.3, 0.3, 0.3, 0.3}, 2)
	for _, v := range flat {
		assert.Zero(t, v)
	}
	assert.Nil(t, RollingStdDev(xs, 10))
}

func TestStdDevVariants(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, PopStdDev(xs), 1e-12)
	assert.InDelta(t, 2.138, StdDev(xs), 1e-3)
	assert.Zero(t, StdDev([]float64{1}))
}

func TestPctChange_SkipsZero(t *testing.T) {
	assert.Equal(t, []float64{1}, PctChange([]float64{0, 1, 2}))
}

func TestSymbolState_EnterExit(t *testing.T) {
	st := NewSymbolState("AAPL")
	assert.False(t, st.IsLong())

	st.Enter(10, 0.5, 30)
	assert.True(t, st.IsLong())
	assert.Equal(t, 10.0, st.EntryPrice)
	assert.Equal(t, 0.5, st.EntryStd)
	assert.Equal(t, 30, st.Cooldown)

	st.Exit()
	assert.False(t, st.IsLong())
	assert.Zero(t, st.EntryPrice)
	assert.Zero(t, st.EntryStd)
	assert.Equal(t, 30, st.Cooldown, "exit keeps the cooldown running")
}

func TestGroupBySymbol_SortsEachSeries(t *testing.T) {
	t0 := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	bars := []Bar{
		{Symbol: "B", Timestamp: t0.Add(time.Minute), Close: 2},
		{Symbol: "A", Timestamp: t0.Add(time.Minute), Close: 2},
		{Symbol: "A", Timestamp: t0, Close: 1},
	}
	g := GroupBySymbol(bars)
	assert.Len(t, g, 2)
	assert.Equal(t, 1.0, g["A"][0].Close)
	assert.Equal(t, 2.0, g["A"][1].Close)
	assert.Equal(t, []string{"A", "B"}, Symbols(bars))
}

func TestTradingSession(t *testing.T) {
	day := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
	open, close := TradingSession(day)
	assert.Equal(t, time.Date(2025, 6, 10, 13, 30, 0, 0, time.UTC), open)
	assert.Equal(t, time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC), close)

	req := LookbackRequest([]string{"SPY"}, 5, day, TimeframeMinute)
	assert.Equal(t, time.Date(2025, 6, 5, 13, 30, 0, 0, time.UTC), req.Start)
	assert.Equal(t, close, req.End)
}

func TestParseTimeframe(t *testing.T) {
	for in, want := range map[string]Timeframe{
		"minute": TimeframeMinute,
		"1Min":   TimeframeMinute,
		"hour":   TimeframeHour,
		"1Hour":  TimeframeHour,
		"DAY":    TimeframeDay,
		"1Day":   TimeframeDay,
	} {
		got, err := ParseTimeframe(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"5min", "weekly", ""} {
		_, err := ParseTimeframe(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, time.Minute, TimeframeMinute.Duration())
	assert.Equal(t, 390, TimeframeMinute.BarsPerDay())
	assert.Equal(t, 7, TimeframeHour.BarsPerDay())
	assert.Equal(t, 1, TimeframeDay.BarsPerDay())
}

func TestStatsMapKeys(t *testing.T) {
	s := PerformanceStats{TotalReturn: 0.1234, SharpeRatio: 1.5, MaxDrawdown: -0.05, WinRate: 0.6, FinalEquity: 11234, TotalTrades: 7, EquityPoints: 3}
	m := s.Map()
	assert.Len(t, m, len(StatsKeys))
	for _, k := range StatsKeys {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, "12.34%", m["Total Return"])
	assert.Equal(t, "-5.00%", m["Max Drawdown"])

	p := ProjectionSummary{ProbabilityOfProfit: 0.5, Simulations: 10, Days: 5}.Map()
	assert.Len(t, p, len(ProjectionKeys))
	assert.Equal(t, "50.00%", p["Probability of Profit"])
}
