package backtest

import (
	"math"
	"time"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// ComputeStats derives performance statistics from a consolidated equity
// curve and its trade log. An empty curve yields empty stats.
func ComputeStats(equity []domain.EquityPoint, trades []domain.Trade, initialCapital float64) domain.PerformanceStats {
	if len(equity) == 0 {
		return domain.PerformanceStats{}
	}
	final := equity[len(equity)-1].Equity
	s := domain.PerformanceStats{
		InitialCapital: initialCapital,
		FinalEquity:    final,
		TotalTrades:    len(trades),
		EquityPoints:   len(equity),
		SharpeRatio:    Sharpe(DailyReturns(equity)),
		MaxDrawdown:    MaxDrawdown(equity),
	}
	if initialCapital > 0 {
		s.TotalReturn = (final - initialCapital) / initialCapital
	}
	s.WinRate, s.ClosedTrades = WinRate(trades)
	return s
}

// DailyEquity resamples the curve to the last value of each UTC calendar day.
func DailyEquity(equity []domain.EquityPoint) []domain.EquityPoint {
	var out []domain.EquityPoint
	var day time.Time
	for _, p := range equity {
		d := p.Timestamp.UTC().Truncate(24 * time.Hour)
		if len(out) > 0 && d.Equal(day) {
			out[len(out)-1] = p
			continue
		}
		day = d
		out = append(out, p)
	}
	return out
}

// DailyReturns returns the simple returns between consecutive daily closes.
func DailyReturns(equity []domain.EquityPoint) []float64 {
	daily := DailyEquity(equity)
	values := make([]float64, len(daily))
	for i, p := range daily {
		values[i] = p.Equity
	}
	return domain.PctChange(values)
}

// Sharpe annualizes mean/std of daily returns. Zero when undefined.
func Sharpe(daily []float64) float64 {
	std := domain.StdDev(daily)
	if std < 1e-12 || math.IsNaN(std) {
		return 0
	}
	return domain.Mean(daily) / std * math.Sqrt(domain.TradingDays)
}

// MaxDrawdown is the minimum of (equity - runningMax) / runningMax, <= 0.
func MaxDrawdown(equity []domain.EquityPoint) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, p := range equity {
		peak = math.Max(peak, p.Equity)
		if peak <= 0 {
			continue
		}
		if dd := (p.Equity - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// WinRate pairs the i-th sell with the i-th buy of each symbol (FIFO) and
// returns the fraction with positive PnL plus the number of closed pairs.
// Unmatched trailing buys are ignored.
func WinRate(trades []domain.Trade) (float64, int) {
	buys := make(map[string][]float64)
	sells := make(map[string][]float64)
	for _, t := range trades {
		switch t.Side {
		case domain.SideBuy:
			buys[t.Symbol] = append(buys[t.Symbol], t.Cash)
		case domain.SideSell:
			sells[t.Symbol] = append(sells[t.Symbol], t.Cash)
		}
	}
	wins, closed := 0, 0
	for sym, ss := range sells {
		bs := buys[sym]
		for i, proceeds := range ss {
			if i >= len(bs) {
				break
			}
			if proceeds-bs[i] > 0 {
				wins++
			}
			closed++
		}
	}
	if closed == 0 {
		return 0, 0
	}
	return float64(wins) / float64(closed), closed
}
