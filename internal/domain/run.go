package domain

import (
	"fmt"
	"time"
)

// PerformanceStats resume la curva de equity consolidada de un backtest.
type PerformanceStats struct {
	InitialCapital float64
	TotalReturn    float64 // fracción: 0.12 = +12%
	SharpeRatio    float64 // anualizado sobre equity diaria
	MaxDrawdown    float64 // <= 0: -0.08 = -8%
	WinRate        float64 // fracción de pares buy/sell cerrados con ganancia
	FinalEquity    float64
	TotalTrades    int
	ClosedTrades   int
	EquityPoints   int
}

// Empty devuelve true si no había curva de equity sobre la que calcular.
func (s PerformanceStats) Empty() bool {
	return s.EquityPoints == 0
}

// Map devuelve las métricas con claves legibles. Vacío si no hay curva.
func (s PerformanceStats) Map() map[string]string {
	if s.Empty() {
		return map[string]string{}
	}
	return map[string]string{
		"Total Return": fmt.Sprintf("%.2f%%", s.TotalReturn*100),
		"Sharpe Ratio": fmt.Sprintf("%.2f", s.SharpeRatio),
		"Max Drawdown": fmt.Sprintf("%.2f%%", s.MaxDrawdown*100),
		"Win Rate":     fmt.Sprintf("%.2f%%", s.WinRate*100),
		"Final Equity": fmt.Sprintf("$%.2f", s.FinalEquity),
		"Total Trades": fmt.Sprintf("%d", s.TotalTrades),
	}
}

// StatsKeys es el orden de presentación de PerformanceStats.Map.
var StatsKeys = []string{
	"Total Return", "Sharpe Ratio", "Max Drawdown", "Win Rate", "Final Equity", "Total Trades",
}

// ProjectionSummary resume la distribución de valores finales de una
// simulación Monte Carlo.
type ProjectionSummary struct {
	InitialValue        float64
	MeanFinal           float64
	MedianFinal         float64
	StdFinal            float64
	MinFinal            float64
	MaxFinal            float64
	MeanReturn          float64
	MedianReturn        float64
	BestReturn          float64
	WorstReturn         float64
	ProbabilityOfProfit float64
	Simulations         int
	Days                int
	RegimeAware         bool
}

// Map devuelve el resumen con claves legibles.
func (p ProjectionSummary) Map() map[string]string {
	return map[string]string{
		"Mean Final Value":      fmt.Sprintf("$%.2f", p.MeanFinal),
		"Median Final Value":    fmt.Sprintf("$%.2f", p.MedianFinal),
		"Std Dev":               fmt.Sprintf("$%.2f", p.StdFinal),
		"Min Value":             fmt.Sprintf("$%.2f", p.MinFinal),
		"Max Value":             fmt.Sprintf("$%.2f", p.MaxFinal),
		"Mean Return":           fmt.Sprintf("%.2f%%", p.MeanReturn*100),
		"Median Return":         fmt.Sprintf("%.2f%%", p.MedianReturn*100),
		"Best Case Return":      fmt.Sprintf("%.2f%%", p.BestReturn*100),
		"Worst Case Return":     fmt.Sprintf("%.2f%%", p.WorstReturn*100),
		"Probability of Profit": fmt.Sprintf("%.2f%%", p.ProbabilityOfProfit*100),
		"Number of Simulations": fmt.Sprintf("%d", p.Simulations),
		"Projection Days":       fmt.Sprintf("%d", p.Days),
	}
}

// ProjectionKeys es el orden de presentación de ProjectionSummary.Map.
var ProjectionKeys = []string{
	"Mean Final Value", "Median Final Value", "Std Dev", "Min Value", "Max Value",
	"Mean Return", "Median Return", "Best Case Return", "Worst Case Return",
	"Probability of Profit", "Number of Simulations", "Projection Days",
}

// RiskProjection agrupa los resultados Monte Carlo que se reportan y persisten.
type RiskProjection struct {
	Summary     ProjectionSummary
	Percentiles map[string]float64
	Confidence  float64
	LowerBound  float64
	UpperBound  float64
	VaR         float64
	CVaR        float64
}

// RunRecord es un backtest completo listo para reportar o persistir.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	Strategy   string
	Symbols    []string
	Stats      PerformanceStats
	Trades     []Trade
	Equity     []EquityPoint
	Projection *RiskProjection
}
