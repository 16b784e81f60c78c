package domain

import (
	"sort"
	"time"
)

// Bar es una observación OHLCV de un símbolo. Inmutable una vez producida
// por el proveedor de datos.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// GroupBySymbol particiona las barras por símbolo preservando el orden
// cronológico dentro de cada símbolo. Si la entrada viene desordenada se
// ordena de forma estable por timestamp.
func GroupBySymbol(bars []Bar) map[string][]Bar {
	out := make(map[string][]Bar)
	for _, b := range bars {
		out[b.Symbol] = append(out[b.Symbol], b)
	}
	for sym, series := range out {
		if !sort.SliceIsSorted(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		}) {
			sort.SliceStable(series, func(i, j int) bool {
				return series[i].Timestamp.Before(series[j].Timestamp)
			})
			out[sym] = series
		}
	}
	return out
}

// Symbols devuelve los símbolos presentes en las barras, ordenados.
func Symbols(bars []Bar) []string {
	seen := make(map[string]bool)
	var syms []string
	for _, b := range bars {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			syms = append(syms, b.Symbol)
		}
	}
	sort.Strings(syms)
	return syms
}
