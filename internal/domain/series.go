package domain

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Returns calcula los retornos consecutivos de una serie de precios.
// Usa log-retornos salvo que algún precio sea <= 0, en cuyo caso usa
// retornos simples (con el denominador acotado para evitar div/0).
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	useLog := true
	for _, p := range prices {
		if p <= 0 {
			useLog = false
			break
		}
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if useLog {
			out[i-1] = math.Log(prices[i] / prices[i-1])
		} else {
			out[i-1] = (prices[i] - prices[i-1]) / math.Max(prices[i-1], 1e-12)
		}
	}
	return out
}

// PctChange calcula retornos simples (p[i]/p[i-1] - 1) de una serie de valores.
func PctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// Mean devuelve la media aritmética, 0 para series vacías.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev devuelve la desviación estándar muestral (n-1).
// Series con menos de dos valores devuelven 0.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// PopStdDev devuelve la desviación estándar poblacional (n).
func PopStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(xs, nil)
	return math.Sqrt(v)
}

// Percentile devuelve el percentil p (0–100) con interpolación lineal entre
// los rangos más cercanos. No modifica xs.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return PercentileSorted(sorted, p)
}

// PercentileSorted es Percentile sobre una serie ya ordenada ascendente.
func PercentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// RollingStdDev calcula la desviación estándar muestral móvil con la ventana
// dada. El resultado tiene len(xs)-window+1 elementos.
func RollingStdDev(xs []float64, window int) []float64 {
	if window < 2 || len(xs) < window {
		return nil
	}
	out := make([]float64, 0, len(xs)-window+1)
	// sumas desplazadas por xs[0]: series constantes dan varianza exactamente 0
	shift := xs[0]
	var sum, sumSq float64
	n := float64(window)
	for i, x := range xs {
		d := x - shift
		sum += d
		sumSq += d * d
		if i >= window {
			old := xs[i-window] - shift
			sum -= old
			sumSq -= old * old
		}
		if i >= window-1 {
			v := (sumSq - sum*sum/n) / (n - 1)
			if v < 0 {
				v = 0
			}
			out = append(out, math.Sqrt(v))
		}
	}
	return out
}

// Clip acota x al rango [lo, hi].
func Clip(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
