package analysis

import (
	"math"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

const (
	defaultRegimeWindow   = 20
	defaultLookbackWindow = 390
	// barras de minuto: 252 sesiones × 390 minutos
	defaultAnnualization = 252 * 390

	volEpsilon = 1e-9
)

// VolatilityClassifier clasifica la volatilidad realizada actual frente a la
// distribución histórica de la ventana de lookback. No guarda estado: el
// historial lo aporta quien llama.
type VolatilityClassifier struct {
	regimeWindow   int
	lookbackWindow int
	annualization  float64
}

// VolatilityThresholds son los percentiles 25/75/90 de la volatilidad histórica.
type VolatilityThresholds struct {
	P25 float64
	P75 float64
	P90 float64
}

// RegimeReading es el resultado completo de una clasificación, con diagnósticos.
type RegimeReading struct {
	Regime     domain.Regime
	Volatility float64 // anualizada, ventana corta
	Percentile float64 // 0–100, rango de Volatility en la distribución histórica
	Thresholds VolatilityThresholds
	Ready      bool // false si no había historial suficiente para los umbrales
}

// NewVolatilityClassifier crea un clasificador. Valores <= 0 toman el default.
func NewVolatilityClassifier(regimeWindow, lookbackWindow int, annualization float64) *VolatilityClassifier {
	if regimeWindow <= 1 {
		regimeWindow = defaultRegimeWindow
	}
	if lookbackWindow <= 0 {
		lookbackWindow = defaultLookbackWindow
	}
	if annualization <= 0 {
		annualization = defaultAnnualization
	}
	return &VolatilityClassifier{
		regimeWindow:   regimeWindow,
		lookbackWindow: lookbackWindow,
		annualization:  annualization,
	}
}

// MinBars devuelve cuántos precios necesita el clasificador para salir de NORMAL.
func (c *VolatilityClassifier) MinBars() int {
	return max(c.regimeWindow+1, c.lookbackWindow)
}

// Classify devuelve el régimen de volatilidad para el historial dado.
func (c *VolatilityClassifier) Classify(history []float64) domain.Regime {
	return c.Read(history).Regime
}

// Read clasifica el historial y devuelve también volatilidad, percentil y umbrales.
// Con historial insuficiente devuelve NORMAL sin error.
func (c *VolatilityClassifier) Read(history []float64) RegimeReading {
	reading := RegimeReading{Regime: domain.RegimeNormal}
	if len(history) < c.regimeWindow+1 {
		return reading
	}

	scale := math.Sqrt(c.annualization)
	recent := domain.Returns(history[len(history)-c.regimeWindow-1:])
	reading.Volatility = domain.PopStdDev(recent) * scale

	if len(history) < c.lookbackWindow {
		return reading
	}

	lookback := domain.Returns(history[len(history)-c.lookbackWindow:])
	historical := domain.RollingStdDev(lookback, c.regimeWindow)
	if len(historical) == 0 {
		return reading
	}
	below := 0
	for i := range historical {
		historical[i] *= scale
		if historical[i] < reading.Volatility {
			below++
		}
	}

	reading.Thresholds = Thresholds(historical)
	reading.Percentile = float64(below) / float64(len(historical)) * 100
	reading.Regime = ClassifyVolatility(reading.Volatility, reading.Thresholds)
	reading.Ready = true
	return reading
}

// Thresholds calcula los percentiles 25/75/90 de una distribución de volatilidades.
func Thresholds(vols []float64) VolatilityThresholds {
	return VolatilityThresholds{
		P25: domain.Percentile(vols, 25),
		P75: domain.Percentile(vols, 75),
		P90: domain.Percentile(vols, 90),
	}
}

// ClassifyVolatility asigna el régimen comparando con los umbrales.
// Las fronteras son semiabiertas: vol == P25 es NORMAL, vol == P75 es HIGH
// y vol == P90 es EXTREME. Sin volatilidad ni actual ni histórica el
// resultado es NORMAL.
func ClassifyVolatility(vol float64, t VolatilityThresholds) domain.Regime {
	switch {
	case vol <= volEpsilon && t.P90 <= volEpsilon:
		return domain.RegimeNormal
	case vol < t.P25:
		return domain.RegimeLow
	case vol < t.P75:
		return domain.RegimeNormal
	case vol < t.P90:
		return domain.RegimeHigh
	default:
		return domain.RegimeExtreme
	}
}
