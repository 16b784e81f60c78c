package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

const (
	defaultTrendLookback  = 60
	defaultSlopeThreshold = 0.001
	defaultACLag          = 10
	defaultACThreshold    = 0.10

	tiny = 1e-12

	// pesos de la confianza combinada
	slopeWeight    = 0.45
	momentumWeight = 0.45
	acWeight       = 0.10
)

// TrendConfig parametriza el TrendClassifier.
type TrendConfig struct {
	Lookback          int
	SlopeThreshold    float64 // pendiente normalizada por el precio medio
	MomentumThreshold float64
	ACLag             int
	ACThreshold       float64
}

// DefaultTrendConfig devuelve la configuración por defecto.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Lookback:       defaultTrendLookback,
		SlopeThreshold: defaultSlopeThreshold,
		ACLag:          defaultACLag,
		ACThreshold:    defaultACThreshold,
	}
}

// Detection es la salida de un detector individual.
type Detection struct {
	Direction domain.Trend
	Strength  float64 // [0, 1]
	Value     float64 // pendiente normalizada, media de retornos o autocorrelación
}

// TrendReading combina los tres detectores.
type TrendReading struct {
	Trend           domain.Trend
	Confidence      float64
	Score           float64
	Slope           Detection
	Momentum        Detection
	Autocorrelation Detection
}

// TrendClassifier clasifica la dirección reciente con tres señales
// independientes: pendiente de regresión, momentum y autocorrelación.
type TrendClassifier struct {
	cfg TrendConfig
}

// NewTrendClassifier crea un clasificador. Campos a cero toman el default,
// salvo MomentumThreshold, cuyo default es precisamente 0.
func NewTrendClassifier(cfg TrendConfig) *TrendClassifier {
	def := DefaultTrendConfig()
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.SlopeThreshold <= 0 {
		cfg.SlopeThreshold = def.SlopeThreshold
	}
	if cfg.MomentumThreshold < 0 {
		cfg.MomentumThreshold = 0
	}
	if cfg.ACLag <= 0 {
		cfg.ACLag = def.ACLag
	}
	if cfg.ACThreshold <= 0 {
		cfg.ACThreshold = def.ACThreshold
	}
	return &TrendClassifier{cfg: cfg}
}

// MinBars devuelve el mínimo de precios para una clasificación no trivial.
func (c *TrendClassifier) MinBars() int {
	return c.cfg.Lookback
}

// Classify devuelve la dirección de la tendencia del historial.
func (c *TrendClassifier) Classify(history []float64) domain.Trend {
	return c.Read(history).Trend
}

// Read clasifica el historial y devuelve el detalle por detector.
// Con menos de Lookback precios devuelve FLAT con confianza 0.
func (c *TrendClassifier) Read(history []float64) TrendReading {
	var reading TrendReading
	if len(history) < c.cfg.Lookback {
		return reading
	}

	window := history[len(history)-c.cfg.Lookback:]
	start := max(0, len(history)-c.cfg.Lookback-1)
	returns := domain.Returns(history[start:])
	if len(returns) > c.cfg.Lookback {
		returns = returns[len(returns)-c.cfg.Lookback:]
	}

	return combine(c.slope(window), c.momentum(returns), c.autocorrelation(returns))
}

// combine vota slope y momentum y usa la autocorrelación como multiplicador
// de convicción. Un score >= 1 es UP, <= -1 es DOWN.
func combine(slope, momentum, ac Detection) TrendReading {
	reading := TrendReading{Slope: slope, Momentum: momentum, Autocorrelation: ac}
	score := slope.Direction.Sign() + momentum.Direction.Sign()
	switch reading.Autocorrelation.Direction {
	case domain.TrendUp:
		score *= 1.25
	case domain.TrendDown:
		// autocorrelación negativa: régimen de reversión, se amortigua la convicción
		score *= 0.60
	}
	reading.Score = score

	switch {
	case score >= 1.0:
		reading.Trend = domain.TrendUp
	case score <= -1.0:
		reading.Trend = domain.TrendDown
	default:
		reading.Trend = domain.TrendFlat
	}

	conf := slopeWeight*reading.Slope.Strength +
		momentumWeight*reading.Momentum.Strength +
		acWeight*reading.Autocorrelation.Strength
	reading.Confidence = domain.Clip(conf, 0, 1)
	return reading
}

func (c *TrendClassifier) slope(prices []float64) Detection {
	xs := make([]float64, len(prices))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, prices, nil, false)
	avg := domain.Mean(prices)
	norm := 0.0
	if avg > 0 {
		norm = beta / avg
	}

	d := Detection{Value: norm}
	switch {
	case norm > c.cfg.SlopeThreshold:
		d.Direction = domain.TrendUp
	case norm < -c.cfg.SlopeThreshold:
		d.Direction = domain.TrendDown
	}
	d.Strength = domain.Clip(math.Abs(norm)/(c.cfg.SlopeThreshold+tiny), 0, 1)
	return d
}

func (c *TrendClassifier) momentum(returns []float64) Detection {
	if len(returns) < 5 {
		return Detection{}
	}
	mean := domain.Mean(returns)
	z := mean / (domain.StdDev(returns) + tiny)

	d := Detection{Value: mean}
	switch {
	case mean > c.cfg.MomentumThreshold:
		d.Direction = domain.TrendUp
	case mean < -c.cfg.MomentumThreshold:
		d.Direction = domain.TrendDown
	}
	d.Strength = math.Tanh(math.Abs(z) / 2)
	return d
}

func (c *TrendClassifier) autocorrelation(returns []float64) Detection {
	lag := c.cfg.ACLag
	if len(returns) <= lag+5 {
		return Detection{}
	}
	ac := laggedCorrelation(returns, lag)

	d := Detection{Value: ac}
	switch {
	case ac > c.cfg.ACThreshold:
		d.Direction = domain.TrendUp
	case ac < -c.cfg.ACThreshold:
		d.Direction = domain.TrendDown
	}
	d.Strength = domain.Clip(math.Abs(ac)/(c.cfg.ACThreshold+tiny), 0, 1)
	return d
}

// laggedCorrelation es la correlación de Pearson entre r[:-lag] y r[lag:].
// El denominador lleva un epsilon para que series constantes den 0.
func laggedCorrelation(r []float64, lag int) float64 {
	a := r[:len(r)-lag]
	b := r[lag:]
	ma, mb := domain.Mean(a), domain.Mean(b)
	var num, sa, sb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		num += da * db
		sa += da * da
		sb += db * db
	}
	return num / (math.Sqrt(sa)*math.Sqrt(sb) + tiny)
}
