package domain

// Regime clasifica la volatilidad realizada reciente.
type Regime int

const (
	RegimeLow Regime = iota
	RegimeNormal
	RegimeHigh
	RegimeExtreme
)

func (r Regime) String() string {
	switch r {
	case RegimeLow:
		return "LOW"
	case RegimeHigh:
		return "HIGH"
	case RegimeExtreme:
		return "EXTREME"
	default:
		return "NORMAL"
	}
}

// Description devuelve una descripción legible del régimen.
func (r Regime) Description() string {
	switch r {
	case RegimeLow:
		return "Low volatility - market is calm, tight ranges"
	case RegimeHigh:
		return "High volatility - increased price swings"
	case RegimeExtreme:
		return "Extreme volatility - significant market stress"
	default:
		return "Normal volatility - typical market conditions"
	}
}

// Trend clasifica el movimiento direccional reciente.
type Trend int

const (
	TrendDown Trend = iota - 1
	TrendFlat
	TrendUp
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "UP"
	case TrendDown:
		return "DOWN"
	default:
		return "FLAT"
	}
}

// Sign devuelve +1, 0 o -1 según la dirección.
func (t Trend) Sign() float64 {
	return float64(t)
}
