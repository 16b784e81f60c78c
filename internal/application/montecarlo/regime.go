package montecarlo

import "github.com/alejandrodnm/revertbot/internal/domain"

// RegimeParams describes the returns observed under one volatility regime.
type RegimeParams struct {
	Name        string
	Mean        float64
	Std         float64
	Probability float64
	Count       int
}

// fitRegimes splits returns by the 25th/75th percentile of their paired
// volatility: low below p25, high above p75, normal otherwise.
func fitRegimes(returns, vols []float64) []RegimeParams {
	p25 := domain.Percentile(vols, 25)
	p75 := domain.Percentile(vols, 75)

	buckets := make([][]float64, 3)
	for i, r := range returns {
		switch v := vols[i]; {
		case v < p25:
			buckets[0] = append(buckets[0], r)
		case v > p75:
			buckets[2] = append(buckets[2], r)
		default:
			buckets[1] = append(buckets[1], r)
		}
	}

	names := []string{"low", "normal", "high"}
	out := make([]RegimeParams, 3)
	for i, b := range buckets {
		out[i] = RegimeParams{
			Name:        names[i],
			Mean:        domain.Mean(b),
			Std:         domain.StdDev(b),
			Probability: float64(len(b)) / float64(len(returns)),
			Count:       len(b),
		}
	}
	return out
}

// pickRegime maps a uniform draw u in [0,1) to a regime by cumulative
// probability. Rounding leftovers fall into the last non-empty regime.
func pickRegime(regimes []RegimeParams, u float64) RegimeParams {
	acc := 0.0
	last := regimes[0]
	for _, r := range regimes {
		if r.Count == 0 {
			continue
		}
		last = r
		acc += r.Probability
		if u < acc {
			return r
		}
	}
	return last
}

// RollingVolatility pairs each return with the sample standard deviation of
// the window ending at it. The first window-1 returns have no volatility and
// are dropped, so both outputs have the same length.
func RollingVolatility(returns []float64, window int) ([]float64, []float64) {
	vols := domain.RollingStdDev(returns, window)
	if len(vols) == 0 {
		return nil, nil
	}
	return returns[window-1:], vols
}
