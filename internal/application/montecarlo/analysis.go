package montecarlo

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// DefaultPercentiles are reported when no explicit list is given.
var DefaultPercentiles = []float64{5, 25, 50, 75, 95}

// PercentileKey formats a percentile as its mapping key ("5th", "2.5th").
func PercentileKey(p float64) string {
	return fmt.Sprintf("%gth", p)
}

// Percentiles returns the given percentiles (0 < p < 100) of the final values.
func (s *Simulator) Percentiles(ps ...float64) (map[string]float64, error) {
	if s.final == nil {
		return nil, ErrNotRun
	}
	if len(ps) == 0 {
		ps = DefaultPercentiles
	}
	out := make(map[string]float64, len(ps))
	for _, p := range ps {
		if !(p > 0 && p < 100) {
			return nil, fmt.Errorf("montecarlo.Percentiles: %v outside (0, 100): %w", p, ErrInvalidParameter)
		}
		out[PercentileKey(p)] = domain.PercentileSorted(s.final, p)
	}
	return out, nil
}

// ConfidenceInterval returns the symmetric interval holding the given share
// of final values.
func (s *Simulator) ConfidenceInterval(confidence float64) (lower, upper float64, err error) {
	if err := s.check(confidence); err != nil {
		return 0, 0, fmt.Errorf("montecarlo.ConfidenceInterval: %w", err)
	}
	alpha := 1 - confidence
	lower = domain.PercentileSorted(s.final, alpha/2*100)
	upper = domain.PercentileSorted(s.final, (1-alpha/2)*100)
	return lower, upper, nil
}

// VaR is the loss from the initial value to the (1-confidence) percentile of
// final values, floored at zero.
func (s *Simulator) VaR(confidence float64) (float64, error) {
	if err := s.check(confidence); err != nil {
		return 0, fmt.Errorf("montecarlo.VaR: %w", err)
	}
	threshold := domain.PercentileSorted(s.final, (1-confidence)*100)
	return math.Max(0, s.cfg.InitialValue-threshold), nil
}

// CVaR is the loss from the initial value to the mean of the final values at
// or below the VaR threshold, floored at zero.
func (s *Simulator) CVaR(confidence float64) (float64, error) {
	if err := s.check(confidence); err != nil {
		return 0, fmt.Errorf("montecarlo.CVaR: %w", err)
	}
	threshold := domain.PercentileSorted(s.final, (1-confidence)*100)
	var sum float64
	n := 0
	for _, v := range s.final {
		if v > threshold {
			break
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return math.Max(0, s.cfg.InitialValue-sum/float64(n)), nil
}

// Summary describes the distribution of final values.
func (s *Simulator) Summary() (domain.ProjectionSummary, error) {
	if s.final == nil {
		return domain.ProjectionSummary{}, ErrNotRun
	}
	init := s.cfg.InitialValue
	ret := func(v float64) float64 { return (v - init) / init }

	profit := 0
	for _, v := range s.final {
		if v > init {
			profit++
		}
	}
	mean := domain.Mean(s.final)
	median := domain.PercentileSorted(s.final, 50)
	lo, hi := s.final[0], s.final[len(s.final)-1]

	return domain.ProjectionSummary{
		InitialValue:        init,
		MeanFinal:           mean,
		MedianFinal:         median,
		StdFinal:            domain.PopStdDev(s.final),
		MinFinal:            lo,
		MaxFinal:            hi,
		MeanReturn:          ret(mean),
		MedianReturn:        ret(median),
		BestReturn:          ret(hi),
		WorstReturn:         ret(lo),
		ProbabilityOfProfit: float64(profit) / float64(len(s.final)),
		Simulations:         s.cfg.Simulations,
		Days:                s.cfg.Days,
		RegimeAware:         s.RegimeAware(),
	}, nil
}

// Projection bundles every post-run query at one confidence level.
func (s *Simulator) Projection(confidence float64) (domain.RiskProjection, error) {
	summary, err := s.Summary()
	if err != nil {
		return domain.RiskProjection{}, fmt.Errorf("montecarlo.Projection: %w", err)
	}
	pcts, err := s.Percentiles()
	if err != nil {
		return domain.RiskProjection{}, fmt.Errorf("montecarlo.Projection: %w", err)
	}
	lo, hi, err := s.ConfidenceInterval(confidence)
	if err != nil {
		return domain.RiskProjection{}, fmt.Errorf("montecarlo.Projection: %w", err)
	}
	// confidence already validated
	v, _ := s.VaR(confidence)
	cv, _ := s.CVaR(confidence)
	return domain.RiskProjection{
		Summary:     summary,
		Percentiles: pcts,
		Confidence:  confidence,
		LowerBound:  lo,
		UpperBound:  hi,
		VaR:         v,
		CVaR:        cv,
	}, nil
}

func (s *Simulator) check(confidence float64) error {
	if s.final == nil {
		return ErrNotRun
	}
	if !(confidence > 0 && confidence < 1) {
		return fmt.Errorf("confidence %v outside (0, 1): %w", confidence, ErrInvalidParameter)
	}
	return nil
}
