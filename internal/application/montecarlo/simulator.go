package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

var (
	// ErrInvalidParameter is returned for constructor or query arguments out of range.
	ErrInvalidParameter = errors.New("montecarlo: invalid parameter")
	// ErrNotRun is returned by analysis methods called before Run.
	ErrNotRun = errors.New("montecarlo: simulation has not been run")
)

// chunkSize is the number of paths sharing one random source. It is fixed so
// a given seed produces the same paths regardless of the worker count.
const chunkSize = 64

// Config holds simulation settings.
type Config struct {
	Simulations  int
	Days         int
	InitialValue float64
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed uint64
	// Volatility, when set, enables regime-aware mode. It must be aligned
	// with the returns series.
	Volatility []float64
	// Workers bounds path generation concurrency. Zero means NumCPU.
	Workers int
}

// Simulator projects a portfolio forward by compounding random daily
// returns drawn from the historical sample.
type Simulator struct {
	cfg     Config
	returns []float64
	mean    float64
	std     float64
	regimes []RegimeParams

	paths [][]float64
	final []float64 // sorted ascending
}

// New validates the inputs and fits the return distribution. NaN returns
// (and their volatility pair, in regime-aware mode) are dropped first.
func New(returns []float64, cfg Config) (*Simulator, error) {
	if cfg.Volatility != nil && len(cfg.Volatility) != len(returns) {
		return nil, fmt.Errorf("montecarlo.New: %d volatility values for %d returns: %w",
			len(cfg.Volatility), len(returns), ErrInvalidParameter)
	}

	clean := make([]float64, 0, len(returns))
	var vols []float64
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		if cfg.Volatility != nil {
			v := cfg.Volatility[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			vols = append(vols, v)
		}
		clean = append(clean, r)
	}

	switch {
	case len(clean) == 0:
		return nil, fmt.Errorf("montecarlo.New: returns cannot be empty: %w", ErrInvalidParameter)
	case cfg.Simulations <= 0:
		return nil, fmt.Errorf("montecarlo.New: simulations must be positive, got %d: %w", cfg.Simulations, ErrInvalidParameter)
	case cfg.Days <= 0:
		return nil, fmt.Errorf("montecarlo.New: days must be positive, got %d: %w", cfg.Days, ErrInvalidParameter)
	case cfg.InitialValue <= 0 || math.IsNaN(cfg.InitialValue):
		return nil, fmt.Errorf("montecarlo.New: initial value must be positive, got %v: %w", cfg.InitialValue, ErrInvalidParameter)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	cfg.Volatility = vols

	s := &Simulator{
		cfg:     cfg,
		returns: clean,
		mean:    domain.Mean(clean),
		std:     domain.StdDev(clean),
	}
	if vols != nil {
		s.regimes = fitRegimes(clean, vols)
	}
	return s, nil
}

// RegimeAware reports whether paths switch between volatility regimes.
func (s *Simulator) RegimeAware() bool {
	return s.regimes != nil
}

// Regimes returns the fitted regime parameters (nil in standard mode).
func (s *Simulator) Regimes() []RegimeParams {
	return s.regimes
}

// Run generates all paths. Each chunk of paths uses its own random source
// derived from the seed, so chunks run in parallel without sharing state.
func (s *Simulator) Run(ctx context.Context) error {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	paths := make([][]float64, s.cfg.Simulations)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for chunk := 0; chunk*chunkSize < len(paths); chunk++ {
		lo := chunk * chunkSize
		hi := min(lo+chunkSize, len(paths))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(chunk)))
			for p := lo; p < hi; p++ {
				paths[p] = s.path(rng)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("montecarlo.Run: %w", err)
	}

	final := make([]float64, len(paths))
	for i, p := range paths {
		final[i] = p[len(p)-1]
	}
	sort.Float64s(final)
	s.paths = paths
	s.final = final

	slog.Debug("montecarlo: run complete",
		"simulations", s.cfg.Simulations,
		"days", s.cfg.Days,
		"regime_aware", s.RegimeAware(),
	)
	return nil
}

func (s *Simulator) path(rng *rand.Rand) []float64 {
	out := make([]float64, s.cfg.Days)
	value := s.cfg.InitialValue
	for d := range out {
		mean, std := s.mean, s.std
		if s.regimes != nil {
			r := pickRegime(s.regimes, rng.Float64())
			mean, std = r.Mean, r.Std
		}
		value *= 1 + mean + std*rng.NormFloat64()
		out[d] = value
	}
	return out
}

// Paths returns the simulated paths, indexed [path][day]. Callers must not
// modify them.
func (s *Simulator) Paths() ([][]float64, error) {
	if s.paths == nil {
		return nil, ErrNotRun
	}
	return s.paths, nil
}

// FinalValues returns a sorted copy of the last-day value of every path.
func (s *Simulator) FinalValues() ([]float64, error) {
	if s.final == nil {
		return nil, ErrNotRun
	}
	return append([]float64(nil), s.final...), nil
}
