package synthetic

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

const (
	defaultStartPrice = 100.0
	defaultVolatility = 0.001 // por barra
	reversion         = 0.01
	jumpProbability   = 0.002
	jumpSize          = -8 // en desviaciones por barra
)

// Provider genera barras sintéticas deterministas para el modo dry-run.
// Cada símbolo sigue un paseo log-normal con reversión a su precio inicial
// y caídas bruscas ocasionales, solo dentro de la sesión regular de días hábiles.
type Provider struct {
	seed       uint64
	startPrice float64
	volatility float64
}

// NewProvider crea un Provider. Valores <= 0 toman el default.
func NewProvider(seed uint64, startPrice, volatility float64) *Provider {
	if startPrice <= 0 {
		startPrice = defaultStartPrice
	}
	if volatility <= 0 {
		volatility = defaultVolatility
	}
	return &Provider{seed: seed, startPrice: startPrice, volatility: volatility}
}

// FetchBars implementa ports.BarProvider.
func (p *Provider) FetchBars(ctx context.Context, req domain.BarRequest) ([]domain.Bar, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("synthetic.FetchBars: no symbols")
	}
	if req.End.Before(req.Start) {
		return nil, fmt.Errorf("synthetic.FetchBars: end %s before start %s", req.End, req.Start)
	}
	tf := req.Timeframe
	if tf == "" {
		tf = domain.TimeframeMinute
	}
	stamps := sessionStamps(req.Start, req.End, tf)

	var out []domain.Bar
	for _, sym := range req.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("synthetic.FetchBars: %w", err)
		}
		out = append(out, p.series(sym, stamps)...)
	}
	return out, nil
}

func (p *Provider) series(symbol string, stamps []time.Time) []domain.Bar {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewPCG(p.seed, h.Sum64()))

	anchor := math.Log(p.startPrice * (0.5 + rng.Float64()))
	x := anchor
	out := make([]domain.Bar, len(stamps))
	for i, ts := range stamps {
		prev := math.Exp(x)
		step := reversion*(anchor-x) + p.volatility*rng.NormFloat64()
		if rng.Float64() < jumpProbability {
			step += jumpSize * p.volatility
		}
		x += step
		c := math.Exp(x)
		spread := math.Abs(p.volatility*rng.NormFloat64()) * c
		out[i] = domain.Bar{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      prev,
			High:      math.Max(prev, c) + spread,
			Low:       math.Min(prev, c) - spread,
			Close:     c,
			Volume:    math.Round(1000 + 500*rng.Float64()),
		}
	}
	return out
}

// sessionStamps enumera los instantes de barra de cada sesión de día hábil
// dentro de [start, end]. Las barras diarias caen al cierre de la sesión.
func sessionStamps(start, end time.Time, tf domain.Timeframe) []time.Time {
	var out []time.Time
	step := tf.Duration()
	for day := start.UTC().Truncate(24 * time.Hour); !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		opens, closes := domain.TradingSession(day)
		if tf == domain.TimeframeDay {
			if !closes.Before(start) && !closes.After(end) {
				out = append(out, closes)
			}
			continue
		}
		for ts := opens; ts.Before(closes); ts = ts.Add(step) {
			if ts.Before(start) || ts.After(end) {
				continue
			}
			out = append(out, ts)
		}
	}
	return out
}
