package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/revertbot/internal/domain"
	"github.com/alejandrodnm/revertbot/internal/strategy"
)

const (
	defaultCapital    = 100_000
	defaultCheckEvery = 1024
)

// Config holds backtest-specific settings.
type Config struct {
	InitialCapital float64
	Merge          MergeMode
	// CheckEvery is how many bars a worker processes between context checks.
	CheckEvery int
}

// Engine replays bars through a strategy, one independent worker per symbol.
// Capital is split evenly up front, so workers never share mutable state.
type Engine struct {
	strategy strategy.Strategy
	cfg      Config
}

// New creates a backtest engine.
func New(s strategy.Strategy, cfg Config) *Engine {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = defaultCapital
	}
	if cfg.Merge == "" {
		cfg.Merge = MergeForwardFill
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultCheckEvery
	}
	return &Engine{strategy: s, cfg: cfg}
}

// SymbolResult is the outcome of one symbol's worker.
type SymbolResult struct {
	Symbol      string
	Allocation  float64
	FinalEquity float64
	Bars        int
	Trades      []domain.Trade
	Equity      []domain.EquityPoint
}

// Result is the consolidated outcome of a run.
type Result struct {
	Strategy       string
	InitialCapital float64
	Symbols        []string
	Trades         []domain.Trade       // sorted by timestamp
	Equity         []domain.EquityPoint // one point per distinct timestamp
	PerSymbol      map[string]SymbolResult
	Elapsed        time.Duration
}

// Run partitions bars by symbol and simulates every symbol concurrently.
// Extra symbols with no bars still receive their share of capital; they
// produce no trades and no equity points.
func (e *Engine) Run(ctx context.Context, bars []domain.Bar, symbols ...string) (*Result, error) {
	start := time.Now()
	series := domain.GroupBySymbol(bars)
	universe := mergeSymbols(domain.Symbols(bars), symbols)
	if len(universe) == 0 {
		return nil, fmt.Errorf("backtest.Run: no symbols to simulate")
	}
	alloc := e.cfg.InitialCapital / float64(len(universe))

	slog.Info("backtest: starting",
		"strategy", e.strategy.Name(),
		"symbols", len(universe),
		"bars", len(bars),
		"allocation", alloc,
	)

	results := make([]SymbolResult, len(universe))
	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range universe {
		g.Go(func() error {
			res, err := e.runSymbol(gctx, sym, series[sym], alloc)
			if err != nil {
				return fmt.Errorf("backtest.Run: %s: %w", sym, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{
		Strategy:       e.strategy.Name(),
		InitialCapital: e.cfg.InitialCapital,
		Symbols:        universe,
		Trades:         mergeTrades(results),
		Equity:         mergeEquity(results, e.cfg.Merge),
		PerSymbol:      make(map[string]SymbolResult, len(results)),
	}
	for _, r := range results {
		out.PerSymbol[r.Symbol] = r
	}
	out.Elapsed = time.Since(start)

	slog.Info("backtest: finished",
		"trades", len(out.Trades),
		"equity_points", len(out.Equity),
		"elapsed", out.Elapsed.Round(time.Millisecond),
	)
	return out, nil
}

// runSymbol is the per-symbol worker. It owns its state and cash exclusively.
func (e *Engine) runSymbol(ctx context.Context, symbol string, bars []domain.Bar, alloc float64) (SymbolResult, error) {
	res := SymbolResult{
		Symbol:      symbol,
		Allocation:  alloc,
		FinalEquity: alloc,
		Bars:        len(bars),
		Equity:      make([]domain.EquityPoint, 0, len(bars)),
	}
	st := domain.NewSymbolState(symbol)
	cash := alloc

	for i, bar := range bars {
		if i%e.cfg.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		switch e.strategy.OnBar(bar, st) {
		case domain.SignalBuy:
			if st.Shares > 0 || cash <= 0 || bar.Close <= 0 {
				slog.Debug("backtest: buy skipped", "symbol", symbol, "price", bar.Close, "cash", cash)
				break
			}
			shares := cash / bar.Close
			res.Trades = append(res.Trades, newTrade(domain.SideBuy, bar, shares, cash))
			st.Shares = shares
			cash = 0
		case domain.SignalSell:
			if st.Shares <= 0 {
				break
			}
			proceeds := st.Shares * bar.Close
			res.Trades = append(res.Trades, newTrade(domain.SideSell, bar, st.Shares, proceeds))
			cash += proceeds
			st.Shares = 0
		}

		res.Equity = append(res.Equity, domain.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    cash + st.Shares*bar.Close,
		})
	}

	if n := len(res.Equity); n > 0 {
		res.FinalEquity = res.Equity[n-1].Equity
	}
	slog.Debug("backtest: symbol done",
		"symbol", symbol,
		"bars", len(bars),
		"trades", len(res.Trades),
		"final_equity", res.FinalEquity,
	)
	return res, nil
}

func newTrade(side domain.TradeSide, bar domain.Bar, shares, cash float64) domain.Trade {
	return domain.Trade{
		ID:        uuid.New().String(),
		Side:      side,
		Symbol:    bar.Symbol,
		Price:     bar.Close,
		Timestamp: bar.Timestamp,
		Shares:    shares,
		Cash:      cash,
	}
}

// Stats computes summary statistics over the consolidated curve.
func (r *Result) Stats() domain.PerformanceStats {
	return ComputeStats(r.Equity, r.Trades, r.InitialCapital)
}

// Record packages the result for storage and reporting.
func (r *Result) Record(startedAt time.Time) domain.RunRecord {
	return domain.RunRecord{
		ID:        uuid.New().String(),
		StartedAt: startedAt,
		Strategy:  r.Strategy,
		Symbols:   r.Symbols,
		Stats:     r.Stats(),
		Trades:    r.Trades,
		Equity:    r.Equity,
	}
}
