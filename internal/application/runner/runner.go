package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/revertbot/internal/application/backtest"
	"github.com/alejandrodnm/revertbot/internal/application/montecarlo"
	"github.com/alejandrodnm/revertbot/internal/domain"
	"github.com/alejandrodnm/revertbot/internal/ports"
)

// ErrShortHistory is returned by Project when the backtest spans too few
// trading days to fit a return distribution.
var ErrShortHistory = errors.New("runner: not enough daily returns for a projection")

// ErrRunNotFound is returned by Detail when storage holds nothing for the id.
var ErrRunNotFound = errors.New("runner: run not found")

// minDailyReturns is the smallest sample the projection accepts.
const minDailyReturns = 2

// Config holds the settings of one backtest run.
type Config struct {
	Symbols      []string
	LookbackDays int
	Timeframe    domain.Timeframe
	// End anchors the lookback window. Zero means now.
	End time.Time
	// DryRun skips persistence.
	DryRun     bool
	MonteCarlo ProjectionConfig
}

// ProjectionConfig controls the Monte Carlo step that follows the backtest.
type ProjectionConfig struct {
	Enabled     bool
	RegimeAware bool
	Simulations int
	Days        int
	Seed        uint64
	Workers     int
	Confidence  float64
	// VolWindow is the rolling window, in days, used to tag returns with a
	// volatility level in regime-aware mode.
	VolWindow int
}

// Runner wires a data source, the backtest engine, storage and reporting.
type Runner struct {
	cfg      Config
	bars     ports.BarProvider
	engine   *backtest.Engine
	storage  ports.RunStorage
	reporter ports.Reporter
}

// New creates a Runner. storage may be nil, in which case nothing is persisted.
// bars and engine may be nil when the Runner only serves stored-run queries.
func New(
	cfg Config,
	bars ports.BarProvider,
	engine *backtest.Engine,
	storage ports.RunStorage,
	reporter ports.Reporter,
) *Runner {
	if cfg.Timeframe == "" {
		cfg.Timeframe = domain.TimeframeMinute
	}
	return &Runner{
		cfg:      cfg,
		bars:     bars,
		engine:   engine,
		storage:  storage,
		reporter: reporter,
	}
}

// RunOnce fetches history, replays it, projects risk forward and reports.
// Storage failures are logged and do not abort the run.
func (r *Runner) RunOnce(ctx context.Context) (domain.RunRecord, error) {
	startedAt := time.Now().UTC()
	end := r.cfg.End
	if end.IsZero() {
		end = startedAt
	}
	req := domain.LookbackRequest(r.cfg.Symbols, r.cfg.LookbackDays, end, r.cfg.Timeframe)

	slog.Info("runner: fetching bars",
		"symbols", req.Symbols,
		"start", req.Start.Format(time.DateOnly),
		"end", req.End.Format(time.DateOnly),
		"timeframe", req.Timeframe,
	)
	bars, err := r.bars.FetchBars(ctx, req)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("runner.RunOnce: fetch bars: %w", err)
	}
	if len(bars) == 0 {
		slog.Warn("runner: provider returned no bars")
	}

	res, err := r.engine.Run(ctx, bars, r.cfg.Symbols...)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("runner.RunOnce: %w", err)
	}
	run := res.Record(startedAt)

	if r.cfg.MonteCarlo.Enabled && !run.Stats.Empty() {
		proj, err := r.Project(ctx, run.Equity, run.Stats.FinalEquity)
		switch {
		case errors.Is(err, ErrShortHistory):
			slog.Warn("runner: skipping projection", "err", err)
		case err != nil:
			return domain.RunRecord{}, fmt.Errorf("runner.RunOnce: %w", err)
		default:
			run.Projection = &proj
		}
	}

	if r.storage != nil && !r.cfg.DryRun {
		if err := r.storage.SaveRun(ctx, run); err != nil {
			slog.Error("runner: failed to save run", "err", err, "run", run.ID)
		} else {
			slog.Debug("runner: run saved", "run", run.ID, "trades", len(run.Trades))
		}
	}

	if err := r.reporter.Report(ctx, run); err != nil {
		slog.Warn("runner: reporter error", "err", err)
	}
	return run, nil
}

// Project runs the Monte Carlo simulation over the daily returns of an
// equity curve, starting from initialValue.
func (r *Runner) Project(ctx context.Context, equity []domain.EquityPoint, initialValue float64) (domain.RiskProjection, error) {
	mc := r.cfg.MonteCarlo
	daily := backtest.DailyReturns(equity)
	if len(daily) < minDailyReturns {
		return domain.RiskProjection{}, fmt.Errorf("%d daily returns: %w", len(daily), ErrShortHistory)
	}

	simCfg := montecarlo.Config{
		Simulations:  mc.Simulations,
		Days:         mc.Days,
		InitialValue: initialValue,
		Seed:         mc.Seed,
		Workers:      mc.Workers,
	}
	returns := daily
	if mc.RegimeAware {
		aligned, vols := montecarlo.RollingVolatility(daily, mc.VolWindow)
		if len(aligned) >= minDailyReturns {
			returns = aligned
			simCfg.Volatility = vols
		} else {
			slog.Warn("runner: too few days for regime-aware projection, using plain mode",
				"days", len(daily), "vol_window", mc.VolWindow)
		}
	}

	sim, err := montecarlo.New(returns, simCfg)
	if err != nil {
		return domain.RiskProjection{}, fmt.Errorf("runner.Project: %w", err)
	}
	if err := sim.Run(ctx); err != nil {
		return domain.RiskProjection{}, fmt.Errorf("runner.Project: %w", err)
	}
	proj, err := sim.Projection(mc.Confidence)
	if err != nil {
		return domain.RiskProjection{}, fmt.Errorf("runner.Project: %w", err)
	}

	slog.Info("runner: projection done",
		"simulations", mc.Simulations,
		"days", mc.Days,
		"regime_aware", sim.RegimeAware(),
		"median", proj.Summary.MedianFinal,
		"var", proj.VaR,
	)
	return proj, nil
}

// History returns the latest stored runs, most recent first.
func (r *Runner) History(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if r.storage == nil {
		return nil, fmt.Errorf("runner.History: no storage configured")
	}
	runs, err := r.storage.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("runner.History: %w", err)
	}
	return runs, nil
}

// Detail loads the trade log and equity curve of a stored run.
func (r *Runner) Detail(ctx context.Context, runID string) ([]domain.Trade, []domain.EquityPoint, error) {
	if r.storage == nil {
		return nil, nil, fmt.Errorf("runner.Detail: no storage configured")
	}
	trades, err := r.storage.GetTrades(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("runner.Detail: %w", err)
	}
	equity, err := r.storage.GetEquity(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("runner.Detail: %w", err)
	}
	if len(trades) == 0 && len(equity) == 0 {
		return nil, nil, fmt.Errorf("runner.Detail: run %q: %w", runID, ErrRunNotFound)
	}
	return trades, equity, nil
}
