package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/revertbot/config"
	"github.com/alejandrodnm/revertbot/internal/adapters/alpaca"
	"github.com/alejandrodnm/revertbot/internal/adapters/notify"
	"github.com/alejandrodnm/revertbot/internal/adapters/storage"
	"github.com/alejandrodnm/revertbot/internal/adapters/synthetic"
	"github.com/alejandrodnm/revertbot/internal/application/backtest"
	"github.com/alejandrodnm/revertbot/internal/application/runner"
	"github.com/alejandrodnm/revertbot/internal/domain"
	"github.com/alejandrodnm/revertbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbols := flag.String("symbols", "", "comma-separated symbols (overrides config)")
	days := flag.Int("days", 0, "lookback in calendar days (overrides config)")
	timeframe := flag.String("timeframe", "", "bar size: minute|hour|day (overrides config)")
	strategyName := flag.String("strategy", "", "strategy name (overrides config)")
	dryRun := flag.Bool("dry-run", false, "use synthetic bars and skip storage")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full tables (default: compact 1-line)")
	trades := flag.Int("trades", 10, "number of recent trades to print in table mode")
	noStore := flag.Bool("no-store", false, "do not persist the run")
	noMC := flag.Bool("no-mc", false, "skip the Monte Carlo projection")
	regimeMC := flag.Bool("regime-mc", false, "regime-aware Monte Carlo projection")
	seed := flag.Uint64("seed", 0, "Monte Carlo seed, 0 = random (overrides config)")
	history := flag.Int("history", 0, "print the last N stored runs and exit")
	runID := flag.String("run", "", "print trades and daily equity of a stored run and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	applyFlags(cfg, *symbols, *days, *timeframe, *strategyName, *seed, *noMC, *regimeMC)
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("revertbot starting",
		"config", *configPath,
		"strategy", cfg.Backtest.Strategy,
		"symbols", cfg.Backtest.Symbols,
		"days", cfg.Backtest.LookbackDays,
		"timeframe", cfg.Backtest.Timeframe,
		"dry_run", *dryRun,
	)

	opts := options{
		dryRun:  *dryRun,
		noStore: *noStore,
		table:   *table,
		trades:  *trades,
		history: *history,
		runID:   *runID,
	}
	if err := run(cfg, opts); err != nil {
		slog.Error("revertbot failed", "err", err)
		os.Exit(1)
	}
	slog.Info("revertbot finished")
}

// options son los flags que no viven en la configuración.
type options struct {
	dryRun  bool
	noStore bool
	table   bool
	trades  int
	history int
	runID   string
}

// queryOnly indica que no se ejecuta backtest, solo se lee el histórico.
func (o options) queryOnly() bool { return o.history > 0 || o.runID != "" }

// run arma las dependencias, ejecuta el modo pedido y cierra el storage.
func run(cfg *config.Config, opts options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store *storage.SQLiteStorage
	if opts.queryOnly() || (!opts.dryRun && !opts.noStore) {
		if opts.dryRun {
			return fmt.Errorf("-history and -run read storage; drop -dry-run")
		}
		var err error
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
		}
		defer store.Close()
	}

	console := notify.NewConsole(opts.trades, opts.table)

	if opts.queryOnly() {
		r := runner.New(runner.Config{}, nil, nil, store, console)
		return query(ctx, r, console, opts)
	}

	tf, err := domain.ParseTimeframe(cfg.Backtest.Timeframe)
	if err != nil {
		return err
	}
	strat, err := buildRegistry(cfg.Strategy, tf).Lookup(cfg.Backtest.Strategy)
	if err != nil {
		return err
	}
	merge, err := backtest.ParseMergeMode(cfg.Backtest.MergeMode)
	if err != nil {
		return err
	}
	engine := backtest.New(strat, backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		Merge:          merge,
	})

	var bars ports.BarProvider
	if opts.dryRun {
		bars = synthetic.NewProvider(cfg.MonteCarlo.Seed, 0, 0)
	} else {
		if cfg.API.Key == "" || cfg.API.Secret == "" {
			return fmt.Errorf("missing market data credentials: set ALPACA_KEY and ALPACA_SECRET or use -dry-run")
		}
		bars = alpaca.NewClient(cfg.API.DataURL, cfg.API.Key, cfg.API.Secret, cfg.API.Feed)
	}

	var runStore ports.RunStorage
	if store != nil {
		runStore = store
	}

	r := runner.New(runner.Config{
		Symbols:      cfg.Backtest.Symbols,
		LookbackDays: cfg.Backtest.LookbackDays,
		Timeframe:    tf,
		DryRun:       opts.dryRun,
		MonteCarlo: runner.ProjectionConfig{
			Enabled:     cfg.MonteCarlo.Enabled,
			RegimeAware: cfg.MonteCarlo.RegimeAware,
			Simulations: cfg.MonteCarlo.Simulations,
			Days:        cfg.MonteCarlo.Days,
			Seed:        cfg.MonteCarlo.Seed,
			Workers:     cfg.MonteCarlo.Workers,
			Confidence:  cfg.MonteCarlo.Confidence,
			VolWindow:   cfg.MonteCarlo.VolWindow,
		},
	}, bars, engine, runStore, console)

	if _, err := r.RunOnce(ctx); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	return nil
}

// query imprime el histórico (-history) o el detalle de un run (-run).
func query(ctx context.Context, r *runner.Runner, console *notify.Console, opts options) error {
	if opts.runID != "" {
		trades, equity, err := r.Detail(ctx, opts.runID)
		if err != nil {
			return err
		}
		console.RunDetail(opts.runID, trades, equity)
		return nil
	}
	runs, err := r.History(ctx, opts.history)
	if err != nil {
		return err
	}
	console.History(runs)
	return nil
}

// applyFlags sobreescribe la configuración con los flags no vacíos.
func applyFlags(cfg *config.Config, symbols string, days int, timeframe, strategyName string, seed uint64, noMC, regimeMC bool) {
	if symbols != "" {
		cfg.Backtest.Symbols = config.SplitSymbols(symbols)
	}
	if days > 0 {
		cfg.Backtest.LookbackDays = days
	}
	if timeframe != "" {
		cfg.Backtest.Timeframe = timeframe
	}
	if strategyName != "" {
		cfg.Backtest.Strategy = strategyName
	}
	if seed != 0 {
		cfg.MonteCarlo.Seed = seed
	}
	if noMC {
		cfg.MonteCarlo.Enabled = false
	}
	if regimeMC {
		cfg.MonteCarlo.Enabled = true
		cfg.MonteCarlo.RegimeAware = true
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
