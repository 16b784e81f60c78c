package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest   BacktestConfig   `yaml:"backtest"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	MonteCarlo MonteCarloConfig `yaml:"montecarlo"`
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// BacktestConfig controla qué se simula y con cuánto capital.
type BacktestConfig struct {
	InitialCapital float64  `yaml:"initial_capital"`
	Strategy       string   `yaml:"strategy"` // mean_reversion | ma_crossover
	Symbols        []string `yaml:"symbols"`
	LookbackDays   int      `yaml:"lookback_days"`
	Timeframe      string   `yaml:"timeframe"`  // minute | hour | day
	MergeMode      string   `yaml:"merge_mode"` // forward_fill | sum_available
}

// StrategyConfig contiene los parámetros de las estrategias.
type StrategyConfig struct {
	EntryThreshold    float64 `yaml:"entry_threshold"` // desviaciones bajo la media para comprar
	ExitThreshold     float64 `yaml:"exit_threshold"`
	StopLossThreshold float64 `yaml:"stop_loss_threshold"`
	Window            int     `yaml:"window"` // barras de la media/std móvil
	CooldownBars      int     `yaml:"cooldown_bars"`

	UseRegime    *bool `yaml:"use_regime"` // nil = true
	UseTrend     *bool `yaml:"use_trend"`  // nil = true
	RegimeWindow int   `yaml:"regime_window"`

	TrendLookback     int     `yaml:"trend_lookback"`
	SlopeThreshold    float64 `yaml:"slope_threshold"`
	MomentumThreshold float64 `yaml:"momentum_threshold"`
	ACLag             int     `yaml:"ac_lag"`
	ACThreshold       float64 `yaml:"ac_threshold"`

	CrossoverShort int `yaml:"crossover_short"`
	CrossoverLong  int `yaml:"crossover_long"`
}

// RegimeEnabled devuelve si el filtro de régimen está activo.
func (s StrategyConfig) RegimeEnabled() bool { return s.UseRegime == nil || *s.UseRegime }

// TrendEnabled devuelve si el filtro de tendencia está activo.
func (s StrategyConfig) TrendEnabled() bool { return s.UseTrend == nil || *s.UseTrend }

// MonteCarloConfig controla la proyección de riesgo posterior al backtest.
type MonteCarloConfig struct {
	Enabled     bool    `yaml:"enabled"`
	RegimeAware bool    `yaml:"regime_aware"`
	Simulations int     `yaml:"simulations"`
	Days        int     `yaml:"days"`
	Seed        uint64  `yaml:"seed"` // 0 = aleatorio
	Workers     int     `yaml:"workers"`
	Confidence  float64 `yaml:"confidence"`
	VolWindow   int     `yaml:"vol_window"` // días de la volatilidad móvil en modo régimen
}

// APIConfig contiene el endpoint y credenciales de datos de mercado.
type APIConfig struct {
	DataURL string `yaml:"data_url"`
	Feed    string `yaml:"feed"` // iex | sip
	Key     string `yaml:"-"`    // solo desde ALPACA_KEY
	Secret  string `yaml:"-"`    // solo desde ALPACA_SECRET
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta YAML, aplica overrides de entorno y defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate rechaza combinaciones imposibles. Se llama después de aplicar flags.
func (c *Config) Validate() error {
	var errs []error
	if c.Backtest.InitialCapital <= 0 {
		errs = append(errs, fmt.Errorf("backtest.initial_capital must be positive"))
	}
	if len(c.Backtest.Symbols) == 0 {
		errs = append(errs, fmt.Errorf("backtest.symbols is empty"))
	}
	if c.Backtest.LookbackDays <= 0 {
		errs = append(errs, fmt.Errorf("backtest.lookback_days must be positive"))
	}
	if _, err := domain.ParseTimeframe(c.Backtest.Timeframe); err != nil {
		errs = append(errs, fmt.Errorf("backtest.timeframe: %w", err))
	}
	switch c.Backtest.MergeMode {
	case "forward_fill", "sum_available":
	default:
		errs = append(errs, fmt.Errorf("backtest.merge_mode %q unknown", c.Backtest.MergeMode))
	}
	if c.Strategy.CrossoverLong <= c.Strategy.CrossoverShort {
		errs = append(errs, fmt.Errorf("strategy.crossover_long must exceed crossover_short"))
	}
	if c.MonteCarlo.Enabled {
		if c.MonteCarlo.Simulations <= 0 || c.MonteCarlo.Days <= 0 {
			errs = append(errs, fmt.Errorf("montecarlo.simulations and days must be positive"))
		}
		if c.MonteCarlo.Confidence <= 0 || c.MonteCarlo.Confidence >= 1 {
			errs = append(errs, fmt.Errorf("montecarlo.confidence must be in (0, 1)"))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPACA_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("ALPACA_SECRET"); v != "" {
		cfg.API.Secret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.API.DataURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Backtest.Symbols = SplitSymbols(v)
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// SplitSymbols convierte "spy, qqq" en ["SPY", "QQQ"].
func SplitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	b := &cfg.Backtest
	if b.InitialCapital <= 0 {
		b.InitialCapital = 100_000
	}
	if b.Strategy == "" {
		b.Strategy = "mean_reversion"
	}
	if b.LookbackDays <= 0 {
		b.LookbackDays = 30
	}
	if b.Timeframe == "" {
		b.Timeframe = "minute"
	}
	if b.MergeMode == "" {
		b.MergeMode = "forward_fill"
	}

	s := &cfg.Strategy
	if s.EntryThreshold <= 0 {
		s.EntryThreshold = 3
	}
	if s.ExitThreshold <= 0 {
		s.ExitThreshold = 2
	}
	if s.StopLossThreshold <= 0 {
		s.StopLossThreshold = 3
	}
	if s.Window <= 0 {
		s.Window = 390 // una sesión de barras de minuto
	}
	if s.CooldownBars <= 0 {
		s.CooldownBars = 30
	}
	if s.RegimeWindow <= 0 {
		s.RegimeWindow = 20
	}
	if s.TrendLookback <= 0 {
		s.TrendLookback = 60
	}
	if s.SlopeThreshold <= 0 {
		s.SlopeThreshold = 0.001
	}
	if s.ACLag <= 0 {
		s.ACLag = 10
	}
	if s.ACThreshold <= 0 {
		s.ACThreshold = 0.10
	}
	if s.CrossoverShort <= 0 {
		s.CrossoverShort = 50
	}
	if s.CrossoverLong <= 0 {
		s.CrossoverLong = 200
	}

	m := &cfg.MonteCarlo
	if m.Simulations <= 0 {
		m.Simulations = 1000
	}
	if m.Days <= 0 {
		m.Days = 252
	}
	if m.Confidence <= 0 {
		m.Confidence = 0.95
	}
	if m.VolWindow <= 1 {
		m.VolWindow = 5
	}

	if cfg.API.DataURL == "" {
		cfg.API.DataURL = "https://data.alpaca.markets"
	}
	if cfg.API.Feed == "" {
		cfg.API.Feed = "iex"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "revertbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
