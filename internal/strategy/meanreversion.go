package strategy

import (
	"log/slog"

	"github.com/alejandrodnm/revertbot/internal/analysis"
	"github.com/alejandrodnm/revertbot/internal/domain"
)

// NameMeanReversion es el nombre con el que se registra MeanReversion.
const NameMeanReversion = "mean_reversion"

const minStd = 1e-6

// MeanReversionConfig parametriza la estrategia. Los umbrales están en
// desviaciones estándar.
type MeanReversionConfig struct {
	EntryThreshold    float64 // z-score por debajo de la media para comprar
	ExitThreshold     float64 // subida desde la entrada para tomar beneficio
	StopLossThreshold float64 // caída desde la entrada para cortar pérdidas
	Timeframe         int     // ventana de la media/std móvil, en barras
	CooldownPeriod    int     // barras sin reentrada tras una entrada

	UseRegime      bool
	UseTrend       bool
	RegimeWindow   int
	RegimeLookback int // 0 = Timeframe
	Annualization  float64
	Trend          analysis.TrendConfig
}

// DefaultMeanReversionConfig devuelve la configuración por defecto
// (barras de minuto, ventana de una sesión).
func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		EntryThreshold:    3,
		ExitThreshold:     2,
		StopLossThreshold: 3,
		Timeframe:         390,
		CooldownPeriod:    30,
		UseRegime:         true,
		UseTrend:          true,
		RegimeWindow:      20,
		Trend:             analysis.DefaultTrendConfig(),
	}
}

// MeanReversion compra cuando el precio cae EntryThreshold desviaciones por
// debajo de su media móvil y sale por take-profit o stop-loss medidos con la
// desviación congelada en la entrada. Los umbrales se escalan según el
// régimen de volatilidad y las entradas se bloquean en tendencia bajista.
type MeanReversion struct {
	cfg    MeanReversionConfig
	regime regimeClassifier
	trend  trendClassifier
}

// regimeClassifier y trendClassifier son los clasificadores de analysis
// vistos desde la estrategia.
type regimeClassifier interface {
	Classify(history []float64) domain.Regime
}

type trendClassifier interface {
	Classify(history []float64) domain.Trend
}

// NewMeanReversion crea la estrategia. Umbrales y ventanas <= 0 toman el default.
func NewMeanReversion(cfg MeanReversionConfig) *MeanReversion {
	def := DefaultMeanReversionConfig()
	if cfg.EntryThreshold <= 0 {
		cfg.EntryThreshold = def.EntryThreshold
	}
	if cfg.ExitThreshold <= 0 {
		cfg.ExitThreshold = def.ExitThreshold
	}
	if cfg.StopLossThreshold <= 0 {
		cfg.StopLossThreshold = def.StopLossThreshold
	}
	if cfg.Timeframe <= 1 {
		cfg.Timeframe = def.Timeframe
	}
	if cfg.CooldownPeriod < 0 {
		cfg.CooldownPeriod = 0
	}
	if cfg.RegimeLookback <= 0 {
		cfg.RegimeLookback = cfg.Timeframe
	}
	s := &MeanReversion{cfg: cfg}
	if cfg.UseRegime {
		s.regime = analysis.NewVolatilityClassifier(cfg.RegimeWindow, cfg.RegimeLookback, cfg.Annualization)
	}
	if cfg.UseTrend {
		s.trend = analysis.NewTrendClassifier(cfg.Trend)
	}
	return s
}

func (s *MeanReversion) Name() string { return NameMeanReversion }

// Config devuelve la configuración efectiva (con defaults aplicados).
func (s *MeanReversion) Config() MeanReversionConfig { return s.cfg }

type thresholds struct {
	entry, exit, stop float64
}

// scaled ajusta los umbrales base al régimen. ok=false significa que no se
// permiten entradas nuevas (EXTREME estando flat).
func (s *MeanReversion) scaled(regime domain.Regime, long bool) (thresholds, bool) {
	t := thresholds{s.cfg.EntryThreshold, s.cfg.ExitThreshold, s.cfg.StopLossThreshold}
	switch regime {
	case domain.RegimeLow:
		t.entry *= 0.7
		t.exit *= 0.8
		t.stop *= 0.8
	case domain.RegimeHigh:
		t.entry *= 1.3
		t.exit *= 1.2
		t.stop *= 1.2
	case domain.RegimeExtreme:
		if !long {
			return t, false
		}
		t.exit *= 1.5
		t.stop *= 1.5
	}
	return t, true
}

// OnBar implementa la máquina de estados FLAT/LONG.
func (s *MeanReversion) OnBar(bar domain.Bar, st *domain.SymbolState) domain.Signal {
	price := bar.Close
	st.History = append(st.History, price)

	n := len(st.History)
	if n <= s.cfg.Timeframe {
		return domain.SignalHold
	}

	window := st.History[n-1-s.cfg.Timeframe : n-1]
	mean := domain.Mean(window)
	std := domain.PopStdDev(window)
	if std < minStd {
		return domain.SignalHold
	}
	z := (price - mean) / std

	regime := domain.RegimeNormal
	if s.regime != nil {
		regime = s.regime.Classify(st.History)
	}
	if regime != st.Regime {
		slog.Debug("meanreversion: regime change",
			"symbol", st.Symbol, "from", st.Regime, "to", regime, "desc", regime.Description())
		st.Regime = regime
	}
	t, ok := s.scaled(regime, st.IsLong())
	if !ok {
		return domain.SignalHold
	}

	st.Cooldown--

	if st.IsLong() {
		move := (price - st.EntryPrice) / st.EntryStd
		if move < -t.stop || move > t.exit {
			st.Exit()
			return domain.SignalSell
		}
		return domain.SignalHold
	}

	if s.trend != nil && s.trend.Classify(st.History) == domain.TrendDown {
		return domain.SignalHold
	}

	if z < -t.entry && st.Cooldown <= 0 {
		st.Enter(price, std, s.cfg.CooldownPeriod)
		return domain.SignalBuy
	}
	return domain.SignalHold
}
