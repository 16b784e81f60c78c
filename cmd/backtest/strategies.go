package main

import (
	"github.com/alejandrodnm/revertbot/config"
	"github.com/alejandrodnm/revertbot/internal/analysis"
	"github.com/alejandrodnm/revertbot/internal/domain"
	"github.com/alejandrodnm/revertbot/internal/strategy"
)

// buildRegistry registra todas las estrategias disponibles con los
// parámetros de la configuración. La anualización de la volatilidad
// depende del tamaño de barra.
func buildRegistry(sc config.StrategyConfig, tf domain.Timeframe) strategy.Registry {
	reg := strategy.NewRegistry()
	reg.Register(strategy.NewMeanReversion(meanReversionConfig(sc, tf)))
	reg.Register(strategy.NewCrossover(sc.CrossoverShort, sc.CrossoverLong))
	return reg
}

func meanReversionConfig(sc config.StrategyConfig, tf domain.Timeframe) strategy.MeanReversionConfig {
	return strategy.MeanReversionConfig{
		EntryThreshold:    sc.EntryThreshold,
		ExitThreshold:     sc.ExitThreshold,
		StopLossThreshold: sc.StopLossThreshold,
		Timeframe:         sc.Window,
		CooldownPeriod:    sc.CooldownBars,
		UseRegime:         sc.RegimeEnabled(),
		UseTrend:          sc.TrendEnabled(),
		RegimeWindow:      sc.RegimeWindow,
		Annualization:     float64(domain.TradingDays * tf.BarsPerDay()),
		Trend: analysis.TrendConfig{
			Lookback:          sc.TrendLookback,
			SlopeThreshold:    sc.SlopeThreshold,
			MomentumThreshold: sc.MomentumThreshold,
			ACLag:             sc.ACLag,
			ACThreshold:       sc.ACThreshold,
		},
	}
}
