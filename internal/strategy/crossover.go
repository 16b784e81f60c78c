package strategy

import "github.com/alejandrodnm/revertbot/internal/domain"

// NameCrossover es el nombre con el que se registra Crossover.
const NameCrossover = "ma_crossover"

// Crossover compra cuando la media corta cruza por encima de la larga y
// vende cuando cruza por debajo.
type Crossover struct {
	short, long int
}

// NewCrossover crea la estrategia. Ventanas inválidas toman 50/200.
func NewCrossover(short, long int) *Crossover {
	if short <= 0 {
		short = 50
	}
	if long <= short {
		long = max(200, short+1)
	}
	return &Crossover{short: short, long: long}
}

func (c *Crossover) Name() string { return NameCrossover }

func (c *Crossover) OnBar(bar domain.Bar, st *domain.SymbolState) domain.Signal {
	st.History = append(st.History, bar.Close)
	n := len(st.History)
	if n < c.long {
		return domain.SignalHold
	}
	shortMA := domain.Mean(st.History[n-c.short:])
	longMA := domain.Mean(st.History[n-c.long:])

	switch {
	case shortMA > longMA && !st.IsLong():
		st.Enter(bar.Close, 0, 0)
		return domain.SignalBuy
	case shortMA < longMA && st.IsLong():
		st.Exit()
		return domain.SignalSell
	}
	return domain.SignalHold
}
