package domain

import "time"

// TradeSide es el lado de una ejecución simulada.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade es una ejecución simulada. La crea el worker del símbolo en el
// momento en que una señal se convierte en ejecución y no se modifica nunca.
type Trade struct {
	ID        string
	Side      TradeSide
	Symbol    string
	Price     float64
	Timestamp time.Time
	Shares    float64
	Cash      float64 // coste para buy, proceeds para sell
}

// EquityPoint es el valor de una cartera (o de la porción de un símbolo)
// en un instante dado.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}
