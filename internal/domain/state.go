package domain

// Position flags de SymbolState.
const (
	Flat = 0
	Long = 1
)

// SymbolState es el estado por símbolo que posee en exclusiva su worker.
// EntryPrice y EntryStd solo tienen sentido cuando Position == Long;
// EntryStd se congela en la entrada y no cambia hasta la salida.
type SymbolState struct {
	Symbol     string
	History    []float64 // closes, append-only
	Position   int
	EntryPrice float64
	EntryStd   float64
	Cooldown   int
	Shares     float64
	Regime     Regime // último régimen observado
}

// NewSymbolState crea un estado vacío (flat) para el símbolo.
func NewSymbolState(symbol string) *SymbolState {
	return &SymbolState{Symbol: symbol, Position: Flat, Regime: RegimeNormal}
}

// IsLong devuelve true si hay una posición abierta.
func (s *SymbolState) IsLong() bool {
	return s.Position == Long
}

// Enter abre la posición y congela los campos de entrada.
func (s *SymbolState) Enter(price, std float64, cooldown int) {
	s.Position = Long
	s.EntryPrice = price
	s.EntryStd = std
	s.Cooldown = cooldown
}

// Exit cierra la posición y limpia los campos de entrada.
func (s *SymbolState) Exit() {
	s.Position = Flat
	s.EntryPrice = 0
	s.EntryStd = 0
}
