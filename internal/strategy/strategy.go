package strategy

import (
	"fmt"
	"sort"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// Strategy define el contrato de decisión por barra. Las implementaciones no
// guardan estado propio: todo el estado por símbolo vive en SymbolState, así
// que una misma instancia se comparte entre los workers de todos los símbolos.
type Strategy interface {
	// Name devuelve el identificador único de la estrategia.
	Name() string

	// OnBar procesa una barra nueva y devuelve la señal resultante.
	// Puede modificar st (historial, posición, cooldown); nunca otro estado.
	OnBar(bar domain.Bar, st *domain.SymbolState) domain.Signal
}

// Registry mantiene las estrategias disponibles indexadas por nombre.
type Registry map[string]Strategy

// NewRegistry crea un registry vacío.
func NewRegistry() Registry {
	return make(Registry)
}

// Register añade una estrategia al registry.
func (r Registry) Register(s Strategy) {
	r[s.Name()] = s
}

// Get devuelve la estrategia por nombre.
func (r Registry) Get(name string) (Strategy, bool) {
	s, ok := r[name]
	return s, ok
}

// Lookup devuelve la estrategia o un error que lista las disponibles.
func (r Registry) Lookup(name string) (Strategy, error) {
	if s, ok := r[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("strategy: unknown %q (available: %v)", name, r.Names())
}

// Names devuelve los nombres registrados, ordenados.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
