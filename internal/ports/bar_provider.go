package ports

import (
	"context"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// BarProvider obtiene barras históricas de un proveedor de datos de mercado.
type BarProvider interface {
	// FetchBars devuelve las barras de todos los símbolos del request en el
	// rango [Start, End], ordenadas por timestamp dentro de cada símbolo.
	// Pagina automáticamente hasta obtener todos los resultados.
	FetchBars(ctx context.Context, req domain.BarRequest) ([]domain.Bar, error)
}
