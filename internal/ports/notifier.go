package ports

import (
	"context"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// Reporter presenta los resultados de un backtest al usuario.
type Reporter interface {
	// Report muestra stats, trades recientes y la proyección de riesgo si existe.
	// En la implementación de consola, imprime tablas formateadas.
	Report(ctx context.Context, run domain.RunRecord) error
}
