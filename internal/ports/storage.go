package ports

import (
	"context"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// RunStorage persiste los backtests ejecutados.
type RunStorage interface {
	// SaveRun persiste el run completo: stats, trades, curva de equity y proyección.
	SaveRun(ctx context.Context, run domain.RunRecord) error

	// ListRuns devuelve los últimos runs (sin trades ni equity), más reciente primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// GetTrades devuelve los trades de un run en orden cronológico.
	GetTrades(ctx context.Context, runID string) ([]domain.Trade, error)
	// GetEquity devuelve la curva de equity de un run en orden cronológico.
	GetEquity(ctx context.Context, runID string) ([]domain.EquityPoint, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
