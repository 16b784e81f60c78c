package storage

// sqlite.go: histórico de backtests.
//
// Estrategia:
//   - `runs`: una fila por backtest con sus stats consolidadas.
//   - `trades` y `equity`: detalle completo del run, borrado en cascada con él.
//   - `projections`: resumen Monte Carlo opcional, una fila por run.
//   - Timestamps como TEXT RFC3339Nano en UTC: ordenan bien y no dependen del driver.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/revertbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    started_at      TEXT    NOT NULL,
    strategy        TEXT    NOT NULL,
    symbols         TEXT    NOT NULL,
    initial_capital REAL    NOT NULL DEFAULT 0,
    total_return    REAL    NOT NULL DEFAULT 0,
    sharpe          REAL    NOT NULL DEFAULT 0,
    max_drawdown    REAL    NOT NULL DEFAULT 0,
    win_rate        REAL    NOT NULL DEFAULT 0,
    final_equity    REAL    NOT NULL DEFAULT 0,
    total_trades    INTEGER NOT NULL DEFAULT 0,
    closed_trades   INTEGER NOT NULL DEFAULT 0,
    equity_points   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trades (
    id      TEXT PRIMARY KEY,
    run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    symbol  TEXT NOT NULL,
    side    TEXT NOT NULL,
    price   REAL NOT NULL,
    shares  REAL NOT NULL,
    cash    REAL NOT NULL,
    ts      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    ts     TEXT NOT NULL,
    equity REAL NOT NULL,
    PRIMARY KEY (run_id, ts)
);

CREATE TABLE IF NOT EXISTS projections (
    run_id        TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
    simulations   INTEGER NOT NULL,
    days          INTEGER NOT NULL,
    regime_aware  INTEGER NOT NULL DEFAULT 0,
    initial_value REAL    NOT NULL,
    mean_final    REAL    NOT NULL,
    median_final  REAL    NOT NULL,
    std_final     REAL    NOT NULL,
    min_final     REAL    NOT NULL,
    max_final     REAL    NOT NULL,
    prob_profit   REAL    NOT NULL,
    confidence    REAL    NOT NULL,
    lower_bound   REAL    NOT NULL,
    upper_bound   REAL    NOT NULL,
    var           REAL    NOT NULL,
    cvar          REAL    NOT NULL,
    percentiles   TEXT    NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run   ON trades(run_id, ts);
`

// ancho fijo de nanosegundos: el orden lexicográfico coincide con el cronológico
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveRun persiste el run completo en una sola transacción.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveRun: empty run id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	st := run.Stats
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, started_at, strategy, symbols, initial_capital, total_return, sharpe,
			 max_drawdown, win_rate, final_equity, total_trades, closed_trades, equity_points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTS(run.StartedAt), run.Strategy, strings.Join(run.Symbols, ","),
		st.InitialCapital, st.TotalReturn, st.SharpeRatio, st.MaxDrawdown, st.WinRate,
		st.FinalEquity, st.TotalTrades, st.ClosedTrades, st.EquityPoints,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	if err := insertTrades(ctx, tx, run.ID, run.Trades); err != nil {
		return err
	}
	if err := insertEquity(ctx, tx, run.ID, run.Equity); err != nil {
		return err
	}
	if run.Projection != nil {
		if err := insertProjection(ctx, tx, run.ID, *run.Projection); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

func insertTrades(ctx context.Context, tx *sql.Tx, runID string, trades []domain.Trade) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (id, run_id, symbol, side, price, shares, cash, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare trades: %w", err)
	}
	defer stmt.Close()
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.ID, runID, t.Symbol, string(t.Side), t.Price, t.Shares, t.Cash, formatTS(t.Timestamp),
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertEquity(ctx context.Context, tx *sql.Tx, runID string, points []domain.EquityPoint) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO equity (run_id, ts, equity) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare equity: %w", err)
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, runID, formatTS(p.Timestamp), p.Equity); err != nil {
			return fmt.Errorf("storage.SaveRun: insert equity: %w", err)
		}
	}
	return nil
}

func insertProjection(ctx context.Context, tx *sql.Tx, runID string, p domain.RiskProjection) error {
	pcts, err := json.Marshal(p.Percentiles)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal percentiles: %w", err)
	}
	sm := p.Summary
	regime := 0
	if sm.RegimeAware {
		regime = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections
			(run_id, simulations, days, regime_aware, initial_value, mean_final, median_final,
			 std_final, min_final, max_final, prob_profit, confidence, lower_bound, upper_bound,
			 var, cvar, percentiles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, sm.Simulations, sm.Days, regime, sm.InitialValue, sm.MeanFinal, sm.MedianFinal,
		sm.StdFinal, sm.MinFinal, sm.MaxFinal, sm.ProbabilityOfProfit, p.Confidence,
		p.LowerBound, p.UpperBound, p.VaR, p.CVaR, string(pcts),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert projection: %w", err)
	}
	return nil
}

// ListRuns devuelve los últimos runs con stats y proyección, sin trades ni equity.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.strategy, r.symbols, r.initial_capital, r.total_return,
		       r.sharpe, r.max_drawdown, r.win_rate, r.final_equity, r.total_trades,
		       r.closed_trades, r.equity_points,
		       p.simulations, p.days, p.regime_aware, p.initial_value, p.mean_final,
		       p.median_final, p.std_final, p.min_final, p.max_final, p.prob_profit,
		       p.confidence, p.lower_bound, p.upper_bound, p.var, p.cvar, p.percentiles
		FROM runs r
		LEFT JOIN projections p ON p.run_id = r.id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var (
			r               domain.RunRecord
			startedAt, syms string
			sims, days, reg sql.NullInt64
			iv, mean, med   sql.NullFloat64
			std, lo, hi, pp sql.NullFloat64
			conf, lb, ub    sql.NullFloat64
			vr, cvr         sql.NullFloat64
			pcts            sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &startedAt, &r.Strategy, &syms, &r.Stats.InitialCapital, &r.Stats.TotalReturn,
			&r.Stats.SharpeRatio, &r.Stats.MaxDrawdown, &r.Stats.WinRate, &r.Stats.FinalEquity,
			&r.Stats.TotalTrades, &r.Stats.ClosedTrades, &r.Stats.EquityPoints,
			&sims, &days, &reg, &iv, &mean, &med, &std, &lo, &hi, &pp,
			&conf, &lb, &ub, &vr, &cvr, &pcts,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan: %w", err)
		}
		if r.StartedAt, err = parseTS(startedAt); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: run %s: %w", r.ID, err)
		}
		if syms != "" {
			r.Symbols = strings.Split(syms, ",")
		}
		if sims.Valid {
			p := &domain.RiskProjection{
				Summary: domain.ProjectionSummary{
					Simulations:         int(sims.Int64),
					Days:                int(days.Int64),
					RegimeAware:         reg.Int64 == 1,
					InitialValue:        iv.Float64,
					MeanFinal:           mean.Float64,
					MedianFinal:         med.Float64,
					StdFinal:            std.Float64,
					MinFinal:            lo.Float64,
					MaxFinal:            hi.Float64,
					ProbabilityOfProfit: pp.Float64,
				},
				Confidence: conf.Float64,
				LowerBound: lb.Float64,
				UpperBound: ub.Float64,
				VaR:        vr.Float64,
				CVaR:       cvr.Float64,
			}
			if iv.Float64 > 0 {
				v0 := iv.Float64
				p.Summary.MeanReturn = (mean.Float64 - v0) / v0
				p.Summary.MedianReturn = (med.Float64 - v0) / v0
				p.Summary.BestReturn = (hi.Float64 - v0) / v0
				p.Summary.WorstReturn = (lo.Float64 - v0) / v0
			}
			if pcts.Valid {
				if err := json.Unmarshal([]byte(pcts.String), &p.Percentiles); err != nil {
					return nil, fmt.Errorf("storage.ListRuns: run %s: decode percentiles: %w", r.ID, err)
				}
			}
			r.Projection = p
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTrades devuelve los trades de un run en orden cronológico.
func (s *SQLiteStorage) GetTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, side, price, shares, cash, ts
		FROM trades WHERE run_id = ?
		ORDER BY ts ASC, rowid ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var (
			t      domain.Trade
			side   string
			tsText string
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Price, &t.Shares, &t.Cash, &tsText); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan: %w", err)
		}
		t.Side = domain.TradeSide(side)
		ts, err := parseTS(tsText)
		if err != nil {
			return nil, fmt.Errorf("storage.GetTrades: trade %s: %w", t.ID, err)
		}
		t.Timestamp = ts
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetEquity devuelve la curva de equity de un run.
func (s *SQLiteStorage) GetEquity(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, equity FROM equity WHERE run_id = ? ORDER BY ts ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetEquity: query: %w", err)
	}
	defer rows.Close()

	var out []domain.EquityPoint
	for rows.Next() {
		var (
			p      domain.EquityPoint
			tsText string
		)
		if err := rows.Scan(&tsText, &p.Equity); err != nil {
			return nil, fmt.Errorf("storage.GetEquity: scan: %w", err)
		}
		ts, err := parseTS(tsText)
		if err != nil {
			return nil, fmt.Errorf("storage.GetEquity: %w", err)
		}
		p.Timestamp = ts
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
