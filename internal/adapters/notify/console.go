package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

const defaultRecentTrades = 10

// Console implementa ports.Reporter.
type Console struct {
	out    io.Writer
	trades int  // trades recientes a mostrar
	table  bool // false = una línea por run
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(trades int, table bool) *Console {
	return NewConsoleWriter(os.Stdout, trades, table)
}

// NewConsoleWriter crea un reporter sobre cualquier writer (tests).
func NewConsoleWriter(w io.Writer, trades int, table bool) *Console {
	if trades < 0 {
		trades = defaultRecentTrades
	}
	return &Console{out: w, trades: trades, table: table}
}

// Report imprime el resultado en el modo configurado.
func (c *Console) Report(_ context.Context, run domain.RunRecord) error {
	if run.Stats.Empty() {
		fmt.Fprintf(c.out, "[%s] %s: no equity data (symbols: %s)\n",
			run.StartedAt.Format("2006-01-02 15:04"), run.Strategy, strings.Join(run.Symbols, ","))
		return nil
	}
	if !c.table {
		c.printCompact(run)
		return nil
	}

	fmt.Fprintf(c.out, "\n=== BACKTEST %s: %s on %s ===\n",
		shortID(run.ID), run.Strategy, strings.Join(run.Symbols, ", "))
	c.printStats(run.Stats)
	c.printTrades(run.Trades)
	if run.Projection != nil {
		c.printProjection(*run.Projection)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(run domain.RunRecord) {
	m := run.Stats.Map()
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s →", run.StartedAt.Format("15:04:05"), run.Strategy, strings.Join(run.Symbols, ","))
	for _, k := range domain.StatsKeys {
		fmt.Fprintf(&sb, " %s:%s", abbrev(k), m[k])
	}
	if p := run.Projection; p != nil {
		fmt.Fprintf(&sb, " | MC VaR%.0f:%s CVaR:%s P(profit):%.1f%%",
			p.Confidence*100, money(p.VaR), money(p.CVaR), p.Summary.ProbabilityOfProfit*100)
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printStats(s domain.PerformanceStats) {
	m := s.Map()
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	for _, k := range domain.StatsKeys {
		table.Append(k, m[k])
	}
	table.Append("Initial Capital", money(s.InitialCapital))
	table.Append("Closed Trades", fmt.Sprintf("%d", s.ClosedTrades))
	table.Render()
}

// printTrades imprime los últimos trades del run.
func (c *Console) printTrades(trades []domain.Trade) {
	if c.trades == 0 || len(trades) == 0 {
		return
	}
	recent := trades
	if len(recent) > c.trades {
		recent = recent[len(recent)-c.trades:]
	}
	fmt.Fprintf(c.out, "\nLast %d of %d trades\n", len(recent), len(trades))
	c.tradeTable(recent)
}

func (c *Console) tradeTable(trades []domain.Trade) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Symbol", "Side", "Price", "Shares", "Cash")
	for _, t := range trades {
		table.Append(
			t.Timestamp.Format("2006-01-02 15:04"),
			t.Symbol,
			strings.ToUpper(string(t.Side)),
			money(t.Price),
			decimal.NewFromFloat(t.Shares).StringFixed(4),
			money(t.Cash),
		)
	}
	table.Render()
}

func (c *Console) printProjection(p domain.RiskProjection) {
	mode := "standard"
	if p.Summary.RegimeAware {
		mode = "regime-aware"
	}
	fmt.Fprintf(c.out, "\nMonte Carlo (%s, %d paths × %d days from %s)\n",
		mode, p.Summary.Simulations, p.Summary.Days, money(p.Summary.InitialValue))

	m := p.Summary.Map()
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	for _, k := range domain.ProjectionKeys {
		table.Append(k, m[k])
	}
	for _, k := range sortedPercentiles(p.Percentiles) {
		table.Append("Percentile "+k, money(p.Percentiles[k]))
	}
	conf := fmt.Sprintf("%.0f%%", p.Confidence*100)
	table.Append(conf+" Interval", money(p.LowerBound)+" – "+money(p.UpperBound))
	table.Append("VaR "+conf, money(p.VaR))
	table.Append("CVaR "+conf, money(p.CVaR))
	table.Render()
}

// History imprime una tabla con los runs guardados.
func (c *Console) History(runs []domain.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no runs stored")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Started", "Strategy", "Symbols", "Return", "Sharpe", "MaxDD", "Trades", "VaR")
	for _, r := range runs {
		m := r.Stats.Map()
		v := "-"
		if r.Projection != nil {
			v = money(r.Projection.VaR)
		}
		table.Append(
			shortID(r.ID),
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Strategy,
			strings.Join(r.Symbols, ","),
			m["Total Return"],
			m["Sharpe Ratio"],
			m["Max Drawdown"],
			fmt.Sprintf("%d", r.Stats.TotalTrades),
			v,
		)
	}
	table.Render()
}

// RunDetail imprime todos los trades de un run guardado y su equity al
// cierre de cada día.
func (c *Console) RunDetail(runID string, trades []domain.Trade, equity []domain.EquityPoint) {
	fmt.Fprintf(c.out, "\n=== RUN %s: %d trades, %d equity points ===\n", runID, len(trades), len(equity))
	if len(trades) > 0 {
		c.tradeTable(trades)
	}
	daily := dailyCloses(equity)
	if len(daily) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\nDaily equity (%d days)\n", len(daily))
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Equity")
	for _, p := range daily {
		table.Append(p.Timestamp.UTC().Format("2006-01-02"), money(p.Equity))
	}
	table.Render()
}

// dailyCloses se queda con el último punto de cada día UTC.
func dailyCloses(equity []domain.EquityPoint) []domain.EquityPoint {
	var out []domain.EquityPoint
	for _, p := range equity {
		if n := len(out); n > 0 && sameDay(out[n-1].Timestamp, p.Timestamp) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// money formatea importes redondeando en decimal, sin artefactos de float.
func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func sortedPercentiles(p map[string]float64) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return percentileValue(keys[i]) < percentileValue(keys[j])
	})
	return keys
}

func percentileValue(key string) float64 {
	d, err := decimal.NewFromString(strings.TrimSuffix(key, "th"))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func abbrev(key string) string {
	switch key {
	case "Total Return":
		return "ret"
	case "Sharpe Ratio":
		return "sharpe"
	case "Max Drawdown":
		return "dd"
	case "Win Rate":
		return "win"
	case "Final Equity":
		return "eq"
	case "Total Trades":
		return "trades"
	}
	return key
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
