package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/revertbot/internal/domain"
)

// MergeMode selects how per-symbol equity curves are consolidated when
// symbols do not report at the same instants.
type MergeMode string

const (
	// MergeForwardFill sums, at every timestamp, each symbol's last known
	// equity (its allocation before its first bar).
	MergeForwardFill MergeMode = "forward_fill"
	// MergeSumAvailable sums only the symbols with a point at that exact timestamp.
	MergeSumAvailable MergeMode = "sum_available"
)

// ParseMergeMode validates a mode name. Empty means forward fill.
func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(s) {
	case "", MergeForwardFill:
		return MergeForwardFill, nil
	case MergeSumAvailable:
		return MergeSumAvailable, nil
	}
	return "", fmt.Errorf("backtest: unknown merge mode %q", s)
}

func mergeSymbols(fromBars, extra []string) []string {
	seen := make(map[string]bool, len(fromBars)+len(extra))
	var out []string
	for _, s := range append(append([]string{}, fromBars...), extra...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// mergeTrades concatenates worker trades in symbol order and sorts them
// stably by timestamp.
func mergeTrades(results []SymbolResult) []domain.Trade {
	var out []domain.Trade
	for _, r := range results {
		out = append(out, r.Trades...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// mergeEquity consolidates per-symbol curves into one point per distinct
// timestamp. Symbols without any point are ignored by sum_available and
// contribute their idle allocation under forward_fill.
func mergeEquity(results []SymbolResult, mode MergeMode) []domain.EquityPoint {
	stamps := distinctTimestamps(results)
	if len(stamps) == 0 {
		return nil
	}
	totals := make([]float64, len(stamps))

	for _, r := range results {
		last := r.Allocation
		j := 0
		for k, ts := range stamps {
			reported := false
			for j < len(r.Equity) && !r.Equity[j].Timestamp.After(ts) {
				last = r.Equity[j].Equity
				reported = r.Equity[j].Timestamp.Equal(ts)
				j++
			}
			if mode == MergeSumAvailable && !reported {
				continue
			}
			totals[k] += last
		}
	}

	out := make([]domain.EquityPoint, len(stamps))
	for k, ts := range stamps {
		out[k] = domain.EquityPoint{Timestamp: ts, Equity: totals[k]}
	}
	return out
}

func distinctTimestamps(results []SymbolResult) []time.Time {
	var all []time.Time
	for _, r := range results {
		for _, p := range r.Equity {
			all = append(all, p.Timestamp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	out := all[:0]
	for i, ts := range all {
		if i == 0 || !ts.Equal(out[len(out)-1]) {
			out = append(out, ts)
		}
	}
	return out
}
