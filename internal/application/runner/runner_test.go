package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/revertbot/internal/adapters/synthetic"
	"github.com/alejandrodnm/revertbot/internal/application/backtest"
	"github.com/alejandrodnm/revertbot/internal/application/runner"
	"github.com/alejandrodnm/revertbot/internal/domain"
	"github.com/alejandrodnm/revertbot/internal/strategy"
)

// --- mocks ---

type mockBars struct {
	bars []domain.Bar
	err  error
	req  domain.BarRequest
}

func (m *mockBars) FetchBars(_ context.Context, req domain.BarRequest) ([]domain.Bar, error) {
	m.req = req
	return m.bars, m.err
}

type mockStorage struct {
	saved []domain.RunRecord
	err   error
}

func (m *mockStorage) SaveRun(_ context.Context, run domain.RunRecord) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, run)
	return nil
}

func (m *mockStorage) ListRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return m.saved[:limit], nil
}

func (m *mockStorage) GetTrades(_ context.Context, id string) ([]domain.Trade, error) {
	for _, r := range m.saved {
		if r.ID == id {
			return r.Trades, nil
		}
	}
	return nil, nil
}

func (m *mockStorage) GetEquity(_ context.Context, id string) ([]domain.EquityPoint, error) {
	for _, r := range m.saved {
		if r.ID == id {
			return r.Equity, nil
		}
	}
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

type mockReporter struct {
	reported []domain.RunRecord
}

func (m *mockReporter) Report(_ context.Context, run domain.RunRecord) error {
	m.reported = append(m.reported, run)
	return nil
}

// --- helpers ---

// wednesday is a fixed weekday so lookback windows are reproducible.
var wednesday = time.Date(2024, 3, 13, 21, 0, 0, 0, time.UTC)

func projection() runner.ProjectionConfig {
	return runner.ProjectionConfig{
		Enabled:     true,
		Simulations: 200,
		Days:        20,
		Seed:        7,
		Workers:     2,
		Confidence:  0.95,
		VolWindow:   5,
	}
}

func newEngine() *backtest.Engine {
	return backtest.New(strategy.NewCrossover(3, 8), backtest.Config{InitialCapital: 10_000})
}

// --- tests ---

func TestRunOnce_FullPipeline(t *testing.T) {
	store := &mockStorage{}
	rep := &mockReporter{}
	cfg := runner.Config{
		Symbols:      []string{"SPY", "QQQ"},
		LookbackDays: 90,
		Timeframe:    domain.TimeframeDay,
		End:          wednesday,
		MonteCarlo:   projection(),
	}
	r := runner.New(cfg, synthetic.NewProvider(1, 100, 0), newEngine(), store, rep)

	run, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, strategy.NameCrossover, run.Strategy)
	assert.Equal(t, []string{"QQQ", "SPY"}, run.Symbols)
	assert.False(t, run.Stats.Empty())
	require.NotNil(t, run.Projection)
	assert.Equal(t, 200, run.Projection.Summary.Simulations)
	assert.InDelta(t, run.Stats.FinalEquity, run.Projection.Summary.InitialValue, 1e-9)
	assert.LessOrEqual(t, run.Projection.LowerBound, run.Projection.UpperBound)

	require.Len(t, store.saved, 1)
	assert.Equal(t, run.ID, store.saved[0].ID)
	require.Len(t, rep.reported, 1)
}

func TestRunOnce_RegimeAwareProjection(t *testing.T) {
	cfg := runner.Config{
		Symbols:      []string{"SPY"},
		LookbackDays: 120,
		Timeframe:    domain.TimeframeDay,
		End:          wednesday,
		MonteCarlo:   projection(),
	}
	cfg.MonteCarlo.RegimeAware = true
	r := runner.New(cfg, synthetic.NewProvider(3, 100, 0), newEngine(), nil, &mockReporter{})

	run, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run.Projection)
	assert.True(t, run.Projection.Summary.RegimeAware)
}

func TestRunOnce_LookbackRequest(t *testing.T) {
	bars := &mockBars{}
	cfg := runner.Config{Symbols: []string{"SPY"}, LookbackDays: 5, End: wednesday}
	r := runner.New(cfg, bars, newEngine(), nil, &mockReporter{})

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TimeframeMinute, bars.req.Timeframe)
	assert.Equal(t, []string{"SPY"}, bars.req.Symbols)
	assert.Equal(t, time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC), bars.req.Start)
	assert.Equal(t, time.Date(2024, 3, 13, 20, 0, 0, 0, time.UTC), bars.req.End)
}

func TestRunOnce_NoBarsPreservesCapital(t *testing.T) {
	rep := &mockReporter{}
	cfg := runner.Config{Symbols: []string{"SPY"}, LookbackDays: 5, End: wednesday, MonteCarlo: projection()}
	r := runner.New(cfg, &mockBars{}, newEngine(), nil, rep)

	run, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, run.Stats.Empty())
	assert.Nil(t, run.Projection)
	assert.Empty(t, run.Trades)
	require.Len(t, rep.reported, 1)
}

func TestRunOnce_FetchError(t *testing.T) {
	rep := &mockReporter{}
	cfg := runner.Config{Symbols: []string{"SPY"}, LookbackDays: 5, End: wednesday}
	r := runner.New(cfg, &mockBars{err: errors.New("boom")}, newEngine(), nil, rep)

	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, rep.reported)
}

func TestRunOnce_StorageErrorIsNotFatal(t *testing.T) {
	rep := &mockReporter{}
	cfg := runner.Config{
		Symbols:      []string{"SPY"},
		LookbackDays: 20,
		Timeframe:    domain.TimeframeDay,
		End:          wednesday,
	}
	store := &mockStorage{err: errors.New("disk full")}
	r := runner.New(cfg, synthetic.NewProvider(1, 100, 0), newEngine(), store, rep)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.reported, 1)
}

func TestRunOnce_DryRunSkipsStorage(t *testing.T) {
	store := &mockStorage{}
	cfg := runner.Config{
		Symbols:      []string{"SPY"},
		LookbackDays: 20,
		Timeframe:    domain.TimeframeDay,
		End:          wednesday,
		DryRun:       true,
	}
	r := runner.New(cfg, synthetic.NewProvider(1, 100, 0), newEngine(), store, &mockReporter{})

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.saved)
}

func TestRunOnce_ShortHistorySkipsProjection(t *testing.T) {
	cfg := runner.Config{
		Symbols:      []string{"SPY"},
		LookbackDays: 0,
		Timeframe:    domain.TimeframeDay,
		End:          wednesday,
		MonteCarlo:   projection(),
	}
	r := runner.New(cfg, synthetic.NewProvider(1, 100, 0), newEngine(), nil, &mockReporter{})

	run, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, run.Stats.Empty())
	assert.Nil(t, run.Projection)
}

func TestProject_ShortHistory(t *testing.T) {
	r := runner.New(runner.Config{MonteCarlo: projection()}, &mockBars{}, newEngine(), nil, &mockReporter{})
	eq := []domain.EquityPoint{{Timestamp: wednesday, Equity: 100}}

	_, err := r.Project(context.Background(), eq, 100)
	assert.ErrorIs(t, err, runner.ErrShortHistory)
}

func TestHistory(t *testing.T) {
	r := runner.New(runner.Config{}, &mockBars{}, newEngine(), nil, &mockReporter{})
	_, err := r.History(context.Background(), 5)
	assert.Error(t, err)

	store := &mockStorage{saved: []domain.RunRecord{{ID: "a"}, {ID: "b"}}}
	r = runner.New(runner.Config{}, &mockBars{}, newEngine(), store, &mockReporter{})
	runs, err := r.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].ID)
}

func TestDetail(t *testing.T) {
	store := &mockStorage{}
	cfg := runner.Config{
		Symbols:      []string{"SPY"},
		LookbackDays: 60,
		Timeframe:    domain.TimeframeDay,
		End:          wednesday,
	}
	r := runner.New(cfg, synthetic.NewProvider(1, 100, 0), newEngine(), store, &mockReporter{})
	run, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	// query-only: no provider, no engine
	q := runner.New(runner.Config{}, nil, nil, store, &mockReporter{})
	trades, equity, err := q.Detail(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Trades, trades)
	assert.Equal(t, run.Equity, equity)
	assert.NotEmpty(t, equity)

	_, _, err = q.Detail(context.Background(), "missing")
	assert.ErrorIs(t, err, runner.ErrRunNotFound)

	_, _, err = runner.New(runner.Config{}, nil, nil, nil, &mockReporter{}).Detail(context.Background(), run.ID)
	assert.Error(t, err)
}
