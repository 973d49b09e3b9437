package engine

import (
	"context"
	"errors"
	"futuresbacktest/types"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errStore = errors.New("store unavailable")

func TestEngineRun_WritesReports(t *testing.T) {
	weights, prices := phaseBook(t, 12)
	db := &mockDb{weights: weights, prices: prices, industries: types.IndustryMap{"A": "metal"}}
	dir := t.TempDir()
	e := testEngine(db, NewRebalanceConfig(types.RebalancePeriod, 3, nil), nil, NewReportingConfig(dir, true, true, false))

	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID != e.RunID() {
		t.Fatalf("run id = %s, want %s", res.RunID, e.RunID())
	}

	out := filepath.Join(dir, e.RunID().String())
	for _, name := range []string{
		"metrics_long_short_portfolio.csv",
		"metrics_short_industry.csv",
		"curve_long_symbol.csv",
		"report.xlsx",
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if db.weightCalls != 1 || db.priceCalls != 1 || db.industryCalls != 1 {
		t.Fatalf("store calls = %d/%d/%d, want 1/1/1", db.weightCalls, db.priceCalls, db.industryCalls)
	}
}

func TestEngineRun_WithoutIndustryGroup(t *testing.T) {
	weights, prices := phaseBook(t, 6)
	db := &mockDb{weights: weights, prices: prices}
	feed := NewDataFeedConfig("momentum", types.PriceQuery{Contract: "main", Field: "close"}, "", "", time.Time{}, time.Time{})
	e := NewEngine(db, feed, testSimConfig(types.Simple, types.CrossSection, 0), nil, NewRebalanceConfig(types.RebalancePeriod, 2, nil), nil, nil)

	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if db.industryCalls != 0 {
		t.Fatalf("industry calls = %d, want 0", db.industryCalls)
	}
	if rows := res.Report.Metrics[types.LongShort].Industry; len(rows) != 0 {
		t.Fatalf("industry rows = %d, want 0", len(rows))
	}
}

func TestEngineRun_StoreErrors(t *testing.T) {
	weights, prices := phaseBook(t, 4)
	tests := []struct {
		name string
		db   *mockDb
	}{
		{name: "weights", db: &mockDb{weightErr: errStore}},
		{name: "prices", db: &mockDb{weights: weights, priceErr: errStore}},
		{name: "industries", db: &mockDb{weights: weights, prices: prices, industryErr: errStore}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(tt.db, NewRebalanceConfig(types.RebalancePeriod, 1, nil), nil, nil)
			if _, err := e.Run(context.Background()); !errors.Is(err, errStore) {
				t.Fatalf("err = %v, want %v", err, errStore)
			}
		})
	}
}

func TestEngineRun_RejectsConfigBeforeLoading(t *testing.T) {
	db := &mockDb{}
	e := NewEngine(db, testFeed(time.Time{}, time.Time{}), NewSimulationConfig(decimal.NewFromInt(1000), 0, types.Interest("daily"), types.CrossSection), nil, NewRebalanceConfig(types.RebalancePeriod, 1, nil), nil, nil)

	if _, err := e.Run(context.Background()); !errors.Is(err, types.ErrUnsupportedInterest) {
		t.Fatalf("err = %v, want %v", err, types.ErrUnsupportedInterest)
	}
	if db.weightCalls+db.priceCalls+db.industryCalls != 0 {
		t.Fatalf("store was queried before validation")
	}
}

func TestEngineBacktest_NextOpenLeadsPrices(t *testing.T) {
	dates := testDates(3)
	weights := constPanel(t, dates, []string{"A"}, 1)
	prices := mustPanel(t, dates, []string{"A"}, [][]float64{{10}, {11}, {12}})
	e := testEngine(&mockDb{}, NewRebalanceConfig(types.RebalancePeriod, 1, nil), NewExecutionConfig(true, false, 1), nil)

	res, err := e.Backtest(context.Background(), weights, prices, nil)
	if err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	executed := res.Phases[0].Simulation.Prices
	if got := executed.At(0, 0).Value; got != 11 {
		t.Fatalf("first execution price = %v, want 11", got)
	}
	if executed.At(2, 0).Valid {
		t.Fatalf("last execution price = %+v, want absent", executed.At(2, 0))
	}
}

func TestEngineBacktest_WindowsAlignedDates(t *testing.T) {
	weights, prices := phaseBook(t, 10)
	dates := weights.Dates
	e := NewEngine(&mockDb{}, testFeed(dates[2], dates[6]), testSimConfig(types.Simple, types.CrossSection, 0), nil, NewRebalanceConfig(types.RebalancePeriod, 2, nil), nil, zap.NewNop())

	res, err := e.Backtest(context.Background(), weights, prices, nil)
	if err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	assertDates(t, res.Alignment.Dates, dates[2:7])
	assertDates(t, res.Alignment.DroppedDates, append(append([]time.Time(nil), dates[:2]...), dates[7:]...))
	assertDates(t, res.Phases[0].Rebalance, []time.Time{dates[2], dates[4], dates[6]})
}

// Helper functions
func testFeed(start, end time.Time) *DataFeedConfig {
	return NewDataFeedConfig("momentum", types.PriceQuery{Contract: "main", Field: "close", RollDays: 1}, "sw", "level1", start, end)
}

func testEngine(db dataStore, rebalance *RebalanceConfig, exec *ExecutionConfig, reporting *ReportingConfig) *Engine {
	return NewEngine(db, testFeed(time.Time{}, time.Time{}), testSimConfig(types.Simple, types.CrossSection, 0.0003), exec, rebalance, reporting, zap.NewNop())
}

type mockDb struct {
	mu sync.Mutex

	weights    *types.Panel
	prices     *types.Panel
	industries types.IndustryMap

	weightErr   error
	priceErr    error
	industryErr error

	weightCalls   int
	priceCalls    int
	industryCalls int
}

func (m *mockDb) GetPrices(query types.PriceQuery, ctx context.Context) (*types.Panel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceCalls++
	return m.prices, m.priceErr
}

func (m *mockDb) GetWeights(strategy string, ctx context.Context) (*types.Panel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weightCalls++
	return m.weights, m.weightErr
}

func (m *mockDb) GetIndustryMap(group, name string, ctx context.Context) (types.IndustryMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.industryCalls++
	return m.industries, m.industryErr
}
