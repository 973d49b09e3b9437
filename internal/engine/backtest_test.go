package engine

import (
	"errors"
	"futuresbacktest/types"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var nan = math.NaN()

func TestSimulate_OpposingLegsCancel(t *testing.T) {
	dates := testDates(10)
	prices := make([][]float64, len(dates))
	weights := make([][]float64, len(dates))
	for i := range dates {
		p := 100 * math.Pow(1.01, float64(i))
		prices[i] = []float64{p, p}
		weights[i] = []float64{0.5, -0.5}
	}
	res, err := Simulate(
		mustPanel(t, dates, []string{"A", "B"}, weights),
		mustPanel(t, dates, []string{"A", "B"}, prices),
		dates[:1],
		testSimConfig(types.Simple, types.CrossSection, 0),
		false,
	)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	long := res.Legs[types.Long].Profit
	short := res.Legs[types.Short].Profit
	combined := res.Legs[types.LongShort].Profit
	for i := 1; i < len(dates); i++ {
		if got := long.RowSum(i); got <= 0 {
			t.Errorf("day %d: long profit = %v, want > 0", i, got)
		}
		if got := short.RowSum(i); got >= 0 {
			t.Errorf("day %d: short profit = %v, want < 0", i, got)
		}
		if got := combined.RowSum(i); !approx(got, 0) {
			t.Errorf("day %d: combined profit = %v, want 0", i, got)
		}
	}
}

func TestSimulate_FlatPriceDailyRebalanceHasNoTurnover(t *testing.T) {
	dates := testDates(5)
	res, err := Simulate(
		constPanel(t, dates, []string{"A"}, 1),
		constPanel(t, dates, []string{"A"}, 50),
		dates,
		testSimConfig(types.Simple, types.CrossSection, 0),
		false,
	)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	turnover := res.Legs[types.LongShort].Turnover
	if got := turnover.At(0, 0); !got.Valid || !approx(got.Value, 1000) {
		t.Errorf("entry turnover = %+v, want 1000", got)
	}
	for i := 1; i < len(dates); i++ {
		if got := turnover.At(i, 0); !got.Valid || !approx(got.Value, 0) {
			t.Errorf("day %d: turnover = %+v, want 0", i, got)
		}
	}
}

func TestSimulate_RebalanceBasis(t *testing.T) {
	dates := testDates(3)
	tests := []struct {
		name         string
		interest     types.Interest
		mode         types.SizingMode
		wantTurnover float64
		wantValue    float64
	}{
		{name: "simple sizes off initial capital", interest: types.Simple, mode: types.CrossSection, wantTurnover: 100, wantValue: 500},
		{name: "compound cross section sizes off account", interest: types.Compound, mode: types.CrossSection, wantTurnover: 50, wantValue: 550},
		{name: "compound time series sizes off own value", interest: types.Compound, mode: types.TimeSeries, wantTurnover: 300, wantValue: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Simulate(
				constPanel(t, dates, []string{"A"}, 0.5),
				mustPanel(t, dates, []string{"A"}, [][]float64{{10}, {12}, {12}}),
				[]time.Time{dates[0], dates[2]},
				testSimConfig(tt.interest, tt.mode, 0),
				false,
			)
			if err != nil {
				t.Fatalf("Simulate: %v", err)
			}
			leg := res.Legs[types.LongShort]
			if got := leg.Turnover.At(2, 0).Value; !approx(got, tt.wantTurnover) {
				t.Errorf("turnover = %v, want %v", got, tt.wantTurnover)
			}
			if got := leg.Value.At(2, 0).Value; !approx(got, tt.wantValue) {
				t.Errorf("value = %v, want %v", got, tt.wantValue)
			}
			if got := leg.Position.At(2, 0).Value; !approx(got, tt.wantValue/12) {
				t.Errorf("position = %v, want %v", got, tt.wantValue/12)
			}
		})
	}
}

func TestSimulate_ShortValueMovesBySignedProfit(t *testing.T) {
	dates := testDates(2)
	res, err := Simulate(
		constPanel(t, dates, []string{"A"}, -1),
		mustPanel(t, dates, []string{"A"}, [][]float64{{10}, {11}}),
		dates[:1],
		testSimConfig(types.Simple, types.CrossSection, 0),
		false,
	)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	leg := res.Legs[types.LongShort]
	if got := leg.GrossProfit.At(1, 0).Value; !approx(got, -100) {
		t.Errorf("profit = %v, want -100", got)
	}
	if got := leg.Value.At(1, 0).Value; !approx(got, -900) {
		t.Errorf("value = %v, want -900", got)
	}
	if got := res.TotalValue[1]; !approx(got, 900) {
		t.Errorf("total value = %v, want 900", got)
	}
}

func TestSimulate_EntryLeavesMissingWeightsAbsent(t *testing.T) {
	dates := testDates(2)
	res, err := Simulate(
		mustPanel(t, dates, []string{"A", "B"}, [][]float64{{1, nan}, {1, nan}}),
		constPanel(t, dates, []string{"A", "B"}, 10),
		dates[:1],
		testSimConfig(types.Simple, types.CrossSection, 0),
		false,
	)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	leg := res.Legs[types.LongShort]
	if got := leg.GrossProfit.At(0, 0); !got.Valid || got.Value != 0 {
		t.Errorf("entry profit A = %+v, want 0", got)
	}
	if got := leg.GrossProfit.At(0, 1); got.Valid {
		t.Errorf("entry profit B = %+v, want absent", got)
	}
	if got := leg.Position.At(1, 1); got.Valid {
		t.Errorf("position B = %+v, want absent", got)
	}
}

func TestSimulate_ChargesTradingCost(t *testing.T) {
	dates := testDates(2)
	res, err := Simulate(
		constPanel(t, dates, []string{"A"}, 1),
		constPanel(t, dates, []string{"A"}, 10),
		dates[:1],
		testSimConfig(types.Simple, types.CrossSection, 0.001),
		false,
	)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for _, leg := range types.Legs {
		if got := res.Legs[leg].Profit.At(0, 0).Value; !approx(got, -1) {
			t.Errorf("%s net entry profit = %v, want -1", leg, got)
		}
		if got := res.Legs[leg].GrossProfit.At(0, 0).Value; got != 0 {
			t.Errorf("%s gross entry profit = %v, want 0", leg, got)
		}
	}
}

func TestSimulate_LegsPayCombinedTurnoverCost(t *testing.T) {
	dates := testDates(2)
	weights := mustPanel(t, dates, []string{"A", "B"}, [][]float64{{0.5, -0.5}, {0.5, -0.5}})
	res, err := Simulate(
		weights,
		constPanel(t, dates, []string{"A", "B"}, 10),
		dates[:1],
		testSimConfig(types.Simple, types.CrossSection, 0.01),
		false,
	)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	tests := []struct {
		leg  types.Leg
		want []float64
	}{
		{types.LongShort, []float64{-5, -5}},
		{types.Long, []float64{-5, -5}},
		{types.Short, []float64{-5, -5}},
	}
	for _, tt := range tests {
		t.Run(string(tt.leg), func(t *testing.T) {
			profit := res.Legs[tt.leg].Profit
			for j, want := range tt.want {
				if got := profit.At(0, j).Value; !approx(got, want) {
					t.Errorf("entry profit %s = %v, want %v", profit.Symbols[j], got, want)
				}
			}
		})
	}
}

func TestSimulate_NetProfitChargesCombinedTurnover(t *testing.T) {
	_, weights, prices := mixedBook(t)
	rate := 0.0003
	res, err := Simulate(weights, prices, PeriodCalendar(weights.Dates, 2, 0), testSimConfig(types.Compound, types.TimeSeries, rate), false)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	turnover := res.Legs[types.LongShort].Turnover
	for _, leg := range types.Legs {
		panels := res.Legs[leg]
		for i := 0; i < turnover.Rows(); i++ {
			for j := 0; j < turnover.Cols(); j++ {
				gross, net, traded := panels.GrossProfit.At(i, j), panels.Profit.At(i, j), turnover.At(i, j)
				if !gross.Valid || !traded.Valid {
					continue
				}
				if want := gross.Value - traded.Value*rate; !approx(net.Value, want) {
					t.Errorf("%s (%d,%d): net = %v, want %v", leg, i, j, net.Value, want)
				}
			}
		}
	}
}

func TestSimulate_CapitalConservation(t *testing.T) {
	dates, weights, prices := mixedBook(t)
	for _, interest := range []types.Interest{types.Simple, types.Compound} {
		t.Run(string(interest), func(t *testing.T) {
			res, err := Simulate(weights, prices, PeriodCalendar(dates, 2, 0), testSimConfig(interest, types.CrossSection, 0.0003), false)
			if err != nil {
				t.Fatalf("Simulate: %v", err)
			}
			profit := res.Legs[types.LongShort].GrossProfit
			want := 1000.0
			for i := range dates {
				want += profit.RowSum(i)
				if !approx(res.TotalValue[i], want) {
					t.Errorf("day %d: total value = %v, want %v", i, res.TotalValue[i], want)
				}
			}
		})
	}
}

func TestSimulate_LegAdditivity(t *testing.T) {
	_, weights, prices := mixedBook(t)
	res, err := Simulate(weights, prices, PeriodCalendar(weights.Dates, 2, 0), testSimConfig(types.Compound, types.TimeSeries, 0.0003), false)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	combined, long, short := res.Legs[types.LongShort], res.Legs[types.Long], res.Legs[types.Short]
	panels := []struct {
		name             string
		all, long, short *types.Panel
	}{
		{"gross profit", combined.GrossProfit, long.GrossProfit, short.GrossProfit},
		{"turnover", combined.Turnover, long.Turnover, short.Turnover},
		{"value", combined.Value, long.Value, short.Value},
		{"hold profit", combined.HoldProfit, long.HoldProfit, short.HoldProfit},
	}
	for _, p := range panels {
		for i := 0; i < p.all.Rows(); i++ {
			for j := 0; j < p.all.Cols(); j++ {
				all, l, s := p.all.At(i, j), p.long.At(i, j), p.short.At(i, j)
				if all.Valid != l.Valid || all.Valid != s.Valid {
					t.Fatalf("%s (%d,%d): presence differs: %+v %+v %+v", p.name, i, j, all, l, s)
				}
				if all.Valid && !approx(all.Value, l.Value+s.Value) {
					t.Errorf("%s (%d,%d): %v != %v + %v", p.name, i, j, all.Value, l.Value, s.Value)
				}
			}
		}
	}
}

func TestSimulate_HoldProfitMatchesDailyProfit(t *testing.T) {
	dates, weights, prices := mixedBook(t)
	hold := []time.Time{dates[0], dates[3], dates[5]}
	res, err := Simulate(weights, prices, hold, testSimConfig(types.Simple, types.CrossSection, 0), false)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	for _, legType := range types.Legs {
		leg := res.Legs[legType]
		bounds := []int{0, 3, 5, len(dates) - 1}
		for k := 0; k < len(hold); k++ {
			for j := range weights.Symbols {
				got := leg.HoldProfit.At(k, j)
				var daily float64
				for i := bounds[k] + 1; i <= bounds[k+1]; i++ {
					c := leg.GrossProfit.At(i, j)
					if c.Valid != got.Valid {
						t.Errorf("%s day %d symbol %d: daily presence %v, hold presence %v", legType, i, j, c.Valid, got.Valid)
					}
					daily += c.Value
				}
				if got.Valid && !approx(got.Value, daily) {
					t.Errorf("%s hold %d symbol %d: hold profit = %+v, daily sum = %v", legType, k, j, got, daily)
				}
			}
		}
	}
}

func TestSimulate_TurnoverIsNonNegative(t *testing.T) {
	_, weights, prices := mixedBook(t)
	res, err := Simulate(weights, prices, PeriodCalendar(weights.Dates, 1, 0), testSimConfig(types.Compound, types.CrossSection, 0), false)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for leg, panels := range res.Legs {
		for _, p := range []*types.Panel{panels.Turnover, panels.HoldTurnover} {
			for i := 0; i < p.Rows(); i++ {
				for j := 0; j < p.Cols(); j++ {
					if c := p.At(i, j); c.Valid && c.Value < 0 {
						t.Errorf("%s (%d,%d): turnover %v < 0", leg, i, j, c.Value)
					}
				}
			}
		}
	}
}

func TestSimulate_Errors(t *testing.T) {
	dates := testDates(3)
	weights := constPanel(t, dates, []string{"A"}, 1)
	prices := constPanel(t, dates, []string{"A"}, 10)

	tests := []struct {
		name    string
		cfg     *SimulationConfig
		prices  *types.Panel
		wantErr error
	}{
		{
			name:    "unknown interest",
			cfg:     NewSimulationConfig(decimal.NewFromInt(1000), 0, types.Interest("weekly"), types.CrossSection),
			prices:  prices,
			wantErr: types.ErrUnsupportedInterest,
		},
		{
			name:    "unknown mode",
			cfg:     NewSimulationConfig(decimal.NewFromInt(1000), 0, types.Simple, types.SizingMode("sector")),
			prices:  prices,
			wantErr: types.ErrUnsupportedSizing,
		},
		{
			name:    "zero capital",
			cfg:     NewSimulationConfig(decimal.Zero, 0, types.Simple, types.CrossSection),
			prices:  prices,
			wantErr: ErrInvalidCapital,
		},
		{
			name:    "negative rate",
			cfg:     NewSimulationConfig(decimal.NewFromInt(1000), -0.1, types.Simple, types.CrossSection),
			prices:  prices,
			wantErr: ErrNegativeRate,
		},
		{
			name:    "misaligned panels",
			cfg:     testSimConfig(types.Simple, types.CrossSection, 0),
			prices:  constPanel(t, dates, []string{"B"}, 10),
			wantErr: ErrAxisMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(weights, tt.prices, dates, tt.cfg, false)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Helper functions
func testDates(n int) []time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

func mustPanel(t *testing.T, dates []time.Time, symbols []string, values [][]float64) *types.Panel {
	t.Helper()
	p, err := types.NewPanelFromValues(dates, symbols, values)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	return p
}

func constPanel(t *testing.T, dates []time.Time, symbols []string, v float64) *types.Panel {
	t.Helper()
	values := make([][]float64, len(dates))
	for i := range values {
		values[i] = make([]float64, len(symbols))
		for j := range values[i] {
			values[i][j] = v
		}
	}
	return mustPanel(t, dates, symbols, values)
}

// mixedBook is an eight-day, three-symbol book with sign flips, a closed symbol and a
// missing weight.
func mixedBook(t *testing.T) ([]time.Time, *types.Panel, *types.Panel) {
	t.Helper()
	dates := testDates(8)
	symbols := []string{"A", "B", "C"}
	weights := mustPanel(t, dates, symbols, [][]float64{
		{0.4, -0.3, 0.3},
		{0.4, -0.3, 0.3},
		{-0.2, 0.5, 0},
		{-0.2, 0.5, 0},
		{0.3, nan, -0.4},
		{0.3, nan, -0.4},
		{0.5, 0.2, -0.3},
		{0.5, 0.2, -0.3},
	})
	prices := mustPanel(t, dates, symbols, [][]float64{
		{100, 50, 20},
		{102, 49, 21},
		{101, 51, 22},
		{99, 52, 21.5},
		{103, 50, 21},
		{104, 48, 20.5},
		{102, 49, 21},
		{105, 50, 22},
	})
	return dates, weights, prices
}

func testSimConfig(interest types.Interest, mode types.SizingMode, rate float64) *SimulationConfig {
	return NewSimulationConfig(decimal.NewFromInt(1000), rate, interest, mode)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}
