package engine

import (
	"errors"
	"fmt"
	"futuresbacktest/types"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

var ErrAxisMismatch = errors.New("weight and price panels are not aligned")

// SimulationResult holds the panels of one simulated run.
type SimulationResult struct {
	Dates     []time.Time
	Symbols   []string
	Rebalance []time.Time
	Prices    *types.Panel

	// TotalValue is the running account value after each day, before trading costs.
	TotalValue []float64

	Legs map[types.Leg]*LegPanels
}

// LegPanels are the daily and hold-period panels of one leg.
type LegPanels struct {
	Position    *types.Panel
	Value       *types.Panel
	Weight      *types.Panel
	Turnover    *types.Panel // unsigned
	GrossProfit *types.Panel // before trading cost
	Profit      *types.Panel

	HoldWeight   *types.Panel
	HoldTurnover *types.Panel
	HoldProfit   *types.Panel
}

// Simulate runs the day-by-day book over aligned weight and price panels.
// The first date always enters the book; weights change only on rebalance dates.
func Simulate(weights, prices *types.Panel, rebalance []time.Time, cfg *SimulationConfig, progress bool) (*SimulationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !sameAxes(weights, prices) {
		return nil, ErrAxisMismatch
	}
	n := weights.Rows()
	if n == 0 || weights.Cols() == 0 {
		return nil, ErrEmptyUniverse
	}
	hold := RebalanceOn(weights.Dates, rebalance)
	isHold := make(map[time.Time]bool, len(hold))
	for _, d := range hold {
		isHold[d] = true
	}

	book := newPortfolio(cfg.capital(), cfg.interest, cfg.mode, weights.Cols())
	position := types.NewPanel(weights.Dates, weights.Symbols)
	value := types.NewPanel(weights.Dates, weights.Symbols)
	weight := types.NewPanel(weights.Dates, weights.Symbols)
	turnover := types.NewPanel(weights.Dates, weights.Symbols)
	profit := types.NewPanel(weights.Dates, weights.Symbols)
	earning := types.NewPanel(weights.Dates, weights.Symbols)
	totalValue := make([]float64, n)

	var bar *progressbar.ProgressBar
	if progress {
		bar = initProgressBar(n)
	}
	for i := 0; i < n; i++ {
		var dayProfit, dayTurnover []types.Cell
		if i == 0 {
			dayProfit, dayTurnover = book.enter(weights.Row(0), prices.Row(0))
			earning.SetRow(0, book.position)
		} else {
			// Yesterday's position earns today's move, rebalance day or not.
			earning.SetRow(i, book.position)
			dayProfit = book.markToMarket(prices.Row(i-1), prices.Row(i))
			if isHold[weights.Dates[i]] {
				dayTurnover = book.rebalance(weights.Row(i), prices.Row(i))
			} else {
				dayTurnover = zeros(weights.Cols())
			}
		}
		pos, val, w := book.snapshot()
		position.SetRow(i, pos)
		value.SetRow(i, val)
		weight.SetRow(i, w)
		turnover.SetRow(i, dayTurnover)
		profit.SetRow(i, dayProfit)
		totalValue[i] = book.total
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	turnover = turnover.Map(abs)
	legs := splitResult(position, value, weight, turnover, profit, earning)
	for _, leg := range legs {
		leg.Profit = chargeCost(leg.GrossProfit, turnover, cfg.rate)
		leg.HoldWeight = leg.Weight.SelectDates(hold)
		leg.HoldTurnover = leg.Turnover.SelectDates(hold)
		leg.HoldProfit = HoldProfit(leg.Position, prices, hold)
	}

	return &SimulationResult{
		Dates:      weights.Dates,
		Symbols:    weights.Symbols,
		Rebalance:  hold,
		Prices:     prices,
		TotalValue: totalValue,
		Legs:       legs,
	}, nil
}

// splitResult cuts the combined book into legs. Turnover, weight and value follow the
// position after the day's rebalance, or the one before it when the book closed the
// symbol; profit follows the position that earned it.
func splitResult(position, value, weight, turnover, profit, earning *types.Panel) map[types.Leg]*LegPanels {
	longPos, shortPos := SplitLegs(position)
	longValue, shortValue := SplitLegsBy(value, position, earning)
	longWeight, shortWeight := SplitLegsBy(weight, position, earning)
	longTurnover, shortTurnover := SplitLegsBy(turnover, position, earning)
	longProfit, shortProfit := SplitLegsBy(profit, earning)

	return map[types.Leg]*LegPanels{
		types.LongShort: {Position: position, Value: value, Weight: weight, Turnover: turnover, GrossProfit: profit},
		types.Long:      {Position: longPos, Value: longValue, Weight: longWeight, Turnover: longTurnover, GrossProfit: longProfit},
		types.Short:     {Position: shortPos, Value: shortValue, Weight: shortWeight, Turnover: shortTurnover, GrossProfit: shortProfit},
	}
}

// chargeCost subtracts |turnover|*rate from profit. Every leg pays the combined book's
// turnover. Cells without a turnover pay nothing.
func chargeCost(profit, turnover *types.Panel, rate float64) *types.Panel {
	out := profit.Clone()
	for i := 0; i < out.Rows(); i++ {
		for j := 0; j < out.Cols(); j++ {
			p, t := out.At(i, j), turnover.At(i, j)
			if p.Valid && t.Valid {
				out.Set(i, j, types.Some(p.Value-abs(t).Value*rate))
			}
		}
	}
	return out
}

func sameAxes(a, b *types.Panel) bool {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return false
	}
	for i := range a.Dates {
		if !a.Dates[i].Equal(b.Dates[i]) {
			return false
		}
	}
	for j := range a.Symbols {
		if a.Symbols[j] != b.Symbols[j] {
			return false
		}
	}
	return true
}

func zeros(n int) []types.Cell {
	out := make([]types.Cell, n)
	for j := range out {
		out[j] = types.Some(0)
	}
	return out
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(fmt.Sprintf("Simulating %d trading days...", maxTicks)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
