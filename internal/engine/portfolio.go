package engine

import (
	"futuresbacktest/types"
	"math"
)

// portfolio is the simulator's book between two trading days.
type portfolio struct {
	initialValue float64
	interest     types.Interest
	mode         types.SizingMode

	position []types.Cell // units held per symbol
	value    []types.Cell // signed notional per symbol
	weight   []types.Cell // weights of the last rebalance
	total    float64      // running account value
}

func newPortfolio(initialValue float64, interest types.Interest, mode types.SizingMode, symbols int) *portfolio {
	return &portfolio{
		initialValue: initialValue,
		interest:     interest,
		mode:         mode,
		position:     make([]types.Cell, symbols),
		value:        make([]types.Cell, symbols),
		weight:       make([]types.Cell, symbols),
	}
}

// enter opens the first book. Profit is zero where a weight exists; turnover is
// the signed entry notional.
func (p *portfolio) enter(weights, prices []types.Cell) (profit, turnover []types.Cell) {
	profit = make([]types.Cell, len(weights))
	turnover = make([]types.Cell, len(weights))
	for j, w := range weights {
		v := mul(w, types.Some(p.initialValue))
		p.value[j] = v
		p.position[j] = div(v, prices[j])
		p.weight[j] = w
		turnover[j] = v
		if w.Valid {
			profit[j] = types.Some(0)
		}
	}
	p.total = p.initialValue + types.Sum(profit)
	return profit, turnover
}

// markToMarket books the P&L of the held position from last to today's price.
// Each notional moves by sign(value)*profit.
func (p *portfolio) markToMarket(last, prices []types.Cell) (profit []types.Cell) {
	profit = make([]types.Cell, len(prices))
	for j := range prices {
		pr := mul(p.position[j], sub(prices[j], last[j]))
		profit[j] = pr
		p.value[j] = add(p.value[j], mul(sign(p.value[j]), pr))
	}
	p.total += types.Sum(profit)
	return profit
}

// rebalance resizes every symbol to its new target and returns the signed traded notional.
func (p *portfolio) rebalance(weights, prices []types.Cell) (turnover []types.Cell) {
	turnover = make([]types.Cell, len(weights))
	for j, w := range weights {
		next := mul(w, p.basis(j))
		turnover[j] = sub(next, p.value[j])
		p.value[j] = next
		p.position[j] = div(next, prices[j])
		p.weight[j] = w
	}
	return turnover
}

func (p *portfolio) basis(j int) types.Cell {
	if p.interest == types.Simple {
		return types.Some(p.initialValue)
	}
	if p.mode == types.TimeSeries {
		return abs(p.value[j])
	}
	return types.Some(p.total)
}

func (p *portfolio) snapshot() (position, value, weight []types.Cell) {
	return append([]types.Cell(nil), p.position...),
		append([]types.Cell(nil), p.value...),
		append([]types.Cell(nil), p.weight...)
}

// Cell arithmetic: any absent operand yields an absent result.

func add(a, b types.Cell) types.Cell {
	if !a.Valid || !b.Valid {
		return types.None
	}
	return types.Some(a.Value + b.Value)
}

func sub(a, b types.Cell) types.Cell {
	if !a.Valid || !b.Valid {
		return types.None
	}
	return types.Some(a.Value - b.Value)
}

func mul(a, b types.Cell) types.Cell {
	if !a.Valid || !b.Valid {
		return types.None
	}
	return types.Some(a.Value * b.Value)
}

func div(a, b types.Cell) types.Cell {
	if !a.Valid || !b.Valid || b.Value == 0 {
		return types.None
	}
	return types.Some(a.Value / b.Value)
}

func abs(a types.Cell) types.Cell {
	if !a.Valid {
		return types.None
	}
	return types.Some(math.Abs(a.Value))
}

func sign(a types.Cell) types.Cell {
	if !a.Valid {
		return types.None
	}
	switch {
	case a.Value > 0:
		return types.Some(1)
	case a.Value < 0:
		return types.Some(-1)
	default:
		return types.Some(0)
	}
}
