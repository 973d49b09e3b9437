package engine

import (
	"futuresbacktest/types"
	"time"
)

// HoldProfit is the profit of the position sized at each rebalance date, held
// unchanged to the next one. The last interval runs to the final row of prices.
// Rows are indexed by the rebalance dates.
func HoldProfit(position, prices *types.Panel, hold []time.Time) *types.Panel {
	out := types.NewPanel(hold, position.Symbols)
	if len(hold) == 0 || prices.Rows() == 0 {
		return out
	}
	rows := position.DateIndex()
	priceRows := prices.DateIndex()
	last := prices.Rows() - 1
	for k, h := range hold {
		from, ok := priceRows[h]
		at, okPos := rows[h]
		if !ok || !okPos {
			continue
		}
		to := last
		if k+1 < len(hold) {
			next, ok := priceRows[hold[k+1]]
			if !ok {
				continue
			}
			to = next
		}
		for j := 0; j < out.Cols(); j++ {
			move := sub(prices.At(to, j), prices.At(from, j))
			out.Set(k, j, mul(position.At(at, j), move))
		}
	}
	return out
}
