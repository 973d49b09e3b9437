package engine

import "futuresbacktest/types"

// ComputeCurves builds the cumulative profit curves of one leg. Absent profit counts
// as zero; an industry curve is the sum of its members' curves.
func ComputeCurves(leg *LegPanels, industries types.IndustryMap) types.Curves {
	profit := leg.Profit
	dates := profit.Dates

	symbol := types.Curve{Dates: dates, Names: profit.Symbols, Series: make([][]float64, profit.Cols())}
	for j := range profit.Symbols {
		symbol.Series[j] = cumulate(profit.Column(j))
	}

	portfolio := types.Curve{Dates: dates, Names: []string{"portfolio"}}
	daily := make([]types.Cell, profit.Rows())
	for i := range daily {
		daily[i] = types.Some(profit.RowSum(i))
	}
	portfolio.Series = [][]float64{cumulate(daily)}

	column := profit.SymbolIndex()
	keys, members := industries.Members(profit.Symbols)
	industry := types.Curve{Dates: dates, Names: keys, Series: make([][]float64, len(keys))}
	for k, name := range keys {
		series := make([]float64, len(dates))
		for _, s := range members[name] {
			for i, v := range symbol.Series[column[s]] {
				series[i] += v
			}
		}
		industry.Series[k] = series
	}

	return types.Curves{Portfolio: portfolio, Industry: industry, Symbol: symbol}
}

func cumulate(cells []types.Cell) []float64 {
	out := make([]float64, len(cells))
	var run float64
	for i, c := range cells {
		if c.Valid {
			run += c.Value
		}
		out[i] = run
	}
	return out
}
