package engine

import (
	"fmt"
	"futuresbacktest/types"
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// Report is what a backtest hands to the writers: a metrics table and a set of
// cumulative curves for every leg.
type Report struct {
	Metrics map[types.Leg]types.MetricsTable
	Curves  map[types.Leg]types.Curves
}

type metricsInput struct {
	capital  float64
	days     int
	interest types.Interest
}

// flows are the weight, profit and turnover series of one scope key over a date axis.
type flows struct {
	weight   []types.Cell
	profit   []types.Cell
	turnover []types.Cell
}

// ledger holds everything a metrics row is computed from.
type ledger struct {
	daily flows
	hold  flows
	gross []types.Cell // |weight| on hold dates
}

func (e *Engine) printReport(report *Report) {
	for _, leg := range types.Legs {
		table, ok := report.Metrics[leg]
		if !ok {
			continue
		}
		label, _ := leg.Label()
		m := table.Portfolio

		fmt.Printf("===== %s Report =====\n", label)
		fmt.Printf("Run ID:                %s\n", e.runID)
		fmt.Printf("Long Rate:             %s\n", percent(m.LongRate))
		fmt.Printf("Short Rate:            %s\n", percent(m.ShortRate))
		fmt.Printf("Participate Rate:      %s\n", percent(m.ParticipateRate))

		fmt.Println("\n-- Returns --")
		fmt.Printf("Total Return:          %s\n", percent(m.TotalReturn))
		fmt.Printf("Annual Return:         %s\n", percent(m.AnnualReturn))
		fmt.Printf("Long Annual Return:    %s\n", percent(m.LongAnnualReturn))
		fmt.Printf("Short Annual Return:   %s\n", percent(m.ShortAnnualReturn))
		fmt.Printf("Net Profit:            %s\n", money(m.TotalReturn, e.simulationConfig.initialCapital))

		fmt.Println("\n-- Trading --")
		fmt.Printf("Turnover Rate:         %s\n", ratio(m.TurnoverRate))
		fmt.Printf("Win Rate:              %s\n", percent(m.WinRate))
		fmt.Printf("Gain/Loss Rate:        %s\n", ratio(m.GainLossRate))

		fmt.Println("\n-- Risk-Adjusted Metrics --")
		fmt.Printf("Sharpe Ratio:          %s\n", ratio(m.Sharpe))
		fmt.Printf("Max Drawdown %%:        %s\n", percent(m.MaxDrawdown))
		fmt.Println("==========================")
	}
}

func percent(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func ratio(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return decimal.NewFromFloat(v).StringFixed(4)
}

func money(totalReturn float64, capital decimal.Decimal) string {
	if math.IsInf(totalReturn, 0) || math.IsNaN(totalReturn) {
		return fmt.Sprint(totalReturn)
	}
	return capital.Mul(decimal.NewFromFloat(totalReturn)).StringFixed(2)
}

// ComputeMetrics reduces one leg's panels to the symbol, industry and portfolio tables.
// days is the number of simulated trading days.
func ComputeMetrics(leg *LegPanels, industries types.IndustryMap, capital float64, days int, interest types.Interest) types.MetricsTable {
	in := metricsInput{capital: capital, days: days, interest: interest}
	symbols := symbolLedgers(leg)
	dailyRows, holdRows := leg.Profit.Rows(), leg.HoldProfit.Rows()

	table := types.MetricsTable{}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		table.Symbol = calcSymbolMetrics(leg.Profit.Symbols, symbols, in, &wg)
	}()
	go func() {
		table.Industry = calcIndustryMetrics(leg.Profit.Symbols, symbols, industries, dailyRows, holdRows, in, &wg)
	}()
	go func() {
		table.Portfolio = calcPortfolioMetrics(symbols, dailyRows, holdRows, in, &wg)
	}()
	wg.Wait()

	return table
}

func calcSymbolMetrics(names []string, symbols []ledger, in metricsInput, wg *sync.WaitGroup) []types.Metrics {
	defer wg.Done()

	rows := make([]types.Metrics, len(symbols))
	for j, l := range symbols {
		rows[j] = calcRecord(names[j], [3]ledger{l, l.only(types.Long), l.only(types.Short)}, in)
	}
	return rows
}

func calcIndustryMetrics(
	names []string,
	symbols []ledger,
	industries types.IndustryMap,
	dailyRows, holdRows int,
	in metricsInput,
	wg *sync.WaitGroup,
) []types.Metrics {
	defer wg.Done()

	column := make(map[string]int, len(names))
	for j, s := range names {
		column[s] = j
	}
	keys, members := industries.Members(names)
	rows := make([]types.Metrics, 0, len(keys))
	for _, industry := range keys {
		group := make([]ledger, 0, len(members[industry]))
		for _, s := range members[industry] {
			group = append(group, symbols[column[s]])
		}
		rows = append(rows, calcRecord(industry, aggregateVariants(group, dailyRows, holdRows), in))
	}
	return rows
}

func calcPortfolioMetrics(symbols []ledger, dailyRows, holdRows int, in metricsInput, wg *sync.WaitGroup) types.Metrics {
	defer wg.Done()
	return calcRecord("portfolio", aggregateVariants(symbols, dailyRows, holdRows), in)
}

// calcRecord fills one metrics row from the combined, long-only and short-only ledgers.
func calcRecord(key string, v [3]ledger, in metricsInput) types.Metrics {
	all, long, short := v[0], v[1], v[2]
	m := types.Metrics{
		Key:             key,
		LongRate:        signRate(all.hold.weight, 1),
		ShortRate:       signRate(all.hold.weight, -1),
		ParticipateRate: participateRate(all.gross),

		TurnoverRate:      turnoverRate(all.hold.turnover, in),
		LongTurnoverRate:  turnoverRate(long.hold.turnover, in),
		ShortTurnoverRate: turnoverRate(short.hold.turnover, in),

		WinRate:      signRate(all.hold.profit, 1),
		LongWinRate:  signRate(long.hold.profit, 1),
		ShortWinRate: signRate(short.hold.profit, 1),

		TotalReturn:      totalReturn(all.daily.profit, in),
		LongTotalReturn:  totalReturn(long.daily.profit, in),
		ShortTotalReturn: totalReturn(short.daily.profit, in),

		GainLossRate:      gainLossRate(all.hold.profit),
		LongGainLossRate:  gainLossRate(long.hold.profit),
		ShortGainLossRate: gainLossRate(short.hold.profit),

		Sharpe:      sharpeRatio(all.daily.profit, in),
		MaxDrawdown: maxDrawdown(all.daily.profit, in),
	}
	m.AnnualReturn = annualReturn(m.TotalReturn, in)
	m.LongAnnualReturn = annualReturn(m.LongTotalReturn, in)
	m.ShortAnnualReturn = annualReturn(m.ShortTotalReturn, in)
	return m
}

func symbolLedgers(leg *LegPanels) []ledger {
	out := make([]ledger, leg.Profit.Cols())
	for j := range out {
		holdWeight := leg.HoldWeight.Column(j)
		gross := make([]types.Cell, len(holdWeight))
		for i, w := range holdWeight {
			gross[i] = abs(w)
		}
		out[j] = ledger{
			daily: flows{weight: leg.Weight.Column(j), profit: leg.Profit.Column(j), turnover: leg.Turnover.Column(j)},
			hold:  flows{weight: holdWeight, profit: leg.HoldProfit.Column(j), turnover: leg.HoldTurnover.Column(j)},
			gross: gross,
		}
	}
	return out
}

// only zeroes the cells whose weight has the opposite sign of side.
func (l ledger) only(side types.Leg) ledger {
	return ledger{daily: l.daily.only(side), hold: l.hold.only(side), gross: l.gross}
}

func (f flows) only(side types.Leg) flows {
	out := flows{
		weight:   append([]types.Cell(nil), f.weight...),
		profit:   append([]types.Cell(nil), f.profit...),
		turnover: append([]types.Cell(nil), f.turnover...),
	}
	for i, w := range f.weight {
		if !w.Valid {
			continue
		}
		if (side == types.Long && w.Value < 0) || (side == types.Short && w.Value > 0) {
			out.weight[i] = types.Some(0)
			if out.profit[i].Valid {
				out.profit[i] = types.Some(0)
			}
			if out.turnover[i].Valid {
				out.turnover[i] = types.Some(0)
			}
		}
	}
	return out
}

// aggregateVariants splits each member into its variants first and then sums per date,
// so long-only and short-only are isolated per symbol before aggregation.
func aggregateVariants(members []ledger, dailyRows, holdRows int) [3]ledger {
	var out [3]ledger
	for k, side := range []types.Leg{types.LongShort, types.Long, types.Short} {
		group := make([]ledger, len(members))
		for m, l := range members {
			if side == types.LongShort {
				group[m] = l
			} else {
				group[m] = l.only(side)
			}
		}
		out[k] = sumLedgers(group, dailyRows, holdRows)
	}
	return out
}

// sumLedgers adds the present cells of every member per date. A date where no member
// is present sums to 0.
func sumLedgers(members []ledger, dailyRows, holdRows int) ledger {
	out := ledger{
		daily: flows{weight: zeros(dailyRows), profit: zeros(dailyRows), turnover: zeros(dailyRows)},
		hold:  flows{weight: zeros(holdRows), profit: zeros(holdRows), turnover: zeros(holdRows)},
		gross: zeros(holdRows),
	}
	for _, l := range members {
		accumulate(out.daily.weight, l.daily.weight)
		accumulate(out.daily.profit, l.daily.profit)
		accumulate(out.daily.turnover, l.daily.turnover)
		accumulate(out.hold.weight, l.hold.weight)
		accumulate(out.hold.profit, l.hold.profit)
		accumulate(out.hold.turnover, l.hold.turnover)
		accumulate(out.gross, l.gross)
	}
	return out
}

func accumulate(dst, src []types.Cell) {
	for i, c := range src {
		if c.Valid {
			dst[i] = types.Some(dst[i].Value + c.Value)
		}
	}
}

// signRate is count(v has sign s) / count(v != 0) over present cells, 0 when nothing is non-zero.
func signRate(cells []types.Cell, s float64) float64 {
	hit, nonZero := 0, 0
	for _, c := range cells {
		if !c.Valid || c.Value == 0 {
			continue
		}
		nonZero++
		if c.Value*s > 0 {
			hit++
		}
	}
	if nonZero == 0 {
		return 0
	}
	return float64(hit) / float64(nonZero)
}

func participateRate(cells []types.Cell) float64 {
	present, nonZero := 0, 0
	for _, c := range cells {
		if !c.Valid {
			continue
		}
		present++
		if c.Value != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		return 0
	}
	return float64(nonZero) / float64(present)
}

func turnoverRate(cells []types.Cell, in metricsInput) float64 {
	return types.Sum(cells) * tradingDaysPerYear / float64(in.days) / in.capital
}

func totalReturn(cells []types.Cell, in metricsInput) float64 {
	return types.Sum(cells) / in.capital
}

// annualReturn scales a total return to 252 trading days. A compound total return at
// or below -100% annualizes to -1.
func annualReturn(total float64, in metricsInput) float64 {
	years := float64(tradingDaysPerYear) / float64(in.days)
	if in.interest == types.Simple {
		return total * years
	}
	if 1+total <= 0 {
		return -1
	}
	return math.Pow(1+total, years) - 1
}

// gainLossRate is gains over losses: +Inf with gains and no losses, 0 with neither.
func gainLossRate(cells []types.Cell) float64 {
	var gain, loss float64
	for _, c := range cells {
		switch {
		case !c.Valid:
		case c.Value > 0:
			gain += c.Value
		case c.Value < 0:
			loss -= c.Value
		}
	}
	if loss == 0 {
		if gain > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gain / loss
}

func sharpeRatio(profit []types.Cell, in metricsInput) float64 {
	returns := make([]types.Cell, len(profit))
	for i, c := range profit {
		returns[i] = div(c, types.Some(in.capital))
	}
	std := types.StdDev(returns)
	if math.IsNaN(std) || std == 0 {
		return 0
	}
	return types.Mean(returns) / std * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the largest fall of 1+cumulative return from its running peak,
// relative to that peak.
func maxDrawdown(profit []types.Cell, in metricsInput) float64 {
	cum, peak, maxDD := 1.0, 0.0, 0.0
	started := false
	for _, c := range profit {
		if !c.Valid {
			continue
		}
		cum += c.Value / in.capital
		if !started || cum > peak {
			peak = cum
			started = true
		}
		if peak == 0 {
			continue
		}
		if dd := (peak - cum) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
