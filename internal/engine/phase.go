package engine

import (
	"context"
	"errors"
	"fmt"
	"futuresbacktest/types"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrPhaseMismatch = errors.New("phase reports do not share the same layout")

// PhaseRun is one simulation of a rebalance schedule.
type PhaseRun struct {
	Shift      int
	Rebalance  []time.Time
	Simulation *SimulationResult
	Report     *Report
}

// runPhases simulates every schedule independently, at most workers at a time.
// Runs come back in schedule order.
func runPhases(
	ctx context.Context,
	weights, prices *types.Panel,
	industries types.IndustryMap,
	phases []phaseCalendar,
	sim *SimulationConfig,
	exec *ExecutionConfig,
) ([]PhaseRun, error) {
	runs := make([]PhaseRun, len(phases))
	progress := exec.progress && len(phases) == 1

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exec.workers)
	for k, phase := range phases {
		k, phase := k, phase
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Simulate(weights, prices, phase.dates, sim, progress)
			if err != nil {
				return fmt.Errorf("simulate phase %d: %w", phase.shift, err)
			}
			runs[k] = PhaseRun{
				Shift:      phase.shift,
				Rebalance:  res.Rebalance,
				Simulation: res,
				Report:     buildReport(res, industries, sim),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// buildReport computes the metrics and curves of every leg of a simulation.
func buildReport(res *SimulationResult, industries types.IndustryMap, sim *SimulationConfig) *Report {
	report := &Report{
		Metrics: make(map[types.Leg]types.MetricsTable, len(types.Legs)),
		Curves:  make(map[types.Leg]types.Curves, len(types.Legs)),
	}
	for _, leg := range types.Legs {
		panels := res.Legs[leg]
		report.Metrics[leg] = ComputeMetrics(panels, industries, sim.capital(), len(res.Dates), sim.interest)
		report.Curves[leg] = ComputeCurves(panels, industries)
	}
	return report
}

// AverageReports is the arithmetic mean of several reports: field-wise for metrics
// rows and cell-wise for curves.
func AverageReports(reports []*Report) (*Report, error) {
	if len(reports) == 0 {
		return nil, ErrPhaseMismatch
	}
	if len(reports) == 1 {
		return reports[0], nil
	}
	out := &Report{
		Metrics: make(map[types.Leg]types.MetricsTable, len(types.Legs)),
		Curves:  make(map[types.Leg]types.Curves, len(types.Legs)),
	}
	for _, leg := range types.Legs {
		tables := make([]types.MetricsTable, len(reports))
		curves := make([]types.Curves, len(reports))
		for k, r := range reports {
			tables[k] = r.Metrics[leg]
			curves[k] = r.Curves[leg]
		}
		table, err := averageTables(tables)
		if err != nil {
			return nil, fmt.Errorf("%s metrics: %w", leg, err)
		}
		out.Metrics[leg] = table

		var avg types.Curves
		if avg.Portfolio, err = averageCurves(curves, types.ScopePortfolio); err != nil {
			return nil, fmt.Errorf("%s curves: %w", leg, err)
		}
		if avg.Industry, err = averageCurves(curves, types.ScopeIndustry); err != nil {
			return nil, fmt.Errorf("%s curves: %w", leg, err)
		}
		if avg.Symbol, err = averageCurves(curves, types.ScopeSymbol); err != nil {
			return nil, fmt.Errorf("%s curves: %w", leg, err)
		}
		out.Curves[leg] = avg
	}
	return out, nil
}

func averageTables(tables []types.MetricsTable) (types.MetricsTable, error) {
	var out types.MetricsTable
	var err error
	if out.Symbol, err = averageRows(tables, types.ScopeSymbol); err != nil {
		return out, err
	}
	if out.Industry, err = averageRows(tables, types.ScopeIndustry); err != nil {
		return out, err
	}
	portfolio, err := averageRows(tables, types.ScopePortfolio)
	if err != nil {
		return out, err
	}
	out.Portfolio = portfolio[0]
	return out, nil
}

func averageRows(tables []types.MetricsTable, scope types.Scope) ([]types.Metrics, error) {
	first := tables[0].Rows(scope)
	out := make([]types.Metrics, len(first))
	for r, row := range first {
		sum := make([]float64, len(types.MetricNames))
		for _, t := range tables {
			rows := t.Rows(scope)
			if len(rows) != len(first) || rows[r].Key != row.Key {
				return nil, fmt.Errorf("%s rows: %w", scope, ErrPhaseMismatch)
			}
			for f, v := range rows[r].Fields() {
				sum[f] += v
			}
		}
		for f := range sum {
			sum[f] /= float64(len(tables))
		}
		m, err := types.MetricsFromFields(row.Key, sum)
		if err != nil {
			return nil, err
		}
		out[r] = m
	}
	return out, nil
}

func averageCurves(all []types.Curves, scope types.Scope) (types.Curve, error) {
	first := all[0].Scope(scope)
	out := types.Curve{Dates: first.Dates, Names: first.Names, Series: make([][]float64, len(first.Series))}
	for k := range first.Series {
		out.Series[k] = make([]float64, len(first.Dates))
	}
	for _, c := range all {
		curve := c.Scope(scope)
		if len(curve.Series) != len(first.Series) || len(curve.Dates) != len(first.Dates) {
			return types.Curve{}, fmt.Errorf("%s curve: %w", scope, ErrPhaseMismatch)
		}
		for k, series := range curve.Series {
			for i, v := range series {
				out.Series[k][i] += v
			}
		}
	}
	for k := range out.Series {
		for i := range out.Series[k] {
			out.Series[k][i] /= float64(len(all))
		}
	}
	return out, nil
}
