package engine

import (
	"context"
	"errors"
	"fmt"
	"futuresbacktest/types"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidGroupCount = errors.New("group count must be at least 1")

// GroupWeights turns a group-label panel (1..n, 0 or absent meaning no group) into n
// long-only weight panels. Members of a group share a total weight of 1 on each date.
// The result is indexed by group label minus one.
func GroupWeights(groups *types.Panel, n int) ([]*types.Panel, error) {
	if n < 1 {
		return nil, fmt.Errorf("%d: %w", n, ErrInvalidGroupCount)
	}
	out := make([]*types.Panel, n)
	for g := range out {
		out[g] = types.NewPanel(groups.Dates, groups.Symbols)
	}
	for i := 0; i < groups.Rows(); i++ {
		counts := make([]int, n+1)
		for _, c := range groups.Row(i) {
			if label, ok := groupLabel(c, n); ok {
				counts[label]++
			}
		}
		for j, c := range groups.Row(i) {
			label, ok := groupLabel(c, n)
			for g := 1; g <= n; g++ {
				switch {
				case ok && label == g:
					out[g-1].Set(i, j, types.Some(1/float64(counts[g])))
				case c.Valid:
					out[g-1].Set(i, j, types.Some(0))
				}
			}
		}
	}
	return out, nil
}

func groupLabel(c types.Cell, n int) (int, bool) {
	if !c.Valid || c.Value != math.Trunc(c.Value) {
		return 0, false
	}
	label := int(c.Value)
	return label, label >= 1 && label <= n
}

// RunGroups backtests every group of a group-label panel with the engine's settings.
// Results are keyed by group label; each group's reports go to its own directory.
func (e *Engine) RunGroups(ctx context.Context, groups *types.Panel, n int) (map[int]*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	weights, err := GroupWeights(groups, n)
	if err != nil {
		return nil, err
	}
	prices, industries, err := e.loadMarket(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[int]*Result, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.executionConfig.workers)
	for k, w := range weights {
		w := w
		label := k + 1
		g.Go(func() error {
			res, err := e.Backtest(ctx, w, prices, industries)
			if err != nil {
				return fmt.Errorf("group %d: %w", label, err)
			}
			mu.Lock()
			results[label] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for label := 1; label <= n; label++ {
		if err := e.publish(results[label], fmt.Sprintf("group_%d", label)); err != nil {
			return nil, err
		}
	}
	return results, nil
}
