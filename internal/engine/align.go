package engine

import (
	"errors"
	"futuresbacktest/types"
	"time"
)

var ErrEmptyUniverse = errors.New("weights and prices share no dates or no symbols")

// Alignment is the common universe of a weight and a price panel.
type Alignment struct {
	Weights *types.Panel
	Prices  *types.Panel

	Dates   []time.Time
	Symbols []string

	DroppedDates   []time.Time
	DroppedSymbols []string
}

// Align intersects the date and symbol axes of both panels, keeping the price
// panel's order. What each side loses is reported on the result.
func Align(weights, prices *types.Panel) (*Alignment, error) {
	wDates := weights.DateIndex()
	wSymbols := weights.SymbolIndex()
	pDates := prices.DateIndex()
	pSymbols := prices.SymbolIndex()

	a := &Alignment{}
	for _, d := range prices.Dates {
		if _, ok := wDates[d]; ok {
			a.Dates = append(a.Dates, d)
		} else {
			a.DroppedDates = append(a.DroppedDates, d)
		}
	}
	for _, d := range weights.Dates {
		if _, ok := pDates[d]; !ok {
			a.DroppedDates = append(a.DroppedDates, d)
		}
	}
	for _, s := range prices.Symbols {
		if _, ok := wSymbols[s]; ok {
			a.Symbols = append(a.Symbols, s)
		} else {
			a.DroppedSymbols = append(a.DroppedSymbols, s)
		}
	}
	for _, s := range weights.Symbols {
		if _, ok := pSymbols[s]; !ok {
			a.DroppedSymbols = append(a.DroppedSymbols, s)
		}
	}
	if len(a.Dates) == 0 || len(a.Symbols) == 0 {
		return nil, ErrEmptyUniverse
	}

	a.Weights = weights.Reindex(a.Dates, a.Symbols)
	a.Prices = prices.Reindex(a.Dates, a.Symbols)
	return a, nil
}

// Window trims both aligned panels to [start, end]. Zero bounds are open.
// Trimmed dates join DroppedDates.
func (a *Alignment) Window(start, end time.Time) (*Alignment, error) {
	var dates []time.Time
	dropped := append([]time.Time(nil), a.DroppedDates...)
	for _, d := range a.Dates {
		if (!start.IsZero() && d.Before(start)) || (!end.IsZero() && d.After(end)) {
			dropped = append(dropped, d)
			continue
		}
		dates = append(dates, d)
	}
	if len(dates) == 0 {
		return nil, ErrEmptyUniverse
	}
	return &Alignment{
		Weights:        a.Weights.SelectDates(dates),
		Prices:         a.Prices.SelectDates(dates),
		Dates:          dates,
		Symbols:        a.Symbols,
		DroppedDates:   dropped,
		DroppedSymbols: a.DroppedSymbols,
	}, nil
}
