package engine

import (
	"fmt"
	"futuresbacktest/types"
	"time"
)

// phaseCalendar is one rebalance schedule to simulate. Shift is the phase offset for
// fixed-period schedules and 0 otherwise.
type phaseCalendar struct {
	shift int
	dates []time.Time
}

// PeriodCalendar returns every period-th date of the calendar starting at index shift.
func PeriodCalendar(calendar []time.Time, period, shift int) []time.Time {
	if period < 1 {
		return nil
	}
	var out []time.Time
	for i := shift; i < len(calendar); i += period {
		out = append(out, calendar[i])
	}
	return out
}

// MonthStartCalendar returns the first trading date of every month in the calendar.
func MonthStartCalendar(calendar []time.Time) []time.Time {
	var out []time.Time
	for i, d := range calendar {
		if i == 0 || !sameMonth(calendar[i-1], d) {
			out = append(out, d)
		}
	}
	return out
}

// MonthEndCalendar returns the last trading date of every month in the calendar.
func MonthEndCalendar(calendar []time.Time) []time.Time {
	var out []time.Time
	for i, d := range calendar {
		if i == len(calendar)-1 || !sameMonth(calendar[i+1], d) {
			out = append(out, d)
		}
	}
	return out
}

// RebalanceOn keeps the dates that are trading dates of the calendar, in calendar
// order and without duplicates.
func RebalanceOn(calendar, dates []time.Time) []time.Time {
	want := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		want[d] = true
	}
	var out []time.Time
	for _, d := range calendar {
		if want[d] {
			out = append(out, d)
			delete(want, d)
		}
	}
	return out
}

// calendars expands the rebalance configuration into the schedules a run simulates.
func (c *RebalanceConfig) calendars(calendar []time.Time) ([]phaseCalendar, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.kind {
	case types.RebalancePeriod:
		phases := make([]phaseCalendar, 0, c.period)
		for shift := 0; shift < c.period; shift++ {
			phases = append(phases, phaseCalendar{shift: shift, dates: PeriodCalendar(calendar, c.period, shift)})
		}
		return phases, nil
	case types.RebalanceMonthStart:
		return []phaseCalendar{{dates: MonthStartCalendar(calendar)}}, nil
	case types.RebalanceMonthEnd:
		return []phaseCalendar{{dates: MonthEndCalendar(calendar)}}, nil
	case types.RebalanceDates:
		dates := RebalanceOn(calendar, c.dates)
		if len(dates) == 0 {
			return nil, fmt.Errorf("no rebalance date falls on a trading date: %w", ErrNoRebalance)
		}
		return []phaseCalendar{{dates: dates}}, nil
	}
	return nil, fmt.Errorf("%q: %w", c.kind, types.ErrUnsupportedRebalance)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
