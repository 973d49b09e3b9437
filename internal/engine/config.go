package engine

import (
	"errors"
	"fmt"
	"futuresbacktest/types"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCapital = errors.New("initial capital must be positive")
	ErrNegativeRate   = errors.New("trading cost rate must not be negative")
	ErrInvalidPeriod  = errors.New("rebalance period must be at least 1")
	ErrNoRebalance    = errors.New("explicit rebalance calendar is empty")
)

// DataFeedConfig names the panels a run reads from the data store.
type DataFeedConfig struct {
	strategy      string
	price         types.PriceQuery
	industryGroup string
	industryName  string
	start         time.Time
	end           time.Time
}

// NewDataFeedConfig builds a feed. A zero start or end leaves that side of the window open.
func NewDataFeedConfig(strategy string, price types.PriceQuery, industryGroup, industryName string, start, end time.Time) *DataFeedConfig {
	return &DataFeedConfig{
		strategy:      strategy,
		price:         price,
		industryGroup: industryGroup,
		industryName:  industryName,
		start:         start,
		end:           end,
	}
}

type SimulationConfig struct {
	initialCapital decimal.Decimal
	rate           float64
	interest       types.Interest
	mode           types.SizingMode
}

func NewSimulationConfig(initialCapital decimal.Decimal, rate float64, interest types.Interest, mode types.SizingMode) *SimulationConfig {
	return &SimulationConfig{
		initialCapital: initialCapital,
		rate:           rate,
		interest:       interest,
		mode:           mode,
	}
}

// Validate rejects configurations the simulator cannot run.
func (c *SimulationConfig) Validate() error {
	if !c.initialCapital.IsPositive() {
		return fmt.Errorf("%s: %w", c.initialCapital, ErrInvalidCapital)
	}
	if c.rate < 0 {
		return fmt.Errorf("%v: %w", c.rate, ErrNegativeRate)
	}
	if _, ok := types.ConvertInterest[string(c.interest)]; !ok {
		return fmt.Errorf("%q: %w", c.interest, types.ErrUnsupportedInterest)
	}
	if _, ok := types.ConvertSizing[string(c.mode)]; !ok {
		return fmt.Errorf("%q: %w", c.mode, types.ErrUnsupportedSizing)
	}
	return nil
}

func (c *SimulationConfig) capital() float64 {
	return c.initialCapital.InexactFloat64()
}

// ExecutionConfig controls how a run executes rather than what it simulates.
type ExecutionConfig struct {
	nextOpen bool
	progress bool
	workers  int
}

// NewExecutionConfig: nextOpen executes at the following day's open (the price panel is
// led one row), progress draws a bar for single simulations, workers bounds concurrent phases.
func NewExecutionConfig(nextOpen, progress bool, workers int) *ExecutionConfig {
	if workers < 1 {
		workers = 1
	}
	return &ExecutionConfig{
		nextOpen: nextOpen,
		progress: progress,
		workers:  workers,
	}
}

type RebalanceConfig struct {
	kind   types.RebalanceKind
	period int
	dates  []time.Time
}

func NewRebalanceConfig(kind types.RebalanceKind, period int, dates []time.Time) *RebalanceConfig {
	return &RebalanceConfig{
		kind:   kind,
		period: period,
		dates:  dates,
	}
}

func (c *RebalanceConfig) Validate() error {
	switch c.kind {
	case types.RebalancePeriod:
		if c.period < 1 {
			return fmt.Errorf("%d: %w", c.period, ErrInvalidPeriod)
		}
	case types.RebalanceMonthStart, types.RebalanceMonthEnd:
	case types.RebalanceDates:
		if len(c.dates) == 0 {
			return ErrNoRebalance
		}
	default:
		return fmt.Errorf("%q: %w", c.kind, types.ErrUnsupportedRebalance)
	}
	return nil
}

type ReportingConfig struct {
	outputDir   string
	writeCSV    bool
	writeXLSX   bool
	printStdout bool
}

func NewReportingConfig(outputDir string, writeCSV, writeXLSX, printStdout bool) *ReportingConfig {
	return &ReportingConfig{
		outputDir:   outputDir,
		writeCSV:    writeCSV,
		writeXLSX:   writeXLSX,
		printStdout: printStdout,
	}
}
