package engine

import (
	"context"
	"fmt"
	"futuresbacktest/types"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Engine struct {
	db               dataStore
	feed             *DataFeedConfig
	simulationConfig *SimulationConfig
	executionConfig  *ExecutionConfig
	rebalanceConfig  *RebalanceConfig
	reportingConfig  *ReportingConfig
	logger           *zap.Logger
	runID            uuid.UUID
}

// Result is the outcome of one backtest run.
type Result struct {
	RunID     uuid.UUID
	Alignment *Alignment
	Phases    []PhaseRun
	Report    *Report
}

func NewEngine(
	db dataStore,
	feed *DataFeedConfig,
	sim *SimulationConfig,
	exec *ExecutionConfig,
	rebalance *RebalanceConfig,
	reporting *ReportingConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exec == nil {
		exec = NewExecutionConfig(false, false, 1)
	}
	if reporting == nil {
		reporting = NewReportingConfig("", false, false, false)
	}
	runID := uuid.New()
	return &Engine{
		db:               db,
		feed:             feed,
		simulationConfig: sim,
		executionConfig:  exec,
		rebalanceConfig:  rebalance,
		reportingConfig:  reporting,
		logger:           logger.With(zap.String("run_id", runID.String())),
		runID:            runID,
	}
}

func (e *Engine) RunID() uuid.UUID { return e.runID }

// Run loads the configured panels, backtests them and writes the configured reports.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	weights, err := e.db.GetWeights(e.feed.strategy, ctx)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	prices, industries, err := e.loadMarket(ctx)
	if err != nil {
		return nil, err
	}
	result, err := e.Backtest(ctx, weights, prices, industries)
	if err != nil {
		return nil, err
	}
	if err := e.publish(result, ""); err != nil {
		return nil, err
	}
	return result, nil
}

// Backtest runs the configured simulation over in-memory panels. Prices are the raw
// execution prices; the next-open lead is applied here.
func (e *Engine) Backtest(ctx context.Context, weights, prices *types.Panel, industries types.IndustryMap) (*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	if e.executionConfig.nextOpen {
		prices = prices.Lead(1)
	}
	aligned, err := Align(weights, prices)
	if err != nil {
		return nil, err
	}
	if e.feed != nil {
		if aligned, err = aligned.Window(e.feed.start, e.feed.end); err != nil {
			return nil, err
		}
	}
	if len(aligned.DroppedDates) > 0 || len(aligned.DroppedSymbols) > 0 {
		e.logger.Info("alignment shrank universe",
			zap.Int("dropped_dates", len(aligned.DroppedDates)),
			zap.Strings("dropped_symbols", aligned.DroppedSymbols),
		)
	}

	phases, err := e.rebalanceConfig.calendars(aligned.Dates)
	if err != nil {
		return nil, err
	}
	e.logger.Info("starting backtest",
		zap.Int("dates", len(aligned.Dates)),
		zap.Int("symbols", len(aligned.Symbols)),
		zap.String("rebalance", string(e.rebalanceConfig.kind)),
		zap.Int("phases", len(phases)),
	)

	runs, err := runPhases(ctx, aligned.Weights, aligned.Prices, industries, phases, e.simulationConfig, e.executionConfig)
	if err != nil {
		return nil, err
	}
	reports := make([]*Report, len(runs))
	for k, r := range runs {
		reports[k] = r.Report
	}
	report, err := AverageReports(reports)
	if err != nil {
		return nil, err
	}

	e.logger.Info("backtest finished", zap.Duration("elapsed", time.Since(start)))
	return &Result{
		RunID:     e.runID,
		Alignment: aligned,
		Phases:    runs,
		Report:    report,
	}, nil
}

func (e *Engine) validate() error {
	if err := e.simulationConfig.Validate(); err != nil {
		return err
	}
	return e.rebalanceConfig.Validate()
}

func (e *Engine) loadMarket(ctx context.Context) (*types.Panel, types.IndustryMap, error) {
	prices, err := e.db.GetPrices(e.feed.price, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load prices: %w", err)
	}
	if e.feed.industryGroup == "" {
		return prices, nil, nil
	}
	industries, err := e.db.GetIndustryMap(e.feed.industryGroup, e.feed.industryName, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load industry map: %w", err)
	}
	return prices, industries, nil
}

// publish prints and writes the report of a result under outputDir/runID[/sub].
func (e *Engine) publish(result *Result, sub string) error {
	if e.reportingConfig.printStdout {
		e.printReport(result.Report)
	}
	if !e.reportingConfig.writeCSV && !e.reportingConfig.writeXLSX {
		return nil
	}
	dir := filepath.Join(e.reportingConfig.outputDir, e.runID.String(), sub)
	if e.reportingConfig.writeCSV {
		if err := writeCSVFiles(dir, result.Report); err != nil {
			return err
		}
	}
	if e.reportingConfig.writeXLSX {
		if err := writeXLSXFile(filepath.Join(dir, "report.xlsx"), result.Report); err != nil {
			return err
		}
	}
	e.logger.Info("reports written", zap.String("dir", dir))
	return nil
}
