package main

import (
	"context"
	"flag"
	"futuresbacktest/internal/config"
	"futuresbacktest/internal/engine"
	"futuresbacktest/internal/repository"
	"futuresbacktest/types"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, repository.SourceConfig{
		Kind:        cfg.Data.Source,
		DatabaseURL: cfg.Data.DatabaseURL,
		CSVDir:      cfg.Data.CSVDir,
		RedisURL:    cfg.Data.RedisURL,
		CacheTTL:    cfg.Data.CacheTTL,
	}, logger)
	if err != nil {
		logger.Fatal("open data source", zap.Error(err))
	}
	defer store.Close()

	eng, err := newEngine(cfg, store, logger)
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}

	start := time.Now()
	if cfg.Simulation.Groups > 0 {
		groups, err := store.GetWeights(cfg.Data.Strategy, ctx)
		if err != nil {
			logger.Fatal("load group labels", zap.Error(err))
		}
		results, err := eng.RunGroups(ctx, groups, cfg.Simulation.Groups)
		if err != nil {
			logger.Fatal("group backtest failed", zap.Error(err))
		}
		logger.Info("group backtest finished",
			zap.Int("groups", len(results)),
			zap.Duration("elapsed", time.Since(start)))
		return
	}

	result, err := eng.Run(ctx)
	if err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}
	logger.Info("backtest finished",
		zap.String("run_id", result.RunID.String()),
		zap.Int("phases", len(result.Phases)),
		zap.Duration("elapsed", time.Since(start)))
}

func newEngine(cfg *config.Config, store repository.Store, logger *zap.Logger) (*engine.Engine, error) {
	sim := cfg.Simulation
	interest, err := types.ParseInterest(sim.Interest)
	if err != nil {
		return nil, err
	}
	mode, err := types.ParseSizing(sim.Mode)
	if err != nil {
		return nil, err
	}
	kind, err := types.ParseRebalance(sim.Rebalance)
	if err != nil {
		return nil, err
	}
	dates, err := sim.RebalanceDates()
	if err != nil {
		return nil, err
	}
	start, end, err := sim.Window()
	if err != nil {
		return nil, err
	}

	feed := engine.NewDataFeedConfig(
		cfg.Data.Strategy,
		types.PriceQuery{Contract: cfg.Data.Contract, Field: cfg.Data.PriceField, RollDays: cfg.Data.RollDays},
		cfg.Data.IndustryGroup,
		cfg.Data.IndustryName,
		start,
		end,
	)
	return engine.NewEngine(
		store,
		feed,
		engine.NewSimulationConfig(decimal.NewFromFloat(sim.InitialCapital), sim.Rate, interest, mode),
		engine.NewExecutionConfig(sim.NextOpen, sim.Progress, sim.Workers),
		engine.NewRebalanceConfig(kind, sim.Period, dates),
		engine.NewReportingConfig(cfg.Output.Dir, cfg.Output.CSV, cfg.Output.XLSX, cfg.Output.Print),
		logger,
	), nil
}
