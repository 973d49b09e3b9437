package repository

import (
	"context"
	"errors"
	"fmt"
	"futuresbacktest/types"
	"sort"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrNoPrices         = errors.New("no prices found in datasource")
	ErrNoWeights        = errors.New("no weights found in datasource")
	ErrIndustryNotFound = errors.New("industry not found in datasource")
	ErrUnknownSource    = errors.New("unknown data source")
)

type pricesRepository interface {
	GetContinuousPrices(ctx context.Context, arg GetContinuousPricesParams) ([]PanelRow, error)
}
type weightsRepository interface {
	GetStrategyWeights(ctx context.Context, strategy string) ([]PanelRow, error)
}
type industryRepository interface {
	GetIndustrySymbols(ctx context.Context, arg GetIndustrySymbolsParams) ([]IndustrySymbolRow, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	prices     pricesRepository
	weights    weightsRepository
	industries industryRepository
	conn       *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(dbURL string, ctx context.Context) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	q := newQueries(conn)
	return &Database{
		prices:     q,
		weights:    q,
		industries: q,
		conn:       conn}, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}

// rowsToPanel pivots long-format rows into a panel with sorted dates and symbols.
// NULL values stay absent.
func rowsToPanel(rows []PanelRow) *types.Panel {
	dateSet := make(map[time.Time]struct{})
	symbolSet := make(map[string]struct{})
	for _, r := range rows {
		dateSet[truncateDay(r.TradeDate)] = struct{}{}
		symbolSet[r.UnderlyingSymbol] = struct{}{}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	panel := types.NewPanel(dates, symbols)
	dateIdx, symbolIdx := panel.DateIndex(), panel.SymbolIndex()
	for _, r := range rows {
		if !r.Value.Valid {
			continue
		}
		panel.Set(dateIdx[truncateDay(r.TradeDate)], symbolIdx[r.UnderlyingSymbol], types.Some(r.Value.Decimal.InexactFloat64()))
	}
	return panel
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
