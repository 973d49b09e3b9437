package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type dbtx interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

// PanelRow is one (date, symbol) observation in long format.
type PanelRow struct {
	TradeDate        time.Time
	UnderlyingSymbol string
	Value            decimal.NullDecimal
}

type GetContinuousPricesParams struct {
	Contract   string
	PriceField string
	RollDays   int32
}

type IndustrySymbolRow struct {
	IndustryName     string
	UnderlyingSymbol string
}

type GetIndustrySymbolsParams struct {
	GroupName  string
	SchemeName string
}

const getContinuousPrices = `
SELECT trade_date, underlying_symbol, price
FROM continuous_prices
WHERE contract = $1 AND price_field = $2 AND roll_days = $3
ORDER BY trade_date, underlying_symbol
`

func (q *queries) GetContinuousPrices(ctx context.Context, arg GetContinuousPricesParams) ([]PanelRow, error) {
	rows, err := q.db.Query(ctx, getContinuousPrices, arg.Contract, arg.PriceField, arg.RollDays)
	if err != nil {
		return nil, err
	}
	return scanPanelRows(rows)
}

const getStrategyWeights = `
SELECT trade_date, underlying_symbol, weight
FROM strategy_weights
WHERE strategy = $1
ORDER BY trade_date, underlying_symbol
`

func (q *queries) GetStrategyWeights(ctx context.Context, strategy string) ([]PanelRow, error) {
	rows, err := q.db.Query(ctx, getStrategyWeights, strategy)
	if err != nil {
		return nil, err
	}
	return scanPanelRows(rows)
}

const getIndustrySymbols = `
SELECT industry_name, underlying_symbol
FROM industry_symbols
WHERE group_name = $1 AND scheme_name = $2
ORDER BY industry_name, underlying_symbol
`

func (q *queries) GetIndustrySymbols(ctx context.Context, arg GetIndustrySymbolsParams) ([]IndustrySymbolRow, error) {
	rows, err := q.db.Query(ctx, getIndustrySymbols, arg.GroupName, arg.SchemeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IndustrySymbolRow
	for rows.Next() {
		var i IndustrySymbolRow
		if err := rows.Scan(&i.IndustryName, &i.UnderlyingSymbol); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanPanelRows(rows pgx.Rows) ([]PanelRow, error) {
	defer rows.Close()
	var items []PanelRow
	for rows.Next() {
		var i PanelRow
		if err := rows.Scan(&i.TradeDate, &i.UnderlyingSymbol, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
