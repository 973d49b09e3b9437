package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"futuresbacktest/types"
)

// GetPrices retrieves a continuous-contract price panel.
func (db *Database) GetPrices(query types.PriceQuery, ctx context.Context) (*types.Panel, error) {
	args := GetContinuousPricesParams{
		Contract:   query.Contract,
		PriceField: query.Field,
		RollDays:   int32(query.RollDays),
	}
	rows, err := db.prices.GetContinuousPrices(ctx, args)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s/%d %w", query.Contract, query.Field, query.RollDays, ErrNoPrices)
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s/%s/%d %w", query.Contract, query.Field, query.RollDays, ErrNoPrices)
	}
	return rowsToPanel(rows), nil
}
