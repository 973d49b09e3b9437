package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"futuresbacktest/types"
)

// GetWeights retrieves the target weight panel of a strategy.
func (db *Database) GetWeights(strategy string, ctx context.Context) (*types.Panel, error) {
	rows, err := db.weights.GetStrategyWeights(ctx, strategy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("strategy %s %w", strategy, ErrNoWeights)
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("strategy %s %w", strategy, ErrNoWeights)
	}
	return rowsToPanel(rows), nil
}
