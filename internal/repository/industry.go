package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"futuresbacktest/types"
)

// GetIndustryMap retrieves the symbol -> industry mapping of the classification scheme
// named by group and name.
func (db *Database) GetIndustryMap(group, name string, ctx context.Context) (types.IndustryMap, error) {
	args := GetIndustrySymbolsParams{GroupName: group, SchemeName: name}
	rows, err := db.industries.GetIndustrySymbols(ctx, args)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("industry %s/%s %w", group, name, ErrIndustryNotFound)
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("industry %s/%s %w", group, name, ErrIndustryNotFound)
	}
	m := make(types.IndustryMap, len(rows))
	for _, r := range rows {
		m[r.UnderlyingSymbol] = r.IndustryName
	}
	return m, nil
}
