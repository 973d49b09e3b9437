package engine

import (
	"context"
	"futuresbacktest/types"
)

type dataStore interface {
	GetPrices(query types.PriceQuery, ctx context.Context) (*types.Panel, error)
	GetWeights(strategy string, ctx context.Context) (*types.Panel, error)
	GetIndustryMap(group, name string, ctx context.Context) (types.IndustryMap, error)
}
