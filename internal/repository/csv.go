package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"futuresbacktest/types"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const csvDateLayout = "2006-01-02"

// CSVStore reads wide-format panels and industry schemes from a directory.
//
//	prices_<contract>_<field>_<roll>.csv
//	weights_<strategy>.csv
//	industry_<group>_<name>.json
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) (*CSVStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csv dir %s is not a directory", dir)
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) GetPrices(query types.PriceQuery, _ context.Context) (*types.Panel, error) {
	name := fmt.Sprintf("prices_%s_%s_%d.csv", query.Contract, query.Field, query.RollDays)
	panel, err := s.readPanel(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s/%d %w", query.Contract, query.Field, query.RollDays, ErrNoPrices)
		}
		return nil, err
	}
	if panel.Rows() == 0 {
		return nil, fmt.Errorf("%s/%s/%d %w", query.Contract, query.Field, query.RollDays, ErrNoPrices)
	}
	return panel, nil
}

func (s *CSVStore) GetWeights(strategy string, _ context.Context) (*types.Panel, error) {
	panel, err := s.readPanel(fmt.Sprintf("weights_%s.csv", strategy))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("strategy %s %w", strategy, ErrNoWeights)
		}
		return nil, err
	}
	if panel.Rows() == 0 {
		return nil, fmt.Errorf("strategy %s %w", strategy, ErrNoWeights)
	}
	return panel, nil
}

func (s *CSVStore) GetIndustryMap(group, name string, _ context.Context) (types.IndustryMap, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("industry_%s_%s.json", group, name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("industry %s/%s %w", group, name, ErrIndustryNotFound)
		}
		return nil, err
	}
	var bySector map[string][]string
	if err := json.Unmarshal(data, &bySector); err != nil {
		return nil, fmt.Errorf("industry %s/%s: %w", group, name, err)
	}
	if len(bySector) == 0 {
		return nil, fmt.Errorf("industry %s/%s %w", group, name, ErrIndustryNotFound)
	}
	return types.FromIndustrySymbols(bySector), nil
}

func (s *CSVStore) Close() {}

func (s *CSVStore) readPanel(name string) (*types.Panel, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	panel, err := ReadWideCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return panel, nil
}

// ReadWideCSV parses a `date,SYM1,SYM2,...` table. Empty cells are absent.
// Rows must be in ascending date order.
func ReadWideCSV(r io.Reader) (*types.Panel, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header")
		}
		return nil, err
	}
	if len(header) < 2 {
		return nil, errors.New("header has no symbols")
	}
	symbols := make([]string, len(header)-1)
	for j, h := range header[1:] {
		symbols[j] = strings.TrimSpace(h)
	}

	var dates []time.Time
	var values [][]types.Cell
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := time.Parse(csvDateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", record[0], err)
		}
		if n := len(dates); n > 0 && !dates[n-1].Before(date) {
			return nil, fmt.Errorf("date %s out of order", record[0])
		}
		row := make([]types.Cell, len(symbols))
		for j, field := range record[1:] {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := decimal.NewFromString(field)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", record[0], symbols[j], err)
			}
			row[j] = types.Some(v.InexactFloat64())
		}
		dates = append(dates, date)
		values = append(values, row)
	}

	panel := types.NewPanel(dates, symbols)
	for i, row := range values {
		panel.SetRow(i, row)
	}
	return panel, nil
}
