package engine

import (
	"fmt"
	"futuresbacktest/types"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// writeXLSXFile saves a workbook with one sheet per leg and scope metrics table and
// one portfolio curve sheet per leg.
func writeXLSXFile(path string, report *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, leg := range types.Legs {
		for _, scope := range types.Scopes {
			sheet := fmt.Sprintf("%s_%s", leg, scope)
			if err := addSheet(f, sheet, first); err != nil {
				return err
			}
			first = false
			if err := writeMetricsSheet(f, sheet, report.Metrics[leg].Rows(scope)); err != nil {
				return err
			}
		}
		sheet := fmt.Sprintf("%s_curve", leg)
		if err := addSheet(f, sheet, false); err != nil {
			return err
		}
		if err := writeCurveSheet(f, sheet, report.Curves[leg].Portfolio); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func addSheet(f *excelize.File, name string, first bool) error {
	if first {
		return f.SetSheetName(f.GetSheetName(0), name)
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return nil
}

func writeMetricsSheet(f *excelize.File, sheet string, rows []types.Metrics) error {
	header := append([]interface{}{"key"}, stringsToCells(types.MetricNames)...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for r, m := range rows {
		record := []interface{}{m.Key}
		for _, v := range m.Fields() {
			record = append(record, sheetValue(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r, err)
		}
	}
	return nil
}

func writeCurveSheet(f *excelize.File, sheet string, curve types.Curve) error {
	header := append([]interface{}{"date"}, stringsToCells(curve.Names)...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, d := range curve.Dates {
		record := []interface{}{d.Format("2006-01-02")}
		for _, series := range curve.Series {
			record = append(record, sheetValue(series[i]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i, err)
		}
	}
	return nil
}

// sheetValue keeps infinities readable; a spreadsheet cell cannot hold them as numbers.
func sheetValue(v float64) interface{} {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return formatFloat(v)
	}
	return v
}

func stringsToCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
