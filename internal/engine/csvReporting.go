package engine

import (
	"encoding/csv"
	"fmt"
	"futuresbacktest/types"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// writeCSVFiles writes one metrics file and one curve file per leg and scope into dir.
func writeCSVFiles(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	for _, leg := range types.Legs {
		for _, scope := range types.Scopes {
			name := fmt.Sprintf("metrics_%s_%s.csv", leg, scope)
			rows := report.Metrics[leg].Rows(scope)
			if err := writeCSVFile(filepath.Join(dir, name), func(w io.Writer) error {
				return WriteMetricsCSV(w, rows)
			}); err != nil {
				return err
			}

			name = fmt.Sprintf("curve_%s_%s.csv", leg, scope)
			curve := report.Curves[leg].Scope(scope)
			if err := writeCSVFile(filepath.Join(dir, name), func(w io.Writer) error {
				return WriteCurveCSV(w, curve)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return write(f)
}

// WriteMetricsCSV writes metrics rows to any io.Writer, one row per key.
func WriteMetricsCSV(w io.Writer, rows []types.Metrics) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"key"}, types.MetricNames...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range rows {
		record := []string{m.Key}
		for _, v := range m.Fields() {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteCurveCSV writes a curve in wide format: a date column and one column per series.
func WriteCurveCSV(w io.Writer, curve types.Curve) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"date"}, curve.Names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, d := range curve.Dates {
		record := []string{d.Format("2006-01-02")}
		for _, series := range curve.Series {
			record = append(record, formatFloat(series[i]))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
