package engine

import (
	"bytes"
	"futuresbacktest/types"
	"math"
	"strings"
	"testing"
)

func TestWriteMetricsCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []types.Metrics{{Key: "RB", LongRate: 0.5, GainLossRate: math.Inf(1), Sharpe: -1.25}}
	if err := WriteMetricsCSV(&buf, rows); err != nil {
		t.Fatalf("WriteMetricsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if want := "key," + strings.Join(types.MetricNames, ","); lines[0] != want {
		t.Errorf("header = %q, want %q", lines[0], want)
	}
	if want := "RB,0.5,0,0,0,0,0,0,0,0,0,0,0,0,0,0,+Inf,0,0,-1.25,0"; lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestWriteCurveCSV(t *testing.T) {
	var buf bytes.Buffer
	curve := types.Curve{
		Dates:  testDates(2),
		Names:  []string{"metal", "grain"},
		Series: [][]float64{{1, 2.5}, {0, -3}},
	}
	if err := WriteCurveCSV(&buf, curve); err != nil {
		t.Fatalf("WriteCurveCSV: %v", err)
	}

	want := "date,metal,grain\n2024-01-01,1,0\n2024-01-02,2.5,-3\n"
	if got := buf.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
