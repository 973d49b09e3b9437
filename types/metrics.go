package types

import (
	"fmt"
	"time"
)

// Metrics is one row of a metrics table: a symbol, an industry or the whole portfolio.
type Metrics struct {
	Key string `json:"key"`

	LongRate        float64 `json:"long_rate"`
	ShortRate       float64 `json:"short_rate"`
	ParticipateRate float64 `json:"participate_rate"`

	TurnoverRate      float64 `json:"turnover_rate"`
	LongTurnoverRate  float64 `json:"long_turnover_rate"`
	ShortTurnoverRate float64 `json:"short_turnover_rate"`

	WinRate      float64 `json:"win_rate"`
	LongWinRate  float64 `json:"long_win_rate"`
	ShortWinRate float64 `json:"short_win_rate"`

	TotalReturn      float64 `json:"total_return"`
	LongTotalReturn  float64 `json:"long_total_return"`
	ShortTotalReturn float64 `json:"short_total_return"`

	AnnualReturn      float64 `json:"annual_return"`
	LongAnnualReturn  float64 `json:"long_annual_return"`
	ShortAnnualReturn float64 `json:"short_annual_return"`

	GainLossRate      float64 `json:"gain_loss_rate"`
	LongGainLossRate  float64 `json:"long_gain_loss_rate"`
	ShortGainLossRate float64 `json:"short_gain_loss_rate"`

	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// MetricNames lists the statistic columns in table order.
var MetricNames = []string{
	"long_rate", "short_rate", "participate_rate",
	"turnover_rate", "long_turnover_rate", "short_turnover_rate",
	"win_rate", "long_win_rate", "short_win_rate",
	"total_return", "long_total_return", "short_total_return",
	"annual_return", "long_annual_return", "short_annual_return",
	"gain_loss_rate", "long_gain_loss_rate", "short_gain_loss_rate",
	"sharpe", "max_drawdown",
}

// Fields returns the statistics in MetricNames order.
func (m Metrics) Fields() []float64 {
	return []float64{
		m.LongRate, m.ShortRate, m.ParticipateRate,
		m.TurnoverRate, m.LongTurnoverRate, m.ShortTurnoverRate,
		m.WinRate, m.LongWinRate, m.ShortWinRate,
		m.TotalReturn, m.LongTotalReturn, m.ShortTotalReturn,
		m.AnnualReturn, m.LongAnnualReturn, m.ShortAnnualReturn,
		m.GainLossRate, m.LongGainLossRate, m.ShortGainLossRate,
		m.Sharpe, m.MaxDrawdown,
	}
}

// MetricsFromFields is the inverse of Fields.
func MetricsFromFields(key string, f []float64) (Metrics, error) {
	if len(f) != len(MetricNames) {
		return Metrics{}, fmt.Errorf("metrics row %s has %d fields, want %d", key, len(f), len(MetricNames))
	}
	return Metrics{
		Key:      key,
		LongRate: f[0], ShortRate: f[1], ParticipateRate: f[2],
		TurnoverRate: f[3], LongTurnoverRate: f[4], ShortTurnoverRate: f[5],
		WinRate: f[6], LongWinRate: f[7], ShortWinRate: f[8],
		TotalReturn: f[9], LongTotalReturn: f[10], ShortTotalReturn: f[11],
		AnnualReturn: f[12], LongAnnualReturn: f[13], ShortAnnualReturn: f[14],
		GainLossRate: f[15], LongGainLossRate: f[16], ShortGainLossRate: f[17],
		Sharpe: f[18], MaxDrawdown: f[19],
	}, nil
}

// MetricsTable holds the three scopes computed for one leg.
type MetricsTable struct {
	Symbol    []Metrics `json:"symbol"`
	Industry  []Metrics `json:"industry"`
	Portfolio Metrics   `json:"portfolio"`
}

// Rows returns the rows of a scope.
func (t MetricsTable) Rows(scope Scope) []Metrics {
	switch scope {
	case ScopeSymbol:
		return t.Symbol
	case ScopeIndustry:
		return t.Industry
	default:
		return []Metrics{t.Portfolio}
	}
}

// Curve is a set of named cumulative-profit series over a shared date axis.
type Curve struct {
	Dates  []time.Time `json:"dates"`
	Names  []string    `json:"names"`
	Series [][]float64 `json:"series"` // Series[k][i] is Names[k] at Dates[i]
}

// Curves holds the plotting curves of one leg.
type Curves struct {
	Portfolio Curve `json:"portfolio"`
	Industry  Curve `json:"industry"`
	Symbol    Curve `json:"symbol"`
}

func (c Curves) Scope(scope Scope) Curve {
	switch scope {
	case ScopeSymbol:
		return c.Symbol
	case ScopeIndustry:
		return c.Industry
	default:
		return c.Portfolio
	}
}
