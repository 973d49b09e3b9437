package types

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedInterest  = errors.New("unsupported interest mode")
	ErrUnsupportedSizing    = errors.New("unsupported sizing mode")
	ErrUnsupportedLeg       = errors.New("unsupported leg type")
	ErrUnsupportedRebalance = errors.New("unsupported rebalance kind")
)

// Interest decides whether positions are sized off the initial capital or the running account.
type Interest string

const (
	Simple   Interest = "simple"
	Compound Interest = "compound"
)

// SizingMode picks the compounding basis: whole-portfolio value or each symbol's own value.
type SizingMode string

const (
	CrossSection SizingMode = "cross_section"
	TimeSeries   SizingMode = "time_series"
)

type Leg string

const (
	LongShort Leg = "long_short"
	Long      Leg = "long"
	Short     Leg = "short"
)

// Legs lists every leg in report order.
var Legs = []Leg{LongShort, Long, Short}

type Scope string

const (
	ScopeSymbol    Scope = "symbol"
	ScopeIndustry  Scope = "industry"
	ScopePortfolio Scope = "portfolio"
)

var Scopes = []Scope{ScopeSymbol, ScopeIndustry, ScopePortfolio}

type RebalanceKind string

const (
	RebalancePeriod     RebalanceKind = "period"
	RebalanceMonthStart RebalanceKind = "month_start"
	RebalanceMonthEnd   RebalanceKind = "month_end"
	RebalanceDates      RebalanceKind = "dates"
)

var ConvertInterest = map[string]Interest{
	"simple":   Simple,
	"compound": Compound,
}

var ConvertSizing = map[string]SizingMode{
	"cross_section": CrossSection,
	"time_series":   TimeSeries,
}

var ConvertLeg = map[string]Leg{
	"long_short": LongShort,
	"all":        LongShort,
	"long":       Long,
	"short":      Short,
}

var ConvertRebalance = map[string]RebalanceKind{
	"period":      RebalancePeriod,
	"month_start": RebalanceMonthStart,
	"start":       RebalanceMonthStart,
	"month_end":   RebalanceMonthEnd,
	"end":         RebalanceMonthEnd,
	"dates":       RebalanceDates,
}

func ParseInterest(s string) (Interest, error) {
	if v, ok := ConvertInterest[s]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedInterest)
}

func ParseSizing(s string) (SizingMode, error) {
	if v, ok := ConvertSizing[s]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedSizing)
}

func ParseLeg(s string) (Leg, error) {
	if v, ok := ConvertLeg[s]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedLeg)
}

func ParseRebalance(s string) (RebalanceKind, error) {
	if v, ok := ConvertRebalance[s]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedRebalance)
}

// Label returns the display name used in report titles.
func (l Leg) Label() (string, error) {
	switch l {
	case LongShort:
		return "Long-Short", nil
	case Long:
		return "Long", nil
	case Short:
		return "Short", nil
	default:
		return "", fmt.Errorf("%q: %w", string(l), ErrUnsupportedLeg)
	}
}
