package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// Cell is one panel entry. A cell that is not Valid is absent: the symbol was
// not listed or not tradable that day.
type Cell struct {
	Value float64
	Valid bool
}

// Some returns a present cell holding v. NaN and infinities are stored as absent.
func Some(v float64) Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{}
	}
	return Cell{Value: v, Valid: true}
}

// None is the absent cell.
var None = Cell{}

// Panel is a table keyed by (trading date, symbol). Rows follow Dates, columns follow Symbols.
type Panel struct {
	Dates   []time.Time
	Symbols []string
	cells   [][]Cell
}

// NewPanel returns a panel over the given axes with every cell absent.
func NewPanel(dates []time.Time, symbols []string) *Panel {
	cells := make([][]Cell, len(dates))
	for i := range cells {
		cells[i] = make([]Cell, len(symbols))
	}
	return &Panel{
		Dates:   append([]time.Time(nil), dates...),
		Symbols: append([]string(nil), symbols...),
		cells:   cells,
	}
}

// NewPanelFromValues builds a panel from a dense float grid, NaN meaning absent.
func NewPanelFromValues(dates []time.Time, symbols []string, values [][]float64) (*Panel, error) {
	if len(values) != len(dates) {
		return nil, fmt.Errorf("panel has %d rows, want %d", len(values), len(dates))
	}
	p := NewPanel(dates, symbols)
	for i, row := range values {
		if len(row) != len(symbols) {
			return nil, fmt.Errorf("panel row %d has %d columns, want %d", i, len(row), len(symbols))
		}
		for j, v := range row {
			p.cells[i][j] = Some(v)
		}
	}
	return p, nil
}

func (p *Panel) Rows() int { return len(p.Dates) }
func (p *Panel) Cols() int { return len(p.Symbols) }

func (p *Panel) At(i, j int) Cell { return p.cells[i][j] }

func (p *Panel) Set(i, j int, c Cell) { p.cells[i][j] = c }

// Row returns the live row slice; callers that keep it must copy.
func (p *Panel) Row(i int) []Cell { return p.cells[i] }

// SetRow copies row into row i.
func (p *Panel) SetRow(i int, row []Cell) { copy(p.cells[i], row) }

func (p *Panel) Clone() *Panel {
	out := NewPanel(p.Dates, p.Symbols)
	for i := range p.cells {
		copy(out.cells[i], p.cells[i])
	}
	return out
}

// DateIndex maps each date to its row.
func (p *Panel) DateIndex() map[time.Time]int {
	idx := make(map[time.Time]int, len(p.Dates))
	for i, d := range p.Dates {
		idx[d] = i
	}
	return idx
}

// SymbolIndex maps each symbol to its column.
func (p *Panel) SymbolIndex() map[string]int {
	idx := make(map[string]int, len(p.Symbols))
	for j, s := range p.Symbols {
		idx[s] = j
	}
	return idx
}

// Reindex returns a panel over the given axes, copying cells present in p.
// Dates and symbols unknown to p stay absent.
func (p *Panel) Reindex(dates []time.Time, symbols []string) *Panel {
	out := NewPanel(dates, symbols)
	di := p.DateIndex()
	si := p.SymbolIndex()
	cols := make([]int, len(symbols))
	for j, s := range symbols {
		c, ok := si[s]
		if !ok {
			c = -1
		}
		cols[j] = c
	}
	for i, d := range dates {
		r, ok := di[d]
		if !ok {
			continue
		}
		for j, c := range cols {
			if c >= 0 {
				out.cells[i][j] = p.cells[r][c]
			}
		}
	}
	return out
}

// SelectDates keeps the rows at the given dates, in the given order.
func (p *Panel) SelectDates(dates []time.Time) *Panel {
	return p.Reindex(dates, p.Symbols)
}

// Lead shifts every column up by n rows: row t takes the value of row t+n.
// The last n rows become absent.
func (p *Panel) Lead(n int) *Panel {
	out := NewPanel(p.Dates, p.Symbols)
	for i := 0; i+n < len(p.cells); i++ {
		copy(out.cells[i], p.cells[i+n])
	}
	return out
}

// Map applies fn to every cell.
func (p *Panel) Map(fn func(Cell) Cell) *Panel {
	out := NewPanel(p.Dates, p.Symbols)
	for i, row := range p.cells {
		for j, c := range row {
			out.cells[i][j] = fn(c)
		}
	}
	return out
}

// Column returns the cells of column j in date order.
func (p *Panel) Column(j int) []Cell {
	col := make([]Cell, len(p.cells))
	for i := range p.cells {
		col[i] = p.cells[i][j]
	}
	return col
}

// RowSum sums the present cells of row i. An empty row sums to 0.
func (p *Panel) RowSum(i int) float64 {
	return Sum(p.cells[i])
}

// Values returns a dense grid with NaN for absent cells.
func (p *Panel) Values() [][]float64 {
	out := make([][]float64, len(p.cells))
	for i, row := range p.cells {
		out[i] = make([]float64, len(row))
		for j, c := range row {
			if c.Valid {
				out[i][j] = c.Value
			} else {
				out[i][j] = math.NaN()
			}
		}
	}
	return out
}

type panelJSON struct {
	Dates   []string     `json:"dates"`
	Symbols []string     `json:"symbols"`
	Values  [][]*float64 `json:"values"`
}

func (p *Panel) MarshalJSON() ([]byte, error) {
	wire := panelJSON{
		Dates:   make([]string, len(p.Dates)),
		Symbols: p.Symbols,
		Values:  make([][]*float64, len(p.cells)),
	}
	for i, d := range p.Dates {
		wire.Dates[i] = d.Format(dateLayout)
	}
	for i, row := range p.cells {
		wire.Values[i] = make([]*float64, len(row))
		for j, c := range row {
			if c.Valid {
				v := c.Value
				wire.Values[i][j] = &v
			}
		}
	}
	return json.Marshal(wire)
}

func (p *Panel) UnmarshalJSON(data []byte) error {
	var wire panelJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	dates := make([]time.Time, len(wire.Dates))
	for i, s := range wire.Dates {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("parse panel date %q: %w", s, err)
		}
		dates[i] = d
	}
	if len(wire.Values) != len(dates) {
		return fmt.Errorf("panel has %d rows, want %d", len(wire.Values), len(dates))
	}
	out := NewPanel(dates, wire.Symbols)
	for i, row := range wire.Values {
		if len(row) != len(wire.Symbols) {
			return fmt.Errorf("panel row %d has %d columns, want %d", i, len(row), len(wire.Symbols))
		}
		for j, v := range row {
			if v != nil {
				out.cells[i][j] = Some(*v)
			}
		}
	}
	*p = *out
	return nil
}
