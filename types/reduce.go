package types

import "math"

// Reductions over cell slices. Absent cells are skipped everywhere.

func Sum(cells []Cell) float64 {
	var s float64
	for _, c := range cells {
		if c.Valid {
			s += c.Value
		}
	}
	return s
}

func Count(cells []Cell) int {
	n := 0
	for _, c := range cells {
		if c.Valid {
			n++
		}
	}
	return n
}

// Mean returns NaN when no cell is present.
func Mean(cells []Cell) float64 {
	n := Count(cells)
	if n == 0 {
		return math.NaN()
	}
	return Sum(cells) / float64(n)
}

// StdDev is the sample standard deviation (n-1). NaN below two observations.
func StdDev(cells []Cell) float64 {
	n := Count(cells)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(cells)
	var ss float64
	for _, c := range cells {
		if c.Valid {
			d := c.Value - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1))
}

// Present drops absent cells and returns the remaining values.
func Present(cells []Cell) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Valid {
			out = append(out, c.Value)
		}
	}
	return out
}
