package engine

import "futuresbacktest/types"

// SplitLegs splits a signed panel by its own sign: the long panel zeroes negative
// cells, the short panel zeroes positive ones. Absent cells stay absent in both.
func SplitLegs(p *types.Panel) (long, short *types.Panel) {
	return SplitLegsBy(p)
}

// SplitLegsBy splits p by the sign of the matching cell in the first panel of by that
// holds a non-zero value there, falling back to the cell's own sign. Zero cells go to
// the long side, so long + short always equals p.
func SplitLegsBy(p *types.Panel, by ...*types.Panel) (long, short *types.Panel) {
	long = p.Clone()
	short = p.Clone()
	for i := 0; i < p.Rows(); i++ {
		for j := 0; j < p.Cols(); j++ {
			c := p.At(i, j)
			if !c.Valid {
				continue
			}
			if legSign(c, by, i, j) < 0 {
				long.Set(i, j, types.Some(0))
			} else {
				short.Set(i, j, types.Some(0))
			}
		}
	}
	return long, short
}

func legSign(c types.Cell, by []*types.Panel, i, j int) float64 {
	for _, b := range by {
		if s := b.At(i, j); s.Valid && s.Value != 0 {
			return s.Value
		}
	}
	return c.Value
}
