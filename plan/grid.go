package plan

import (
	"iter"

	"github.com/hupe1980/tilemat/matrix"
)

// Tile identifies one unit of work: out[Row, Col] += a[Row, Inner] · b[Inner, Col].
// Every range is clipped to its matrix's bounds.
type Tile struct {
	Row   matrix.Range
	Col   matrix.Range
	Inner matrix.Range
}

// Grid enumerates the tiles of an (M x K) · (K x N) product.
type Grid struct {
	M, K, N int
	Edge    int
}

// NewGrid returns the grid for the given problem; edge < 1 is treated as 1.
func NewGrid(m, k, n, edge int) Grid {
	return Grid{M: m, K: k, N: n, Edge: max(edge, 1)}
}

func ceilDiv(x, y int) int {
	if x <= 0 {
		return 0
	}
	return (x + y - 1) / y
}

// RowTiles is the number of tiles along the output rows.
func (g Grid) RowTiles() int { return ceilDiv(g.M, g.Edge) }

// ColTiles is the number of tiles along the output columns.
func (g Grid) ColTiles() int { return ceilDiv(g.N, g.Edge) }

// InnerTiles is the number of reduction tiles per output tile.
func (g Grid) InnerTiles() int { return ceilDiv(g.K, g.Edge) }

// OutputTiles is the number of output tiles.
func (g Grid) OutputTiles() int { return g.RowTiles() * g.ColTiles() }

func (g Grid) span(idx, bound int) matrix.Range {
	lo := idx * g.Edge
	return matrix.Range{Lo: lo, Hi: lo + g.Edge}.Clip(bound)
}

// OutputTile returns the output ranges of the idx-th output tile in
// row-major order.
func (g Grid) OutputTile(idx int) (rows, cols matrix.Range) {
	ct := g.ColTiles()
	return g.span(idx/ct, g.M), g.span(idx%ct, g.N)
}

// Index returns the row-major output tile index of (i, j).
func (g Grid) Index(i, j int) int { return i*g.ColTiles() + j }

// Inner yields the reduction tiles of the output tile idx.
func (g Grid) Inner(idx int) iter.Seq[Tile] {
	rows, cols := g.OutputTile(idx)
	return func(yield func(Tile) bool) {
		for k := 0; k < g.InnerTiles(); k++ {
			if !yield(Tile{Row: rows, Col: cols, Inner: g.span(k, g.K)}) {
				return
			}
		}
	}
}

// All yields every tile: output tiles in row-major order, reduction tiles
// innermost.
func (g Grid) All() iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for idx := 0; idx < g.OutputTiles(); idx++ {
			for t := range g.Inner(idx) {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// WorkingSetBytes is the memory held while output tile idx runs: the
// largest a and b reduction tiles plus the accumulation buffer, all
// clipped to the problem bounds. It never exceeds the package-level
// WorkingSetBytes for g.Edge.
func (g Grid) WorkingSetBytes(idx, elemSize int) int64 {
	rows, cols := g.OutputTile(idx)
	r, c, k := int64(rows.Len()), int64(cols.Len()), int64(min(g.Edge, g.K))
	return (r*k + k*c + r*c) * int64(elemSize)
}
