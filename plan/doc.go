// Package plan validates multiply operands and derives the tiling used by
// the engine.
//
// # Validation
//
// [Validate] checks ranks and conformability from shapes alone, so a
// malformed call is rejected before any storage is touched.
//
// # Tile edge
//
// [TileEdge] derives one square edge length from a memory budget:
//
//	raw  = floor(sqrt(bufferBytes / elemSize))
//	edge = prevPow2(raw) * scale   (clamped to >= 1)
//
// The edge is shared by the row, column and reduction axes. One step of
// the engine keeps at most [WorkingSetBytes] = 3 * edge² * elemSize bytes
// alive (two operand tiles plus the accumulation buffer), so size the
// budget with the scale factor in mind. [Grid.WorkingSetBytes] gives the
// exact figure for a clipped tile.
//
// # Grid
//
// [Grid] enumerates clipped [Tile] descriptors for an (m x k) · (k x n)
// problem.
package plan
