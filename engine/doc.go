// Package engine implements the blocked, out-of-core matrix multiply.
//
// # Algorithm
//
// Multiply validates the operands from their shapes and element types,
// derives one square tile edge from the buffer budget and walks the
// output in tiles:
//
//	for each output tile (i, j):            // row-major, optionally parallel
//	    for each reduction tile k:          // always sequential
//	        A := a.Read(rows i, inner k)
//	        B := b.Read(inner k, cols j)
//	        buf = A · B                     // buffer reused across k
//	        out.Accumulate(rows i, cols j, buf)
//
// Only two operand tiles and one accumulation buffer per worker are alive
// at any time; neither operand nor the result is ever materialized. Partial
// sums of the reduction tiles combine in the output store through
// Accumulate, so out must start zeroed (a freshly allocated output is).
//
// # Concurrency
//
// WithWorkers(n) processes up to n output tiles in parallel. The reduction
// loop of one output tile stays on one goroutine, so accessors only see
// concurrent Accumulate calls on disjoint rectangles. A shared
// resource.Controller additionally bounds worker slots and working memory
// across concurrent multiplications.
//
// # Errors
//
// Validation errors are returned before any storage access. Storage
// failures are wrapped in *matrix.IOError naming the operand and tile;
// the first failure cancels the remaining tiles and leaves out partially
// accumulated. MultiplyReport tells which output tiles were finished.
package engine
