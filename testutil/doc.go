// Package testutil provides testing utilities for tilemat.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating operand matrices, computing the exact
// in-memory product and instrumenting storage accessors.
//
// # Matrix Generation
//
//	rng := testutil.NewRNG(seed)
//	a := rng.Uniform(5, 3, matrix.Float64)   // uniform [0, 1)
//	b := testutil.Linspace(3, 7, 0, 1)       // numpy-style linspace, reshaped
//
// # Reference Product
//
//	want := testutil.Reference(a, b)
//	diff := testutil.MaxAbsDiff(want, got)
//
// # Instrumented Accessors
//
//	ca := testutil.NewCountingArray(a)  // counts Read and Accumulate calls
//	fa := testutil.NewFailingArray(a, 3, err) // fails from the 3rd call on
package testutil
