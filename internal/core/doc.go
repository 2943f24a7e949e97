// Package core implements the tabular pipeline behind the CSV workbench:
// parse, coerce, sort, aggregate, correlate and serialize.
//
// Everything in this package is synchronous and free of I/O beyond the
// readers and writers handed in. Operations take a *Table and return a new
// *Table or derived read-only results; a table is never modified in place.
// Persisting tables between requests is the job of package store.
//
// # Coercion
//
// Cells keep the text they were uploaded with. Numeric semantics are
// established per operation by [Coerce]: a cell that is empty or is not a
// decimal number becomes missing. Coercion never fails an operation.
//
// # Sorting
//
// [Sort] is stable and places missing keys last in both directions. Rows
// can be keyed on one column or on a per-row average or maximum across all
// numeric columns; the derived key is never stored in the table.
//
// # Statistics and correlation
//
// [ComputeStats] reports average, highest and lowest per requested column.
// [Correlate] builds a pairwise-complete Pearson matrix, and
// [ComputeInsights] derives the most-missing column, the strongest positive
// and negative pairs, and the highest-variance column.
//
// # Error Handling
//
// Upload failures are reported as *[ParseError] wrapping [ErrEmptyInput],
// [ErrNoColumns] or [ErrMalformedCSV]. [MapError] turns any error into a
// [UserMessage] with a support code.
package core
