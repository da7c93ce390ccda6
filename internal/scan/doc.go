// Package scan runs a caller-supplied analysis function over a list of
// symbols with bounded parallelism, chunked time budgets, and partial-failure
// tolerance, producing a ranked report.
package scan
