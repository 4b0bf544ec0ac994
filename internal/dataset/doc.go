// Package dataset is the algebra engine of the pipeline. It builds a
// validated dependency graph from the declared datasets, then evaluates
// the graph with a bounded worker pool: extract nodes delegate to the
// source registry, filter/merge/decorate nodes are pure in-memory
// computation over already-evaluated inputs.
//
// Each dataset is evaluated at most once per run. Results land in a
// Store keyed by dataset name; siblings with no dependency relationship
// run in parallel, and the first fatal error cancels everything still
// in flight.
package dataset
