// Package config defines the declarative configuration model for the
// pipeline engine and loads it from HCL.
//
// The model is a closed set of tagged variants: every data source and
// every dataset carries exactly the arguments its kind needs, so
// validation can be exhaustive at load time. Load performs the full
// cross-reference check (source, dataset and hook names, merge arity,
// decoration anchors, expression syntax) before returning, so an engine
// run never discovers a dangling reference mid-pipeline.
package config
