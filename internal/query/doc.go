// Package query adapts the jq expression language (via gojq) to the
// pipeline engine. The engine never inspects expression syntax itself;
// it hands an expression string and an input value to the Evaluator and
// receives the sequence of produced values, or an *ExpressionError.
//
// Expressions are compiled once and cached, so configuration loading can
// reject bad syntax before any data is fetched.
package query
