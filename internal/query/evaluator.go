package query

import (
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
)

// ExpressionError reports a failure to parse or evaluate a query
// expression against an input value.
type ExpressionError struct {
	Expr string
	Err  error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expr, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// Evaluator compiles and runs jq expressions. It is safe for concurrent
// use; compiled programs are cached by expression text.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// New returns an Evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*gojq.Code)}
}

// Check compiles the expression without running it. Used during
// configuration validation to fail fast on bad syntax.
func (e *Evaluator) Check(expr string) error {
	_, err := e.compile(expr)
	return err
}

// Eval runs the expression against the input and returns every produced
// value, in production order. An expression may legitimately produce
// zero values.
func (e *Evaluator) Eval(expr string, input any) ([]any, error) {
	code, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := code.Run(Normalize(input))
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if evalErr, isErr := v.(error); isErr {
			return nil, &ExpressionError{Expr: expr, Err: evalErr}
		}
		out = append(out, v)
	}
	return out, nil
}

// One runs the expression and requires exactly one produced value. Zero
// or multiple values is an *ExpressionError; callers use this for pivot
// keys and host variables where a single value is mandatory.
func (e *Evaluator) One(expr string, input any) (any, error) {
	vals, err := e.Eval(expr, input)
	if err != nil {
		return nil, err
	}
	switch len(vals) {
	case 0:
		return nil, &ExpressionError{Expr: expr, Err: fmt.Errorf("produced no value, exactly one required")}
	case 1:
		return vals[0], nil
	default:
		return nil, &ExpressionError{Expr: expr, Err: fmt.Errorf("produced %d values, exactly one required", len(vals))}
	}
}

// Bool runs the expression and interprets the single produced value with
// jq truthiness: false and null are false, everything else is true.
func (e *Evaluator) Bool(expr string, input any) (bool, error) {
	v, err := e.One(expr, input)
	if err != nil {
		return false, err
	}
	return v != nil && v != false, nil
}

func (e *Evaluator) compile(expr string) (*gojq.Code, error) {
	e.mu.RLock()
	code, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return code, nil
	}

	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, &ExpressionError{Expr: expr, Err: err}
	}
	code, err = gojq.Compile(parsed)
	if err != nil {
		return nil, &ExpressionError{Expr: expr, Err: err}
	}

	e.mu.Lock()
	e.cache[expr] = code
	e.mu.Unlock()
	return code, nil
}
