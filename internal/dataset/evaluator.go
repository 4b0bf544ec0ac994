package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/ctxlog"
	"github.com/a-delannoy/yaani/internal/query"
	"github.com/a-delannoy/yaani/internal/source"
)

// errSkipped marks nodes that never ran because something upstream
// failed; it is a symptom, not a root cause.
var errSkipped = errors.New("skipped due to upstream failure")

// DefaultWorkers bounds the evaluation pool when the caller does not
// configure one.
const DefaultWorkers = 10

// Evaluator executes a dataset graph concurrently and memoizes every
// dataset's resulting collection in a Store.
type Evaluator struct {
	graph    *Graph
	registry *source.Registry
	eval     *query.Evaluator
	workers  int
	wg       sync.WaitGroup
}

// NewEvaluator wires the graph to its collaborators. workers <= 0 falls
// back to DefaultWorkers.
func NewEvaluator(graph *Graph, registry *source.Registry, eval *query.Evaluator, workers int) *Evaluator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Evaluator{graph: graph, registry: registry, eval: eval, workers: workers}
}

// Run evaluates the whole graph and returns the result store. Nodes with
// no dependency relationship run in parallel; the first fatal error
// cancels all in-flight evaluation and is returned after the pool
// drains. Partial results of a failed run are discarded by the caller.
func (e *Evaluator) Run(ctx context.Context) (*Store, error) {
	logger := ctxlog.FromContext(ctx)
	store := NewStore()

	readyChan := make(chan *Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, name := range e.graph.Order {
		node := e.graph.Nodes[name]
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Found root datasets.", "count", rootCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting evaluation pool.", "workers", e.workers)
	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, store, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All datasets settled.")

	var failed []string
	var rootCause error
	for _, name := range e.graph.Order {
		node := e.graph.Nodes[name]
		if node.state.Load() != stateFailed {
			continue
		}
		// Skips and cancellations are symptoms of the real failure.
		if node.Err != nil && !errors.Is(node.Err, errSkipped) && !errors.Is(node.Err, context.Canceled) {
			failed = append(failed, node.Name)
			if rootCause == nil {
				rootCause = node.Err
			}
		}
	}
	if rootCause != nil {
		return nil, fmt.Errorf("evaluating %s: %w", strings.Join(failed, ", "), rootCause)
	}
	return store, nil
}

// worker is the processing loop of one pool member.
func (e *Evaluator) worker(ctx context.Context, store *Store, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	ctx = ctxlog.With(ctx, "workerID", workerID)
	logger := ctxlog.FromContext(ctx)

	for node := range readyChan {
		nodeLogger := logger.With("dataset", node.Name)

		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				node.state.Store(stateFailed)
				node.Err = ctx.Err()
				e.wg.Done()
			})
			// A cancelled node's dependents will never be queued; settle
			// them too or wg.Wait never returns.
			e.skipDependents(ctx, node)
			continue
		}

		nodeLogger.Debug("Evaluating dataset.", "kind", node.Spec.Kind)
		node.state.Store(stateRunning)

		records, err := e.evaluate(ctx, store, node)
		if err != nil {
			nodeLogger.Error("Dataset evaluation failed.", "error", err)
			node.state.Store(stateFailed)
			node.Err = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		store.Set(node.Name, records)
		node.state.Store(stateDone)
		nodeLogger.Debug("Dataset evaluated.", "records", len(records))

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// skipDependents recursively marks downstream nodes as failed.
func (e *Evaluator) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dataset due to upstream failure.", "dataset", dependent.Name, "dependency", node.Name)
			dependent.state.Store(stateFailed)
			dependent.Err = fmt.Errorf("%w of %q", errSkipped, node.Name)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// evaluate dispatches a node to its kind rule.
func (e *Evaluator) evaluate(ctx context.Context, store *Store, node *Node) ([]source.Record, error) {
	switch node.Spec.Kind {
	case config.DatasetExtract:
		return e.registry.Fetch(ctx, node.Spec.Extract)
	case config.DatasetFilter:
		return e.evalFilter(store, node)
	case config.DatasetMerge:
		return e.evalMerge(store, node)
	case config.DatasetDecorate:
		return e.evalDecorate(store, node)
	default:
		return nil, fmt.Errorf("%s: unknown dataset kind", node.Spec.Address())
	}
}

// evalFilter applies the filter expression to every input record. Each
// record may expand to zero, one or many output records; input order is
// preserved, and per-record output follows expression production order.
func (e *Evaluator) evalFilter(store *Store, node *Node) ([]source.Record, error) {
	spec := node.Spec.Filter
	inputs, ok := store.Get(spec.Input)
	if !ok {
		return nil, fmt.Errorf("%s: input %q not evaluated", node.Spec.Address(), spec.Input)
	}

	var out []source.Record
	for i, rec := range inputs {
		vals, err := e.eval.Eval(spec.Expr, rec)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", node.Spec.Address(), i, err)
		}
		for _, v := range vals {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: record %d: expression produced %T, want object", node.Spec.Address(), i, v)
			}
			out = append(out, m)
		}
	}
	return out, nil
}
