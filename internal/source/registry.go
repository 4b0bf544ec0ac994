package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/ctxlog"
	"github.com/a-delannoy/yaani/internal/query"
)

// Record is one semi-structured item produced by a source or a dataset
// stage. Records are never mutated after creation; stages that change a
// record build a new one.
type Record = map[string]any

// FetchError reports a failure of one source: unreachable endpoint,
// decode error or a failing extraction expression.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %q: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// fetcher is the kind-specific half of the registry.
type fetcher interface {
	fetch(ctx context.Context, args *config.Extract) ([]Record, error)
}

// Registry holds one fetcher per declared source and counts fetches so
// the evaluate-once property is observable in tests.
type Registry struct {
	fetchers map[string]fetcher

	mu     sync.Mutex
	counts map[string]int
}

// NewRegistry builds fetchers for every declared source. Construction
// fails on unusable source arguments (for example a malformed timeout),
// keeping such errors out of the evaluation phase.
func NewRegistry(eval *query.Evaluator, sources map[string]*config.Source) (*Registry, error) {
	r := &Registry{
		fetchers: make(map[string]fetcher, len(sources)),
		counts:   make(map[string]int, len(sources)),
	}
	for name, src := range sources {
		var (
			f   fetcher
			err error
		)
		switch src.Kind {
		case config.SourceAPI:
			f, err = newAPIFetcher(src.API)
		case config.SourceFile:
			f = &fileFetcher{path: src.File.Path, eval: eval}
		case config.SourceScript:
			f = &scriptFetcher{command: src.Script.Command, args: src.Script.Args, eval: eval}
		default:
			err = fmt.Errorf("unknown source kind %q", src.Kind)
		}
		if err != nil {
			return nil, &FetchError{Source: name, Err: err}
		}
		r.fetchers[name] = f
	}
	return r, nil
}

// Fetch runs one extraction request against the named source.
func (r *Registry) Fetch(ctx context.Context, args *config.Extract) ([]Record, error) {
	logger := ctxlog.FromContext(ctx)
	f, ok := r.fetchers[args.Source]
	if !ok {
		return nil, &FetchError{Source: args.Source, Err: fmt.Errorf("not declared")}
	}

	r.mu.Lock()
	r.counts[args.Source]++
	r.mu.Unlock()

	logger.Debug("Fetching from source.", "source", args.Source)
	records, err := f.fetch(ctx, args)
	if err != nil {
		return nil, &FetchError{Source: args.Source, Err: err}
	}
	logger.Debug("Fetch complete.", "source", args.Source, "records", len(records))
	return records, nil
}

// FetchCount reports how many extraction requests hit the named source
// during this run.
func (r *Registry) FetchCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}
