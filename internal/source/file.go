package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/query"
)

// fileFetcher reads a flat file and extracts the wanted record sequence
// from its decoded content.
type fileFetcher struct {
	path string
	eval *query.Evaluator
}

func (f *fileFetcher) fetch(ctx context.Context, args *config.Extract) ([]Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	return decodeRecords(f.eval, args, data)
}

// decodeRecords turns raw file or script output into records: decode by
// the declared format, then apply the extraction expression (if any) to
// pull out the record sequence. Shared by the file and script fetchers.
func decodeRecords(eval *query.Evaluator, args *config.Extract, data []byte) ([]Record, error) {
	var doc any
	switch args.Format {
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case "json":
		parsed, err := oj.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
		doc = parsed
	default:
		return nil, fmt.Errorf("unsupported format %q", args.Format)
	}
	doc = query.Normalize(doc)

	var items []any
	if args.Expr != "" {
		vals, err := eval.Eval(args.Expr, doc)
		if err != nil {
			return nil, err
		}
		items = vals
	} else {
		seq, ok := doc.([]any)
		if !ok {
			return nil, fmt.Errorf("content is %T, want a sequence (or set expr to extract one)", doc)
		}
		items = seq
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is %T, want object", i, item)
		}
		records = append(records, rec)
	}
	return records, nil
}
