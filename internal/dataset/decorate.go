package dataset

import (
	"fmt"

	"github.com/a-delannoy/yaani/internal/source"
)

// evalDecorate performs the left outer join. The main dataset supplies
// the full output row set; each decorator contributes a sub-object
// attached under its anchor key when pivot keys match.
//
// Decorator records are indexed like merge inputs: a later record for an
// already-seen pivot key replaces the earlier one, so at most one
// decorator record attaches per anchor. Unmatched main records keep the
// anchor key absent; unmatched decorator records are dropped. Output
// cardinality always equals the main dataset's.
func (e *Evaluator) evalDecorate(store *Store, node *Node) ([]source.Record, error) {
	spec := node.Spec.Decorate
	addr := node.Spec.Address()

	mains, ok := store.Get(spec.Main)
	if !ok {
		return nil, fmt.Errorf("%s: main %q not evaluated", addr, spec.Main)
	}

	decorators := make([]map[string]source.Record, len(spec.Decorators))
	for i, dec := range spec.Decorators {
		records, ok := store.Get(dec.Name)
		if !ok {
			return nil, fmt.Errorf("%s: decorator %q not evaluated", addr, dec.Name)
		}
		byKey := make(map[string]source.Record, len(records))
		for ri, rec := range records {
			keyVal, err := e.eval.One(dec.Pivot, rec)
			if err != nil {
				return nil, fmt.Errorf("%s: decorator %q record %d: pivot: %w", addr, dec.Name, ri, err)
			}
			byKey[pivotKey(keyVal)] = rec
		}
		decorators[i] = byKey
	}

	out := make([]source.Record, 0, len(mains))
	for ri, rec := range mains {
		keyVal, err := e.eval.One(spec.Pivot, rec)
		if err != nil {
			return nil, fmt.Errorf("%s: main record %d: pivot: %w", addr, ri, err)
		}
		k := pivotKey(keyVal)

		decorated := make(source.Record, len(rec)+len(spec.Decorators))
		for field, v := range rec {
			decorated[field] = v
		}
		for i, dec := range spec.Decorators {
			if match, ok := decorators[i][k]; ok {
				decorated[dec.Anchor] = map[string]any(match)
			}
		}
		out = append(out, decorated)
	}
	return out, nil
}
