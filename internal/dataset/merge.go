package dataset

import (
	"fmt"

	"github.com/a-delannoy/yaani/internal/source"
)

// evalMerge performs the N-way full outer join.
//
// Per input, records are indexed by pivot key; a later record for an
// already-seen key replaces the earlier one, so within one input keys
// are effectively unique. Output keys are the union across inputs, in
// first-seen order (inputs visited in declared order), which makes the
// result deterministic and its membership independent of input order.
// Fields are merged whole-record: non-tie-break inputs apply in declared
// order, the designated tie-break input applies last and therefore wins
// every conflict. A key absent from an input simply contributes nothing.
func (e *Evaluator) evalMerge(store *Store, node *Node) ([]source.Record, error) {
	spec := node.Spec.Merge
	addr := node.Spec.Address()

	perInput := make([]map[string]source.Record, len(spec.Inputs))
	var keyOrder []string
	seen := make(map[string]bool)

	for idx, in := range spec.Inputs {
		records, ok := store.Get(in.Name)
		if !ok {
			return nil, fmt.Errorf("%s: input %q not evaluated", addr, in.Name)
		}
		byKey := make(map[string]source.Record, len(records))
		for ri, rec := range records {
			keyVal, err := e.eval.One(in.Pivot, rec)
			if err != nil {
				return nil, fmt.Errorf("%s: input %q record %d: pivot: %w", addr, in.Name, ri, err)
			}
			k := pivotKey(keyVal)
			byKey[k] = rec
			if !seen[k] {
				seen[k] = true
				keyOrder = append(keyOrder, k)
			}
		}
		perInput[idx] = byKey
	}

	// Field application order: declared order with the tie-break moved
	// to the end. Config validation guarantees exactly one tie-break.
	applyOrder := make([]int, 0, len(spec.Inputs))
	tieBreak := -1
	for i, in := range spec.Inputs {
		if in.TieBreak {
			tieBreak = i
		} else {
			applyOrder = append(applyOrder, i)
		}
	}
	applyOrder = append(applyOrder, tieBreak)

	out := make([]source.Record, 0, len(keyOrder))
	for _, k := range keyOrder {
		merged := make(source.Record)
		for _, idx := range applyOrder {
			if rec, ok := perInput[idx][k]; ok {
				for field, v := range rec {
					merged[field] = v
				}
			}
		}
		out = append(out, merged)
	}
	return out, nil
}
