package config

import (
	"github.com/a-delannoy/yaani/internal/query"
)

// validate performs the full cross-reference and expression-syntax check
// over an assembled model. Every failure here is a configuration error
// raised before any fetch happens.
func validate(model *Model, eval *query.Evaluator) error {
	for _, name := range model.DatasetOrder {
		if err := validateDataset(model, model.Datasets[name], eval); err != nil {
			return err
		}
	}
	return validateRender(model, eval)
}

func validateDataset(model *Model, ds *Dataset, eval *query.Evaluator) error {
	addr := ds.Address()

	// Every dataset reference must resolve to a declared dataset.
	for _, dep := range ds.DependsOn() {
		if _, ok := model.Datasets[dep]; !ok {
			return errf(addr, "references undeclared data_set %q", dep)
		}
	}

	switch ds.Kind {
	case DatasetExtract:
		src, ok := model.Sources[ds.Extract.Source]
		if !ok {
			return errf(addr, "references undeclared data_source %q", ds.Extract.Source)
		}
		switch src.Kind {
		case SourceAPI:
			if ds.Extract.App == "" || ds.Extract.Type == "" {
				return errf(addr, "extraction from an api source requires both app and type")
			}
			if ds.Extract.Format != "" || ds.Extract.Expr != "" {
				return errf(addr, "format and expr only apply to file and script sources")
			}
		case SourceFile, SourceScript:
			if ds.Extract.Format != "yaml" && ds.Extract.Format != "json" {
				return errf(addr, "extraction from a %s source requires format %q or %q", src.Kind, "yaml", "json")
			}
			if len(ds.Extract.Filters) > 0 || ds.Extract.App != "" || ds.Extract.Type != "" {
				return errf(addr, "app, type and filters only apply to api sources")
			}
			if ds.Extract.Expr != "" {
				if err := eval.Check(ds.Extract.Expr); err != nil {
					return errf(addr, "expr: %v", err)
				}
			}
		}

	case DatasetFilter:
		if err := eval.Check(ds.Filter.Expr); err != nil {
			return errf(addr, "expr: %v", err)
		}

	case DatasetMerge:
		if len(ds.Merge.Inputs) < 2 {
			return errf(addr, "merge requires at least two inputs, got %d", len(ds.Merge.Inputs))
		}
		tieBreaks := 0
		seen := make(map[string]bool)
		for _, in := range ds.Merge.Inputs {
			if seen[in.Name] {
				return errf(addr, "data_set %q listed twice as merge input", in.Name)
			}
			seen[in.Name] = true
			if in.TieBreak {
				tieBreaks++
			}
			if err := eval.Check(in.Pivot); err != nil {
				return errf(addr, "input %q pivot: %v", in.Name, err)
			}
		}
		if tieBreaks != 1 {
			return errf(addr, "merge requires exactly one tie_break input, got %d", tieBreaks)
		}

	case DatasetDecorate:
		if err := eval.Check(ds.Decorate.Pivot); err != nil {
			return errf(addr, "pivot: %v", err)
		}
		if len(ds.Decorate.Decorators) == 0 {
			return errf(addr, "decoration requires at least one decorator")
		}
		anchors := make(map[string]string)
		for _, dec := range ds.Decorate.Decorators {
			if dec.Anchor == "" {
				return errf(addr, "decorator %q: anchor must not be empty", dec.Name)
			}
			if prev, dup := anchors[dec.Anchor]; dup {
				return errf(addr, "anchor %q declared by both %q and %q", dec.Anchor, prev, dec.Name)
			}
			anchors[dec.Anchor] = dec.Name
			if err := eval.Check(dec.Pivot); err != nil {
				return errf(addr, "decorator %q pivot: %v", dec.Name, err)
			}
		}
	}
	return nil
}

func validateRender(model *Model, eval *query.Evaluator) error {
	names := make(map[string]bool)
	for _, el := range model.Render.Elements {
		addr := "render.element." + el.Name
		if names[el.Name] {
			return errf(addr, "duplicate render element name %q", el.Name)
		}
		names[el.Name] = true

		if _, ok := model.Datasets[el.Dataset]; !ok {
			return errf(addr, "references undeclared data_set %q", el.Dataset)
		}
		for _, expr := range []string{el.PreCondition, el.Index, el.PostCondition, el.Group} {
			if expr == "" {
				continue
			}
			if err := eval.Check(expr); err != nil {
				return errf(addr, "%v", err)
			}
		}
		for varName, expr := range el.HostVars {
			if err := eval.Check(expr); err != nil {
				return errf(addr, "host_vars.%s: %v", varName, err)
			}
		}
	}

	for _, gv := range model.Render.GroupVars {
		if _, ok := model.Datasets[gv.Dataset]; !ok {
			return errf("render.group_vars."+gv.Group, "references undeclared data_set %q", gv.Dataset)
		}
	}
	return nil
}
