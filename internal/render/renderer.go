package render

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/ctxlog"
	"github.com/a-delannoy/yaani/internal/dataset"
	"github.com/a-delannoy/yaani/internal/query"
	"github.com/a-delannoy/yaani/internal/source"
)

// Error reports a render-stage failure, scoped to the element (and host
// when one is known) that triggered it.
type Error struct {
	Element string
	Host    string
	Msg     string
}

func (e *Error) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("render element %q host %q: %s", e.Element, e.Host, e.Msg)
	}
	return fmt.Sprintf("render element %q: %s", e.Element, e.Msg)
}

// defaultIndexExpr is the host index expression used when an element
// declares none.
const defaultIndexExpr = ".name"

// Renderer builds an Inventory from evaluated datasets and a render
// specification.
type Renderer struct {
	eval  *query.Evaluator
	store *dataset.Store
}

// New returns a Renderer over the given evaluation results.
func New(eval *query.Evaluator, store *dataset.Store) *Renderer {
	return &Renderer{eval: eval, store: store}
}

// Build renders every element, applies group variable bindings and
// materializes the group hierarchy.
func (r *Renderer) Build(ctx context.Context, spec *config.Render) (*Inventory, error) {
	logger := ctxlog.FromContext(ctx)
	inv := NewInventory()

	for _, el := range spec.Elements {
		if err := r.renderElement(ctx, inv, el); err != nil {
			return nil, err
		}
		logger.Debug("Render element done.", "element", el.Name)
	}

	for _, gv := range spec.GroupVars {
		records, ok := r.store.Get(gv.Dataset)
		if !ok {
			return nil, fmt.Errorf("render group_vars %q: data_set %q not evaluated", gv.Group, gv.Dataset)
		}
		group := inv.EnsureGroup(gv.Group)
		for _, rec := range records {
			for k, v := range rec {
				group.Vars[k] = v
			}
		}
	}

	for _, g := range spec.Hierarchy {
		r.materializeGroup(inv, g)
	}

	logger.Debug("Inventory built.", "groups", len(inv.Groups), "hosts", len(inv.HostVars))
	return inv, nil
}

func (r *Renderer) renderElement(ctx context.Context, inv *Inventory, el *config.Element) error {
	logger := ctxlog.FromContext(ctx).With("element", el.Name)

	records, ok := r.store.Get(el.Dataset)
	if !ok {
		return fmt.Errorf("render element %q: data_set %q not evaluated", el.Name, el.Dataset)
	}

	indexExpr := el.Index
	if indexExpr == "" {
		indexExpr = defaultIndexExpr
	}

	seen := make(map[string]bool, len(records))
	for ri, rec := range records {
		if el.PreCondition != "" {
			keep, err := r.eval.Bool(el.PreCondition, rec)
			if err != nil {
				return &Error{Element: el.Name, Msg: fmt.Sprintf("record %d: pre_condition: %v", ri, err)}
			}
			if !keep {
				continue
			}
		}

		idxVal, err := r.eval.One(indexExpr, rec)
		if err != nil {
			return &Error{Element: el.Name, Msg: fmt.Sprintf("record %d: index: %v", ri, err)}
		}
		host, err := hostName(idxVal)
		if err != nil {
			return &Error{Element: el.Name, Msg: fmt.Sprintf("record %d: index: %v", ri, err)}
		}
		if seen[host] {
			return &Error{Element: el.Name, Host: host, Msg: "duplicate host index"}
		}
		seen[host] = true

		vars, err := r.buildHostVars(logger, el, host, rec)
		if err != nil {
			return err
		}

		// post_condition sees the derived variables, allowing exclusion
		// based on values computed during host construction.
		if el.PostCondition != "" {
			keep, err := r.eval.Bool(el.PostCondition, vars)
			if err != nil {
				return &Error{Element: el.Name, Host: host, Msg: fmt.Sprintf("post_condition: %v", err)}
			}
			if !keep {
				continue
			}
		}

		inv.AddHost(host, vars)

		if el.Group != "" {
			groupVal, err := r.eval.One(el.Group, rec)
			if err != nil {
				return &Error{Element: el.Name, Host: host, Msg: fmt.Sprintf("group: %v", err)}
			}
			// A null group leaves the host under the root group only.
			if groupVal != nil {
				name, ok := groupVal.(string)
				if !ok {
					return &Error{Element: el.Name, Host: host, Msg: fmt.Sprintf("group expression produced %T, want string", groupVal)}
				}
				inv.AddHostToGroup(host, el.GroupPrefix+name)
			}
		}
	}
	return nil
}

// buildHostVars evaluates each host_vars entry independently. In
// lenient mode a failing expression only costs that one variable,
// surfaced as a warning.
func (r *Renderer) buildHostVars(logger *slog.Logger, el *config.Element, host string, rec source.Record) (map[string]any, error) {
	vars := make(map[string]any, len(el.HostVars))
	for _, varName := range slices.Sorted(maps.Keys(el.HostVars)) {
		v, err := r.eval.One(el.HostVars[varName], rec)
		if err != nil {
			if el.LenientVars {
				logger.Warn("Omitting host variable.", "host", host, "var", varName, "error", err)
				continue
			}
			return nil, &Error{Element: el.Name, Host: host, Msg: fmt.Sprintf("host_vars.%s: %v", varName, err)}
		}
		vars[varName] = v
	}
	return vars, nil
}

// hostName converts an index value to the host name. Strings pass
// through; integral numbers are formatted; anything else is rejected.
func hostName(v any) (string, error) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", fmt.Errorf("produced an empty string")
		}
		return t, nil
	case int:
		return fmt.Sprintf("%d", t), nil
	case float64:
		return fmt.Sprintf("%v", t), nil
	default:
		return "", fmt.Errorf("produced %T, want string or number", v)
	}
}

func (r *Renderer) materializeGroup(inv *Inventory, g *config.Group) {
	group := inv.EnsureGroup(g.Name)
	for _, child := range g.Children {
		group.Children[child.Name] = struct{}{}
		r.materializeGroup(inv, child)
	}
}
