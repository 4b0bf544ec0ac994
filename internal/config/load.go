package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/a-delannoy/yaani/internal/ctxlog"
	"github.com/a-delannoy/yaani/internal/query"
)

// FileExtension is the configuration file suffix the loader accepts.
const FileExtension = ".hcl"

// fileConfig mirrors the top-level HCL structure of one file. Kind
// dispatch of data_source and data_set bodies happens in a second pass.
type fileConfig struct {
	Sources   []*sourceBlock  `hcl:"data_source,block"`
	Datasets  []*datasetBlock `hcl:"data_set,block"`
	Renders   []*renderBlock  `hcl:"render,block"`
	Transform *transformBlock `hcl:"transform,block"`
}

type sourceBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type datasetBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type renderBlock struct {
	Elements  []*elementBlock   `hcl:"element,block"`
	GroupVars []*groupVarsBlock `hcl:"group_vars,block"`
	Groups    []*groupBlock     `hcl:"group,block"`
}

type elementBlock struct {
	Name          string            `hcl:"name,label"`
	Dataset       string            `hcl:"dataset"`
	PreCondition  string            `hcl:"pre_condition,optional"`
	Index         string            `hcl:"index,optional"`
	HostVars      map[string]string `hcl:"host_vars,optional"`
	PostCondition string            `hcl:"post_condition,optional"`
	Group         string            `hcl:"group,optional"`
	GroupPrefix   string            `hcl:"group_prefix,optional"`
	LenientVars   bool              `hcl:"lenient_vars,optional"`
}

type groupVarsBlock struct {
	Group   string `hcl:"group,label"`
	Dataset string `hcl:"dataset"`
}

type groupBlock struct {
	Name     string        `hcl:"name,label"`
	Children []*groupBlock `hcl:"group,block"`
}

type transformBlock struct {
	Hooks []string `hcl:"hooks"`
}

// Kind-specific data_source bodies.

type apiSourceArgs struct {
	URL      string `hcl:"url"`
	Token    string `hcl:"token,optional"`
	Timeout  string `hcl:"timeout,optional"`
	PageSize int    `hcl:"page_size,optional"`
}

type fileSourceArgs struct {
	Path string `hcl:"path"`
}

type scriptSourceArgs struct {
	Command string   `hcl:"command"`
	Args    []string `hcl:"args,optional"`
}

// Kind-specific data_set bodies.

type extractArgs struct {
	Source  string         `hcl:"source"`
	App     string         `hcl:"app,optional"`
	Type    string         `hcl:"type,optional"`
	Filters hcl.Expression `hcl:"filters,optional"`
	Format  string         `hcl:"format,optional"`
	Expr    string         `hcl:"expr,optional"`
}

type filterArgs struct {
	Input string `hcl:"input"`
	Expr  string `hcl:"expr"`
}

type mergeArgs struct {
	Inputs []*mergeInputBlock `hcl:"input,block"`
}

type mergeInputBlock struct {
	Name     string `hcl:"name,label"`
	Pivot    string `hcl:"pivot"`
	TieBreak bool   `hcl:"tie_break,optional"`
}

type decorateArgs struct {
	Main       string            `hcl:"main"`
	Pivot      string            `hcl:"pivot"`
	Decorators []*decoratorBlock `hcl:"decorator,block"`
}

type decoratorBlock struct {
	Name   string `hcl:"name,label"`
	Pivot  string `hcl:"pivot"`
	Anchor string `hcl:"anchor"`
}

// Load parses the given HCL files into a validated Model. All
// cross-reference and expression-syntax checks run here; a Model
// returned without error is safe to evaluate.
func Load(ctx context.Context, eval *query.Evaluator, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	var fcs []*fileConfig
	for _, path := range paths {
		hclFile, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, &Error{Msg: fmt.Sprintf("parsing %s: %s", path, diags.Error())}
		}
		fc, err := decodeFile(hclFile)
		if err != nil {
			return nil, err
		}
		fcs = append(fcs, fc)
		logger.Debug("Parsed configuration file.", "path", path)
	}

	return assemble(ctx, eval, fcs)
}

// LoadBytes parses in-memory HCL, primarily for tests.
func LoadBytes(ctx context.Context, eval *query.Evaluator, filename string, src []byte) (*Model, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, &Error{Msg: fmt.Sprintf("parsing %s: %s", filename, diags.Error())}
	}
	fc, err := decodeFile(hclFile)
	if err != nil {
		return nil, err
	}
	return assemble(ctx, eval, []*fileConfig{fc})
}

func decodeFile(f *hcl.File) (*fileConfig, error) {
	var fc fileConfig
	if diags := gohcl.DecodeBody(f.Body, nil, &fc); diags.HasErrors() {
		return nil, &Error{Msg: diags.Error()}
	}
	return &fc, nil
}

// assemble merges per-file configs into one Model, dispatching each
// block body by its kind label, then validates the result.
func assemble(ctx context.Context, eval *query.Evaluator, fcs []*fileConfig) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &Model{
		Sources:  make(map[string]*Source),
		Datasets: make(map[string]*Dataset),
		Render:   &Render{},
	}

	for _, fc := range fcs {
		for _, sb := range fc.Sources {
			src, err := decodeSource(sb)
			if err != nil {
				return nil, err
			}
			if _, exists := model.Sources[src.Name]; exists {
				return nil, errf(sb.address(), "duplicate data_source name %q", src.Name)
			}
			model.Sources[src.Name] = src
		}

		for _, db := range fc.Datasets {
			ds, err := decodeDataset(db)
			if err != nil {
				return nil, err
			}
			if _, exists := model.Datasets[ds.Name]; exists {
				return nil, errf(db.address(), "duplicate data_set name %q", ds.Name)
			}
			model.Datasets[ds.Name] = ds
			model.DatasetOrder = append(model.DatasetOrder, ds.Name)
		}

		for _, rb := range fc.Renders {
			for _, eb := range rb.Elements {
				model.Render.Elements = append(model.Render.Elements, &Element{
					Name:          eb.Name,
					Dataset:       eb.Dataset,
					PreCondition:  eb.PreCondition,
					Index:         eb.Index,
					HostVars:      eb.HostVars,
					PostCondition: eb.PostCondition,
					Group:         eb.Group,
					GroupPrefix:   eb.GroupPrefix,
					LenientVars:   eb.LenientVars,
				})
			}
			for _, gv := range rb.GroupVars {
				model.Render.GroupVars = append(model.Render.GroupVars, &GroupVarsBinding{
					Group:   gv.Group,
					Dataset: gv.Dataset,
				})
			}
			for _, gb := range rb.Groups {
				model.Render.Hierarchy = append(model.Render.Hierarchy, convertGroup(gb))
			}
		}

		if fc.Transform != nil {
			model.Transform = append(model.Transform, fc.Transform.Hooks...)
		}
	}

	if err := validate(model, eval); err != nil {
		return nil, err
	}
	logger.Debug("Configuration model assembled.",
		"sources", len(model.Sources),
		"datasets", len(model.Datasets),
		"render_elements", len(model.Render.Elements),
	)
	return model, nil
}

func (sb *sourceBlock) address() string {
	return fmt.Sprintf("data_source.%s.%s", sb.Kind, sb.Name)
}

func (db *datasetBlock) address() string {
	return fmt.Sprintf("data_set.%s.%s", db.Kind, db.Name)
}

func decodeSource(sb *sourceBlock) (*Source, error) {
	src := &Source{Name: sb.Name, Kind: SourceKind(sb.Kind)}
	switch src.Kind {
	case SourceAPI:
		var args apiSourceArgs
		if diags := gohcl.DecodeBody(sb.Body, nil, &args); diags.HasErrors() {
			return nil, errf(sb.address(), "%s", diags.Error())
		}
		src.API = &APISource{URL: args.URL, Token: args.Token, Timeout: args.Timeout, PageSize: args.PageSize}
	case SourceFile:
		var args fileSourceArgs
		if diags := gohcl.DecodeBody(sb.Body, nil, &args); diags.HasErrors() {
			return nil, errf(sb.address(), "%s", diags.Error())
		}
		src.File = &FileSource{Path: args.Path}
	case SourceScript:
		var args scriptSourceArgs
		if diags := gohcl.DecodeBody(sb.Body, nil, &args); diags.HasErrors() {
			return nil, errf(sb.address(), "%s", diags.Error())
		}
		src.Script = &ScriptSource{Command: args.Command, Args: args.Args}
	default:
		return nil, errf(sb.address(), "unknown data_source kind %q", sb.Kind)
	}
	return src, nil
}

func decodeDataset(db *datasetBlock) (*Dataset, error) {
	ds := &Dataset{Name: db.Name, Kind: DatasetKind(db.Kind)}
	switch ds.Kind {
	case DatasetExtract:
		var args extractArgs
		if diags := gohcl.DecodeBody(db.Body, nil, &args); diags.HasErrors() {
			return nil, errf(db.address(), "%s", diags.Error())
		}
		ext := &Extract{Source: args.Source, App: args.App, Type: args.Type, Format: args.Format, Expr: args.Expr}
		if args.Filters != nil {
			val, diags := args.Filters.Value(nil)
			if diags.HasErrors() {
				return nil, errf(db.address(), "filters: %s", diags.Error())
			}
			if !val.IsNull() {
				converted, err := fromCtyValue(val)
				if err != nil {
					return nil, errf(db.address(), "filters: %v", err)
				}
				filters, ok := converted.(map[string]any)
				if !ok {
					return nil, errf(db.address(), "filters must be an object")
				}
				ext.Filters = filters
			}
		}
		ds.Extract = ext
	case DatasetFilter:
		var args filterArgs
		if diags := gohcl.DecodeBody(db.Body, nil, &args); diags.HasErrors() {
			return nil, errf(db.address(), "%s", diags.Error())
		}
		ds.Filter = &Filter{Input: args.Input, Expr: args.Expr}
	case DatasetMerge:
		var args mergeArgs
		if diags := gohcl.DecodeBody(db.Body, nil, &args); diags.HasErrors() {
			return nil, errf(db.address(), "%s", diags.Error())
		}
		m := &Merge{}
		for _, in := range args.Inputs {
			m.Inputs = append(m.Inputs, MergeInput{Name: in.Name, Pivot: in.Pivot, TieBreak: in.TieBreak})
		}
		ds.Merge = m
	case DatasetDecorate:
		var args decorateArgs
		if diags := gohcl.DecodeBody(db.Body, nil, &args); diags.HasErrors() {
			return nil, errf(db.address(), "%s", diags.Error())
		}
		dec := &Decorate{Main: args.Main, Pivot: args.Pivot}
		for _, d := range args.Decorators {
			dec.Decorators = append(dec.Decorators, Decorator{Name: d.Name, Pivot: d.Pivot, Anchor: d.Anchor})
		}
		ds.Decorate = dec
	default:
		return nil, errf(db.address(), "unknown data_set kind %q", db.Kind)
	}
	return ds, nil
}

func convertGroup(gb *groupBlock) *Group {
	g := &Group{Name: gb.Name}
	for _, child := range gb.Children {
		g.Children = append(g.Children, convertGroup(child))
	}
	return g
}
