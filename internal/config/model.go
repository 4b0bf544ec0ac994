package config

import "fmt"

// SourceKind enumerates the declared data source variants.
type SourceKind string

const (
	SourceAPI    SourceKind = "api"
	SourceFile   SourceKind = "file"
	SourceScript SourceKind = "script"
)

// DatasetKind enumerates the dataset evaluation rules.
type DatasetKind string

const (
	DatasetExtract  DatasetKind = "extract"
	DatasetFilter   DatasetKind = "filter"
	DatasetMerge    DatasetKind = "merge"
	DatasetDecorate DatasetKind = "decorate"
)

// Model is the unified representation of the entire pipeline
// configuration: declared sources, the dataset graph, the render
// specification and the transform chain.
type Model struct {
	Sources  map[string]*Source
	Datasets map[string]*Dataset
	// DatasetOrder preserves declaration order for deterministic
	// iteration; Datasets is the by-name index.
	DatasetOrder []string
	Render       *Render
	// Transform lists hook names to apply, in order, after rendering.
	Transform []string
}

// Source declares one named data source. Exactly one of API, File and
// Script is non-nil, matching Kind.
type Source struct {
	Name   string
	Kind   SourceKind
	API    *APISource
	File   *FileSource
	Script *ScriptSource
}

// APISource holds connection arguments for an inventory-management API
// (Netbox-style REST with offset pagination).
type APISource struct {
	URL      string
	Token    string
	Timeout  string
	PageSize int
}

// FileSource points at a flat file on disk.
type FileSource struct {
	Path string
}

// ScriptSource invokes an external executable and reads its stdout.
type ScriptSource struct {
	Command string
	Args    []string
}

// Dataset declares one node of the dataset graph. Exactly one of the
// kind-specific argument structs is non-nil, matching Kind.
type Dataset struct {
	Name     string
	Kind     DatasetKind
	Extract  *Extract
	Filter   *Filter
	Merge    *Merge
	Decorate *Decorate
}

// DependsOn returns the names of the datasets this dataset consumes.
// Extract datasets depend on a source, not on other datasets, so they
// return nil.
func (d *Dataset) DependsOn() []string {
	switch d.Kind {
	case DatasetFilter:
		return []string{d.Filter.Input}
	case DatasetMerge:
		deps := make([]string, 0, len(d.Merge.Inputs))
		for _, in := range d.Merge.Inputs {
			deps = append(deps, in.Name)
		}
		return deps
	case DatasetDecorate:
		deps := []string{d.Decorate.Main}
		for _, dec := range d.Decorate.Decorators {
			deps = append(deps, dec.Name)
		}
		return deps
	default:
		return nil
	}
}

// Address returns the configuration address of the dataset, used in
// error messages.
func (d *Dataset) Address() string {
	return fmt.Sprintf("data_set.%s.%s", d.Kind, d.Name)
}

// Extract fetches raw records from a declared source. App, Type and
// Filters refine an API fetch; Format and Expr drive decoding and
// sequence extraction for file and script sources.
type Extract struct {
	Source string
	App    string
	Type   string
	// Filters are field-level selection criteria passed to the API.
	Filters map[string]any
	// Format is the content type of file/script output: "yaml" or "json".
	Format string
	// Expr is the post-fetch query expression that extracts the wanted
	// record sequence from the decoded content.
	Expr string
}

// Filter applies a query expression to every record of one input
// dataset. Each record may expand to zero, one or many output records.
type Filter struct {
	Input string
	Expr  string
}

// Merge is an N-way full outer join across the named inputs.
type Merge struct {
	Inputs []MergeInput
}

// MergeInput names one merge participant and the pivot expression that
// computes its join key. Exactly one input per merge declares TieBreak;
// its fields win any conflict.
type MergeInput struct {
	Name     string
	Pivot    string
	TieBreak bool
}

// Decorate is a left outer join: Main supplies the output row set, each
// decorator attaches a matched record under its anchor key.
type Decorate struct {
	Main       string
	Pivot      string
	Decorators []Decorator
}

// Decorator names one decoration participant.
type Decorator struct {
	Name   string
	Pivot  string
	Anchor string
}

// Render describes how evaluated datasets become an inventory.
type Render struct {
	Elements  []*Element
	GroupVars []*GroupVarsBinding
	Hierarchy []*Group
}

// Element turns one dataset into inventory hosts and their variables.
type Element struct {
	Name          string
	Dataset       string
	PreCondition  string
	Index         string
	HostVars      map[string]string
	PostCondition string
	// Group is a query expression producing the group a host joins;
	// GroupPrefix is prepended to the produced name.
	Group       string
	GroupPrefix string
	// LenientVars downgrades a failing host_vars expression from a fatal
	// error to a warning that omits the one variable.
	LenientVars bool
}

// GroupVarsBinding attaches a dataset's records as variables of a group.
type GroupVarsBinding struct {
	Group   string
	Dataset string
}

// Group is one node of the group hierarchy forest.
type Group struct {
	Name     string
	Children []*Group
}
