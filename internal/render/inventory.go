package render

import (
	"maps"
	"slices"
)

// RootGroup is the group every rendered host joins, mirroring Ansible's
// implicit "all".
const RootGroup = "all"

// Inventory is the rendered result: groups and per-host variables.
type Inventory struct {
	Groups   map[string]*Group
	HostVars map[string]map[string]any
}

// Group is one inventory group: member hosts, group variables and child
// groups.
type Group struct {
	Hosts    map[string]struct{}
	Vars     map[string]any
	Children map[string]struct{}
}

func newGroup() *Group {
	return &Group{
		Hosts:    make(map[string]struct{}),
		Vars:     make(map[string]any),
		Children: make(map[string]struct{}),
	}
}

// NewInventory returns an empty inventory with the root group
// materialized.
func NewInventory() *Inventory {
	inv := &Inventory{
		Groups:   make(map[string]*Group),
		HostVars: make(map[string]map[string]any),
	}
	inv.EnsureGroup(RootGroup)
	return inv
}

// EnsureGroup returns the named group, creating it if needed.
func (inv *Inventory) EnsureGroup(name string) *Group {
	g, ok := inv.Groups[name]
	if !ok {
		g = newGroup()
		inv.Groups[name] = g
	}
	return g
}

// AddHost registers a host with its variables and places it in the root
// group. Variables of a host rendered by several elements merge, later
// values winning per variable.
func (inv *Inventory) AddHost(host string, vars map[string]any) {
	existing, ok := inv.HostVars[host]
	if !ok {
		existing = make(map[string]any, len(vars))
		inv.HostVars[host] = existing
	}
	for k, v := range vars {
		existing[k] = v
	}
	inv.EnsureGroup(RootGroup).Hosts[host] = struct{}{}
}

// AddHostToGroup places an already-registered host in a group.
func (inv *Inventory) AddHostToGroup(host, group string) {
	inv.EnsureGroup(group).Hosts[host] = struct{}{}
}

// ToAnsible exports the inventory in the Ansible dynamic inventory
// shape: one entry per group with sorted host and children lists, plus
// the _meta.hostvars mapping. Ordering is deterministic.
func (inv *Inventory) ToAnsible() map[string]any {
	out := make(map[string]any, len(inv.Groups)+1)

	for _, name := range slices.Sorted(maps.Keys(inv.Groups)) {
		g := inv.Groups[name]
		entry := map[string]any{
			"hosts": slices.Sorted(maps.Keys(g.Hosts)),
		}
		if len(g.Vars) > 0 {
			entry["vars"] = g.Vars
		}
		if len(g.Children) > 0 {
			entry["children"] = slices.Sorted(maps.Keys(g.Children))
		}
		out[name] = entry
	}

	hostvars := make(map[string]any, len(inv.HostVars))
	for host, vars := range inv.HostVars {
		hostvars[host] = vars
	}
	out["_meta"] = map[string]any{"hostvars": hostvars}
	return out
}
