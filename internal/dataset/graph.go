package dataset

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/ctxlog"
)

// Node states, stored atomically so workers can inspect them lock-free.
const (
	statePending int32 = iota
	stateRunning
	stateDone
	stateFailed
)

// Graph is the dataset dependency DAG: an arena of nodes keyed by name,
// with edges resolved after the full configuration parse.
type Graph struct {
	Nodes map[string]*Node
	// Order preserves declaration order for deterministic diagnostics.
	Order []string
}

// Node is a single dataset in the graph.
type Node struct {
	Name string
	Spec *config.Dataset

	// Deps are the datasets this node consumes; Dependents the reverse.
	Deps       map[string]*Node
	Dependents map[string]*Node

	depCount atomic.Int32
	state    atomic.Int32
	skipOnce sync.Once
	Err      error
}

// Build constructs the dependency graph from a config model and rejects
// cycles. Unresolved references were already caught at config load;
// they are re-checked here so the graph package stands on its own.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	graph := &Graph{Nodes: make(map[string]*Node, len(model.Datasets))}

	// First pass: create all nodes.
	for _, name := range model.DatasetOrder {
		graph.Nodes[name] = &Node{
			Name:       name,
			Spec:       model.Datasets[name],
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
		graph.Order = append(graph.Order, name)
	}
	logger.Debug("Graph nodes created.", "count", len(graph.Nodes))

	// Second pass: link edges.
	for _, name := range graph.Order {
		node := graph.Nodes[name]
		for _, dep := range node.Spec.DependsOn() {
			if dep == name {
				return nil, &config.Error{Address: node.Spec.Address(), Msg: "dataset depends on itself"}
			}
			depNode, ok := graph.Nodes[dep]
			if !ok {
				return nil, &config.Error{Address: node.Spec.Address(), Msg: fmt.Sprintf("references undeclared data_set %q", dep)}
			}
			node.Deps[dep] = depNode
			depNode.Dependents[name] = node
		}
	}
	logger.Debug("Graph edges linked.")

	// Third pass: initialize dependency counters.
	for _, node := range graph.Nodes {
		node.depCount.Store(int32(len(node.Deps)))
	}

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Cycle detection passed.")
	return graph, nil
}

// detectCycles runs a classic three-color depth-first search:
// permanent nodes are fully visited, temporary nodes are on the current
// recursion stack, everything else is unvisited.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.Name] {
			return nil
		}
		if temporary[n.Name] {
			return &config.Error{Address: n.Spec.Address(), Msg: "dependency cycle detected"}
		}

		temporary[n.Name] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.Name)
		permanent[n.Name] = true
		return nil
	}

	// Iterate in declaration order so the reported cycle node is stable.
	for _, name := range g.Order {
		if !permanent[name] {
			if err := visit(g.Nodes[name]); err != nil {
				return err
			}
		}
	}
	return nil
}
