package engine

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/agentrig/agentrig/internal/resource"
)

// Graph is the fixed, acyclic mapping from resource type to its prerequisite
// types. It is built once per module from the descriptor set and never
// mutated at runtime; both the step runner and the cleanup coordinator
// consult it, the runner for creation order and the coordinator for the
// reverse.
type Graph struct {
	order []resource.Type // topological creation order
	deps  map[resource.Type][]resource.Type
}

// NewGraph builds the dependency graph for a descriptor set. Edges come from
// explicit DependsOn entries and from implicit ref:// references inside
// specs. Construction fails on a dependency cycle or on a DependsOn target
// no descriptor provides.
func NewGraph(descriptors []*resource.Descriptor) (*Graph, error) {
	byKey := make(map[string]*resource.Descriptor, len(descriptors))
	present := make(map[resource.Type]bool, len(descriptors))
	for _, d := range descriptors {
		byKey[d.Key] = d
		present[d.Type] = true
	}

	typeHash := func(t resource.Type) resource.Type { return t }
	g := graph.New(typeHash, graph.Directed(), graph.Acyclic())

	for _, d := range descriptors {
		if err := g.AddVertex(d.Type); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add %q to dependency graph: %w", d.Type, err)
		}
	}

	deps := make(map[resource.Type][]resource.Type)
	addEdge := func(from, to resource.Type) error {
		err := g.AddEdge(from, to)
		switch {
		case err == nil:
			deps[to] = append(deps[to], from)
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
			// duplicate declaration, fine
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			return fmt.Errorf("dependency cycle detected: %q <-> %q", from, to)
		default:
			return fmt.Errorf("failed to add dependency edge %q -> %q: %w", from, to, err)
		}
		return nil
	}

	for _, d := range descriptors {
		for _, dep := range d.DependsOn {
			if !resource.IsKnown(dep) {
				return nil, fmt.Errorf("resource %q depends on unknown type %q", d.Key, dep)
			}
			if !present[dep] {
				// Satisfied by an earlier module; no edge to order here,
				// but still a prerequisite the runner must verify.
				deps[d.Type] = append(deps[d.Type], dep)
				continue
			}
			if err := addEdge(dep, d.Type); err != nil {
				return nil, err
			}
		}
		// Implicit edges from ref://<key>/<field> spec values.
		for _, ref := range extractRefs(d.Spec) {
			target, ok := byKey[refKey(ref)]
			if !ok || target.Type == d.Type {
				continue
			}
			if err := addEdge(target.Type, d.Type); err != nil {
				return nil, err
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b resource.Type) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to order dependency graph: %w", err)
	}

	return &Graph{order: order, deps: deps}, nil
}

// TopologicalOrder returns resource types in dependency-respecting creation
// order.
func (g *Graph) TopologicalOrder() []resource.Type {
	out := make([]resource.Type, len(g.order))
	copy(out, g.order)
	return out
}

// TeardownOrder returns resource types in reverse creation order, safe for
// deletion.
func (g *Graph) TeardownOrder() []resource.Type {
	out := make([]resource.Type, len(g.order))
	for i, t := range g.order {
		out[len(g.order)-1-i] = t
	}
	return out
}

// Dependencies returns the prerequisite types of t.
func (g *Graph) Dependencies(t resource.Type) []resource.Type {
	return g.deps[t]
}

// Sort orders descriptors into creation order. Descriptors of the same type
// keep their relative input order.
func (g *Graph) Sort(descriptors []*resource.Descriptor) []*resource.Descriptor {
	out := make([]*resource.Descriptor, 0, len(descriptors))
	for _, t := range g.order {
		for _, d := range descriptors {
			if d.Type == t {
				out = append(out, d)
			}
		}
	}
	return out
}
