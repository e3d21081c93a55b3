// Package graph implements the dependency graph used for ahead-of-time
// validation of resolution rules and for reporting circular dependencies.
package graph

import (
	"reflect"
	"sort"
	"sync"
)

// Graph is a directed graph keyed by service type. An edge A -> B means
// "constructing A requires B".
type Graph struct {
	mu    sync.RWMutex
	nodes map[reflect.Type]struct{}
	edges map[reflect.Type][]reflect.Type
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[reflect.Type]struct{}),
		edges: make(map[reflect.Type][]reflect.Type),
	}
}

// AddNode records a type as provided by some rule. Adding a node twice is
// a no-op.
func (g *Graph) AddNode(t reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[t] = struct{}{}
}

// AddEdge records that constructing from depends on to. Both endpoints are
// added as nodes if not already present; to may refer to a type with no
// rule of its own (see Missing).
func (g *Graph) AddEdge(from, to reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[from] = struct{}{}
	g.edges[from] = append(g.edges[from], to)
}

// Has reports whether t was added as a node.
func (g *Graph) Has(t reflect.Type) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[t]
	return ok
}

// Missing returns every edge target that has no node of its own, i.e.
// every dependency with no declared rule. The result is sorted by type
// name so validation output is stable.
func (g *Graph) Missing() []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[reflect.Type]struct{})
	var missing []reflect.Type
	for _, deps := range g.edges {
		for _, dep := range deps {
			if _, ok := g.nodes[dep]; ok {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			missing = append(missing, dep)
		}
	}

	sort.Slice(missing, func(i, j int) bool {
		return missing[i].String() < missing[j].String()
	})
	return missing
}

// DetectCycle searches the graph for a cycle. It returns nil if the graph
// is acyclic, otherwise a CircularDependencyError describing one cycle.
func (g *Graph) DetectCycle() *CircularDependencyError {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)

	color := make(map[reflect.Type]int, len(g.nodes))
	var stack []reflect.Type

	var visit func(t reflect.Type) *CircularDependencyError
	visit = func(t reflect.Type) *CircularDependencyError {
		color[t] = gray
		stack = append(stack, t)

		for _, dep := range g.edges[t] {
			switch color[dep] {
			case gray:
				// Trim the stack down to the start of the cycle and close it.
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				path := make([]reflect.Type, 0, len(stack)-start+1)
				path = append(path, stack[start:]...)
				path = append(path, dep)
				return &CircularDependencyError{Path: path}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[t] = black
		return nil
	}

	// Iterate in a stable order so repeated calls report the same cycle.
	types := make([]reflect.Type, 0, len(g.nodes))
	for t := range g.nodes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})

	for _, t := range types {
		if color[t] != white {
			continue
		}
		if err := visit(t); err != nil {
			return err
		}
	}

	return nil
}
