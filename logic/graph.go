package logic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shubhFreelance/formlogic/config"
)

// dependencyGraph holds the directed edges from each calculated field to the
// fields it reads. Non-calculated fields are leaves: nodes without outgoing
// edges.
type dependencyGraph struct {
	edges map[string][]string
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{edges: make(map[string][]string)}
}

func (g *dependencyGraph) setEdges(from string, to []string) {
	deps := make([]string, len(to))
	copy(deps, to)
	g.edges[from] = deps
}

func (g *dependencyGraph) dependencies(id string) []string {
	return g.edges[id]
}

// clone copies the graph so hypothetical edges can be inserted during
// validation without touching the live one.
func (g *dependencyGraph) clone() *dependencyGraph {
	copied := newDependencyGraph()
	for from, to := range g.edges {
		copied.setEdges(from, to)
	}
	return copied
}

// asMap exports the edges for reporting.
func (g *dependencyGraph) asMap() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for from, to := range g.edges {
		deps := make([]string, len(to))
		copy(deps, to)
		out[from] = deps
	}
	return out
}

const (
	colorUnvisited = iota
	colorInProgress
	colorDone
)

// detectCycle runs a three-colour depth-first traversal over the graph and
// reports the first back edge it finds, naming the fields on the cycle.
// Traversal order is deterministic: sorted node ids.
func (g *dependencyGraph) detectCycle() error {
	nodes := make([]string, 0, len(g.edges))
	for id := range g.edges {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	colors := make(map[string]int, len(nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = colorInProgress
		stack = append(stack, id)
		for _, dep := range g.edges[id] {
			switch colors[dep] {
			case colorInProgress:
				return fmt.Errorf("Circular dependency detected: %s", describeCycle(stack, dep))
			case colorUnvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[id] = colorDone
		return nil
	}

	for _, id := range nodes {
		if colors[id] == colorUnvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func describeCycle(stack []string, repeat string) string {
	start := 0
	for i, id := range stack {
		if id == repeat {
			start = i
			break
		}
	}
	chain := append([]string{}, stack[start:]...)
	chain = append(chain, repeat)
	return strings.Join(chain, " -> ")
}

// topologicalOrder returns the evaluation order across the calculated fields
// in the graph. A field only appears after every calculated field it depends
// on; ties follow the form's display order, then declaration order, so the
// result is stable across calls. The graph must already be acyclic.
func (g *dependencyGraph) topologicalOrder(fields []config.Field) ([]string, error) {
	type node struct {
		id    string
		order int
		index int
	}
	producers := make(map[string]*node)
	nodes := make([]*node, 0, len(g.edges))
	for idx := range fields {
		field := &fields[idx]
		if _, ok := g.edges[field.ID]; !ok {
			continue
		}
		n := &node{id: field.ID, order: field.Order, index: idx}
		producers[field.ID] = n
		nodes = append(nodes, n)
	}

	inDegree := make(map[*node]int, len(nodes))
	successors := make(map[*node][]*node, len(nodes))
	for _, n := range nodes {
		for _, dep := range g.edges[n.id] {
			prod, ok := producers[dep]
			if !ok || prod == n {
				continue
			}
			successors[prod] = append(successors[prod], n)
			inDegree[n]++
		}
	}

	less := func(a, b *node) bool {
		if a.order != b.order {
			return a.order < b.order
		}
		return a.index < b.index
	}

	queue := make([]*node, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return less(queue[i], queue[j]) })

	ordered := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered = append(ordered, n.id)
		for _, succ := range successors[n] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sort.Slice(queue, func(i, j int) bool { return less(queue[i], queue[j]) })
	}

	if len(ordered) != len(nodes) {
		return nil, fmt.Errorf("Circular dependency detected: calculation graph contains a cycle")
	}
	return ordered, nil
}

// buildDependencyGraph derives the graph from every enabled calculated
// field. Edges come from the parsed formula references when the formula
// compiles, otherwise from the declared dependency list, so validation can
// still reason about fields whose formulas are broken.
func buildDependencyGraph(fields []config.Field) *dependencyGraph {
	graph := newDependencyGraph()
	for i := range fields {
		field := &fields[i]
		if !field.IsCalculation() {
			continue
		}
		if parsed, err := parseFormula(field.Calculation.Formula); err == nil {
			graph.setEdges(field.ID, parsed.refs)
			continue
		}
		graph.setEdges(field.ID, field.Calculation.Dependencies)
	}
	return graph
}
