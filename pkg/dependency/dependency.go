// Package dependency orders form fields so that every field is handled after
// the fields its rules read.
package dependency

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/form"
	"github.com/goliatone/go-xsdform/pkg/rules"
)

// ErrCycle is wrapped by CycleError.
var ErrCycle = errors.New("dependency: cycle in rule dependencies")

// CycleError names every field that could not be leveled and the
// dependencies it was still waiting on.
type CycleError struct {
	Stuck map[string][]string
}

func (e *CycleError) Error() string {
	fields := make([]string, 0, len(e.Stuck))
	for f := range e.Stuck {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s waits on [%s]", f, strings.Join(e.Stuck[f], ", ")))
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(parts, "; "))
}

// Unwrap allows errors.Is(err, ErrCycle).
func (e *CycleError) Unwrap() error { return ErrCycle }

// Graph has an edge from every trigger field to every field whose rule reads
// it. Only fields in the node set take part.
type Graph struct {
	fields     []string
	deps       map[string]map[string]bool
	dependents map[string]map[string]bool
}

// Build creates a graph over fields. Rule targets and triggers outside
// fields are ignored; section targets therefore never become nodes.
func Build(fields []string, set rules.RuleSet) *Graph {
	g := &Graph{
		deps:       make(map[string]map[string]bool),
		dependents: make(map[string]map[string]bool),
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		if known[f] {
			continue
		}
		known[f] = true
		g.fields = append(g.fields, f)
	}
	sort.Strings(g.fields)

	for _, r := range set.Rules {
		if !known[r.Target] || r.Condition == nil {
			continue
		}
		for _, trigger := range r.Condition.Triggers() {
			if !known[trigger] {
				continue
			}
			addEdge(g.deps, r.Target, trigger)
			addEdge(g.dependents, trigger, r.Target)
		}
	}
	return g
}

// FromTree builds the graph over the fields that have at least one slot in
// tree.
func FromTree(tree *form.Tree, set rules.RuleSet) *Graph {
	var fields []string
	for _, s := range tree.AllSlots() {
		fields = append(fields, s.Def().Path)
	}
	return Build(fields, set)
}

func addEdge(m map[string]map[string]bool, from, to string) {
	if m[from] == nil {
		m[from] = make(map[string]bool)
	}
	m[from][to] = true
}

// Fields returns the node set, sorted.
func (g *Graph) Fields() []string {
	return append([]string(nil), g.fields...)
}

// Dependencies returns the fields path waits on, sorted.
func (g *Graph) Dependencies(path string) []string {
	return sortedSet(g.deps[path])
}

// Dependents returns the fields that read path, sorted.
func (g *Graph) Dependents(path string) []string {
	return sortedSet(g.dependents[path])
}

// Levels partitions the fields by repeated in-degree reduction. Level 0
// holds fields without dependencies; every later level holds fields whose
// dependencies all sit in earlier levels. Each level is sorted. When any
// field keeps a pending dependency, no levels are returned and the error is
// a *CycleError.
func (g *Graph) Levels() ([][]string, error) {
	inDegree := make(map[string]int, len(g.fields))
	for _, f := range g.fields {
		inDegree[f] = len(g.deps[f])
	}

	var queue []string
	for _, f := range g.fields {
		if inDegree[f] == 0 {
			queue = append(queue, f)
		}
	}

	var levels [][]string
	for len(queue) > 0 {
		levels = append(levels, queue)
		var next []string
		for _, u := range queue {
			for _, v := range g.Dependents(u) {
				inDegree[v]--
				if inDegree[v] == 0 {
					next = append(next, v)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	stuck := make(map[string][]string)
	resolved := make(map[string]bool, len(g.fields))
	for _, level := range levels {
		for _, f := range level {
			resolved[f] = true
		}
	}
	for _, f := range g.fields {
		if inDegree[f] == 0 {
			continue
		}
		var pending []string
		for _, dep := range g.Dependencies(f) {
			if !resolved[dep] {
				pending = append(pending, dep)
			}
		}
		stuck[f] = pending
	}
	if len(stuck) > 0 {
		return nil, &CycleError{Stuck: stuck}
	}
	return levels, nil
}

// Levels is a shortcut for FromTree(tree, set).Levels().
func Levels(tree *form.Tree, set rules.RuleSet) ([][]string, error) {
	return FromTree(tree, set).Levels()
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
