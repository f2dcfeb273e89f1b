package pipeline

import (
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/internal/store"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Graph is a validated, acyclic set of steps. Edges go from a dependency to its dependent.
// A Graph is never mutated once built.
type Graph struct {
	graph graph.Graph[string, *model.StepInfo]
	store *store.OrderedStore[string, *model.StepInfo]
	order []string
}

// Order returns the execution order.
func (g *Graph) Order() []string {
	res := make([]string, len(g.order))
	copy(res, g.order)

	return res
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	return len(g.order)
}

// Step returns a copy of a step declaration.
func (g *Graph) Step(id string) (*model.StepInfo, bool) {
	step, err := g.graph.Vertex(id)
	if err != nil {
		return nil, false
	}

	return step.Clone(), true
}

// Steps returns copies of every step, in execution order.
func (g *Graph) Steps() []*model.StepInfo {
	steps := make([]*model.StepInfo, 0, len(g.order))

	for _, id := range g.order {
		step, _ := g.Step(id)
		steps = append(steps, step)
	}

	return steps
}

// Dependents returns the steps depending directly on id, in declaration order.
func (g *Graph) Dependents(id string) []string {
	adjacency, err := g.graph.AdjacencyMap()
	if err != nil {
		return nil
	}

	return g.sortByDeclaration(adjacency[id])
}

// Descendants returns the steps depending directly or transitively on id, in declaration order.
func (g *Graph) Descendants(id string) []string {
	found := make(map[string]graph.Edge[string])

	_ = graph.BFS(g.graph, id, func(current string) bool {
		if current != id {
			found[current] = graph.Edge[string]{}
		}

		return false
	})

	return g.sortByDeclaration(found)
}

func (g *Graph) sortByDeclaration(set map[string]graph.Edge[string]) []string {
	ids, _ := g.store.ListVertices()
	res := make([]string, 0, len(set))

	for _, id := range ids {
		if _, ok := set[id]; ok {
			res = append(res, id)
		}
	}

	return res
}

// Edges returns the (dependency, dependent) pairs in declaration order.
func (g *Graph) Edges() [][2]string {
	edges, _ := g.store.ListEdges()
	res := make([][2]string, 0, len(edges))

	for _, e := range edges {
		res = append(res, [2]string{e.Source, e.Target})
	}

	return res
}

// Restrict returns the graph made of the given steps only. Dependencies on steps left out are dropped,
// they are considered satisfied. It is meant to re-run the steps that failed or were skipped.
func (g *Graph) Restrict(ids []string) (*Graph, error) {
	keep := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := g.Step(id); !ok {
			return nil, &UnknownStepError{ID: id}
		}

		keep[id] = struct{}{}
	}

	all, err := g.store.ListVertices()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list steps")
	}

	steps := []*model.StepInfo{}

	for _, id := range all {
		if _, ok := keep[id]; !ok {
			continue
		}

		step, _ := g.Step(id)
		deps := []string{}

		for _, dep := range step.DependsOn {
			if _, ok := keep[dep]; ok {
				deps = append(deps, dep)
			}
		}

		step.DependsOn = deps
		steps = append(steps, step)
	}

	return newGraph(steps)
}

// components groups steps by weakly connected component. Each component is in execution order and
// components are ordered by their first step.
func (g *Graph) components() [][]string {
	adjacency, _ := g.graph.AdjacencyMap()
	predecessors, _ := g.graph.PredecessorMap()
	component := make(map[string]int, len(g.order))
	res := [][]string{}

	for _, id := range g.order {
		if _, ok := component[id]; ok {
			continue
		}

		idx := len(res)
		res = append(res, nil)
		stack := []string{id}
		component[id] = idx

		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, neighbours := range []map[string]graph.Edge[string]{adjacency[current], predecessors[current]} {
				for next := range neighbours {
					if _, ok := component[next]; !ok {
						component[next] = idx
						stack = append(stack, next)
					}
				}
			}
		}
	}

	for _, id := range g.order {
		res[component[id]] = append(res[component[id]], id)
	}

	return res
}

// CriticalPath returns the chain of dependent steps with the largest total duration.
func (g *Graph) CriticalPath(durations map[string]time.Duration) ([]string, time.Duration) {
	predecessors, err := g.graph.PredecessorMap()
	if err != nil {
		return nil, 0
	}

	total := make(map[string]time.Duration, len(g.order))
	parent := make(map[string]string, len(g.order))

	var (
		last string
		best time.Duration = -1
	)

	for _, id := range g.order {
		var (
			longest time.Duration
			from    string
		)

		for _, dep := range g.sortByDeclaration(predecessors[id]) {
			if total[dep] > longest || from == "" {
				longest = total[dep]
				from = dep
			}
		}

		total[id] = longest + durations[id]
		parent[id] = from

		if total[id] > best {
			best = total[id]
			last = id
		}
	}

	if last == "" {
		return nil, 0
	}

	path := []string{}
	for id := last; id != ""; id = parent[id] {
		path = append([]string{id}, path...)
	}

	return path, best
}
