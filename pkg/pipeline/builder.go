package pipeline

import (
	"container/heap"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/internal/store"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// StepOption configures a step declaration.
type StepOption func(s *model.StepInfo)

// StepTimeout sets the wall-clock budget of a step. Zero means no budget.
func StepTimeout(timeout time.Duration) StepOption {
	return func(s *model.StepInfo) {
		s.Timeout = timeout
	}
}

// Builder collects step declarations and builds a validated Graph.
type Builder struct {
	order []string
	steps map[string]*model.StepInfo
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		steps: make(map[string]*model.StepInfo),
	}
}

// AddStep declares a step.
func (b *Builder) AddStep(id string, command model.Command, produces, dependsOn []string, opts ...StepOption) error {
	if _, ok := b.steps[id]; ok {
		return &DuplicateStepError{ID: id}
	}

	step := &model.StepInfo{
		ID:        id,
		Command:   command,
		Produces:  produces,
		DependsOn: dependsOn,
	}
	for _, opt := range opts {
		opt(step)
	}

	b.steps[id] = step.Clone()
	b.order = append(b.order, id)

	return nil
}

// OverrideStep replaces the command of a declared step. A nil produces keeps the declared artifacts.
// Dependencies are never changed by an override.
func (b *Builder) OverrideStep(id string, command model.Command, produces []string, opts ...StepOption) error {
	current, ok := b.steps[id]
	if !ok {
		return &UnknownStepError{ID: id}
	}

	step := current.Clone()
	step.Command = command

	if produces != nil {
		step.Produces = produces
	}

	for _, opt := range opts {
		opt(step)
	}

	b.steps[id] = step.Clone()

	return nil
}

// Has reports whether a step is declared.
func (b *Builder) Has(id string) bool {
	_, ok := b.steps[id]

	return ok
}

// Build validates the declarations and returns the graph.
func (b *Builder) Build() (*Graph, error) {
	steps := make([]*model.StepInfo, 0, len(b.order))
	for _, id := range b.order {
		steps = append(steps, b.steps[id].Clone())
	}

	return newGraph(steps)
}

func newGraph(steps []*model.StepInfo) (*Graph, error) {
	st := store.NewOrderedStore[string, *model.StepInfo]()
	gra := graph.NewWithStore(stepHash, st, graph.Directed())

	producers := make(map[string]string)

	for _, step := range steps {
		err := gra.AddVertex(step)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add step %s", step.ID)
		}

		for _, art := range step.Produces {
			if other, ok := producers[art]; ok {
				return nil, &ConflictingProducerError{Artifact: art, Steps: [2]string{other, step.ID}}
			}

			producers[art] = step.ID
		}
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := st.Index(dep); !ok {
				return nil, &DanglingDependencyError{Step: step.ID, Dependency: dep}
			}
		}
	}

	gr := &Graph{graph: gra, store: st}

	err := gr.checkCycles(steps)
	if err != nil {
		return nil, err
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			err := gra.AddEdge(dep, step.ID)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, errors.Wrapf(err, "unable to link %s to %s", dep, step.ID)
			}
		}
	}

	gr.order, err = gr.topologicalOrder()
	if err != nil {
		return nil, err
	}

	return gr, nil
}

func stepHash(s *model.StepInfo) string {
	return s.ID
}

const (
	unvisited = iota
	inProgress
	done
)

// checkCycles runs a depth-first traversal over dependencies with three colours. A dependency that is
// still in progress closes a cycle.
func (g *Graph) checkCycles(steps []*model.StepInfo) error {
	byID := make(map[string]*model.StepInfo, len(steps))
	for _, step := range steps {
		byID[step.ID] = step
	}

	colour := make(map[string]int, len(steps))
	path := []string{}

	var visit func(id string) []string

	visit = func(id string) []string {
		colour[id] = inProgress
		path = append(path, id)

		for _, dep := range byID[id].DependsOn {
			switch colour[dep] {
			case inProgress:
				return cycleFrom(path, dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		colour[id] = done

		return nil
	}

	for _, step := range steps {
		if colour[step.ID] != unvisited {
			continue
		}

		if cycle := visit(step.ID); cycle != nil {
			return &CyclicDependencyError{Cycle: cycle}
		}
	}

	return nil
}

// cycleFrom extracts the cycle closed by the back-edge to start and returns it in dependency order,
// i.e. every step is followed by a step that depends on it.
func cycleFrom(path []string, start string) []string {
	pos := 0

	for i, id := range path {
		if id == start {
			pos = i

			break
		}
	}

	// path goes from a dependent to its dependency, reverse it.
	cycle := make([]string, 0, len(path)-pos+1)
	cycle = append(cycle, start)

	for i := len(path) - 1; i >= pos; i-- {
		cycle = append(cycle, path[i])
	}

	return cycle
}

type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }

func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// topologicalOrder runs Kahn's algorithm. Among ready steps the one declared first goes first.
func (g *Graph) topologicalOrder() ([]string, error) {
	ids, err := g.store.ListVertices()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list steps")
	}

	predecessors, err := g.graph.PredecessorMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get predecessor map")
	}

	adjacency, err := g.graph.AdjacencyMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get adjacency map")
	}

	inDegree := make([]int, len(ids))
	ready := &indexHeap{}

	for i, id := range ids {
		inDegree[i] = len(predecessors[id])
		if inDegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]string, 0, len(ids))

	for ready.Len() > 0 {
		idx := heap.Pop(ready).(int) //nolint:forcetypeassert // the heap only holds ints
		id := ids[idx]
		order = append(order, id)

		for next := range adjacency[id] {
			nextIdx, _ := g.store.Index(next)

			inDegree[nextIdx]--
			if inDegree[nextIdx] == 0 {
				heap.Push(ready, nextIdx)
			}
		}
	}

	if len(order) != len(ids) {
		return nil, errors.New("dependency cycle left steps unordered")
	}

	return order, nil
}
