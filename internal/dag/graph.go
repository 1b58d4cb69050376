package dag

import (
	"container/heap"
	"fmt"
	"sync"
)

// Graph is a set of named nodes and directed dependency edges. All operations
// are safe for concurrent use. Iteration follows insertion order so that
// callers see the same order on every build.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	order []*node
}

// node is a vertex. It stays unexported so callers work with names only.
type node struct {
	id         string
	index      int
	deps       []*node
	dependents []*node
	depSet     map[string]struct{}
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode registers a node. Adding an existing name is a no-op.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	n := &node{
		id:     id,
		index:  len(g.order),
		depSet: make(map[string]struct{}),
	}
	g.nodes[id] = n
	g.order = append(g.order, n)
}

// Has reports whether a node with the given name exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// AddEdge records that toID consumes the output of fromID. Duplicate edges
// are ignored.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	if _, dup := to.depSet[fromID]; dup {
		return nil
	}
	to.depSet[fromID] = struct{}{}
	to.deps = append(to.deps, from)
	from.dependents = append(from.dependents, to)
	return nil
}

// Dependencies returns the producers of id in the order the edges were added.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(n.deps), nil
}

// Dependents returns the consumers of id in the order the edges were added.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(n.dependents), nil
}

func ids(nodes []*node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

// DetectCycles returns an error naming a node on the first cycle found.
// Nodes are visited in insertion order, so the reported node is stable.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[*node]bool, len(g.order))
	onStack := make(map[*node]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n] {
			return nil
		}
		if onStack[n] {
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}
		onStack[n] = true
		for _, d := range n.dependents {
			if err := visit(d); err != nil {
				return err
			}
		}
		delete(onStack, n)
		permanent[n] = true
		return nil
	}

	for _, n := range g.order {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every node so that producers precede their
// consumers. Among nodes that are ready at the same time, insertion order
// wins. A cycle is reported as an error.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[*node]int, len(g.order))
	ready := &readyQueue{}
	for _, n := range g.order {
		pending[n] = len(n.deps)
		if len(n.deps) == 0 {
			heap.Push(ready, n)
		}
	}

	out := make([]string, 0, len(g.order))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*node)
		out = append(out, n.id)
		for _, d := range n.dependents {
			pending[d]--
			if pending[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}
	if len(out) != len(g.order) {
		for _, n := range g.order {
			if pending[n] > 0 {
				return nil, fmt.Errorf("cycle detected involving node '%s'", n.id)
			}
		}
	}
	return out, nil
}

// readyQueue orders nodes by insertion index.
type readyQueue []*node

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].index < q[j].index }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(*node)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}
