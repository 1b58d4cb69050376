package tree

import (
	"fmt"

	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/dag"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
)

// Tree is the result of one build pass. Its shape and naming are fixed;
// only leaf statuses change afterwards.
type Tree struct {
	Root *Node

	byName     map[string]*Node
	leaves     []*Node
	graph      *dag.Graph
	variations []systematics.Variation
	skipped    map[string]int
}

func newTree(title string) *Tree {
	root := &Node{Kind: Folder, Name: "/", Title: title}
	return &Tree{
		Root:    root,
		byName:  map[string]*Node{root.Name: root},
		graph:   dag.New(),
		skipped: make(map[string]int),
	}
}

// Leaves returns every leaf in build order.
func (t *Tree) Leaves() []*Node {
	out := make([]*Node, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// StageLeaves returns the leaves of one stage in build order.
func (t *Tree) StageLeaves(st coords.Stage) []*Node {
	var out []*Node
	for _, l := range t.leaves {
		if l.Coord.Stage == st {
			out = append(out, l)
		}
	}
	return out
}

// Lookup finds a node by its canonical name.
func (t *Tree) Lookup(name string) (*Node, bool) {
	n, ok := t.byName[name]
	return n, ok
}

// Len returns the number of nodes, folders included.
func (t *Tree) Len() int { return len(t.byName) }

// Systematics returns the selected variations in registry order.
func (t *Tree) Systematics() []systematics.Variation {
	out := make([]systematics.Variation, len(t.variations))
	copy(out, t.variations)
	return out
}

// Skipped returns how many combinations each skip rule left out.
func (t *Tree) Skipped() map[string]int {
	out := make(map[string]int, len(t.skipped))
	for k, v := range t.skipped {
		out[k] = v
	}
	return out
}

// Walk visits every node depth first, parents before children, in build
// order. Returning an error from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	var visit func(n *Node, depth int) error
	visit = func(n *Node, depth int) error {
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := visit(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(t.Root, 0)
}

// DispatchOrder returns the leaves so that every producer precedes its
// consumers.
func (t *Tree) DispatchOrder() ([]*Node, error) {
	names, err := t.graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		n, ok := t.byName[name]
		if !ok {
			return nil, fmt.Errorf("graph node %q is not part of the tree", name)
		}
		out = append(out, n)
	}
	return out, nil
}
