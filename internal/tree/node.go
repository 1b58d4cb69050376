package tree

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/campaigngrid/internal/coords"
)

// Kind tags a node as a folder or a dispatchable leaf.
type Kind int

const (
	Folder Kind = iota
	Leaf
)

func (k Kind) String() string {
	if k == Leaf {
		return "leaf"
	}
	return "folder"
}

// Status is the lifecycle state of a leaf.
type Status int

const (
	NotStarted Status = iota
	Submitted
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Submitted:
		return "submitted"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Node is one vertex of the task tree. Folders only group children; leaves
// carry everything the dispatcher and the tracker need. All fields except the
// status are written once by the builder and read-only afterwards.
type Node struct {
	Kind  Kind
	Coord coords.Coord
	// Name is the canonical node name. Folder names end with a slash so they
	// never collide with leaf names.
	Name     string
	Title    string
	Parent   *Node
	Children []*Node

	OutputPath string
	LogPath    string
	JobDir     string
	ScriptPath string
	// Inputs are the files the job reads, recorded even when their producer
	// is not part of this tree.
	Inputs []string
	// InputSystematic is the variation whose input the job reads.
	InputSystematic string
	XSection        float64
	// RequireSuccessMarker makes the tracker insist on a success line in the
	// log for this leaf.
	RequireSuccessMarker bool
	// Deps are the in-tree producers of this leaf.
	Deps []*Node

	mu     sync.Mutex
	status Status
	reason string
}

// IsLeaf reports whether n is dispatchable.
func (n *Node) IsLeaf() bool { return n.Kind == Leaf }

// Stage returns the build stage of the node.
func (n *Node) Stage() coords.Stage { return n.Coord.Stage }

// Status returns the current status.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Reason explains the current status, e.g. why a leaf failed or was deferred.
func (n *Node) Reason() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reason
}

// SetStatus updates status and reason together. Safe for concurrent use.
func (n *Node) SetStatus(s Status, reason string) {
	n.mu.Lock()
	n.status = s
	n.reason = reason
	n.mu.Unlock()
}

func (n *Node) addChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

func (n *Node) String() string { return n.Name }
