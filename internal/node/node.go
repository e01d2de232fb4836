package node

import "io"

// Node is one entry of the server-side UI tree as seen by the renderer.
type Node interface {
	ID() string
	// Parent returns nil for a root or a detached node.
	Parent() Node
	// IsRendered reports whether the client holds the node's full representation.
	IsRendered() bool
	// MarkRenderOk drops pending changes without emitting records.
	MarkRenderOk()
	// ProduceMutations appends the node's own Delete and Update records.
	ProduceMutations(b *Batch) error
	CreateFullRepresentation(w io.Writer) error
	// FormObjects adds the ids of live interactive controls under this node.
	FormObjects(out map[string]struct{})
}

// Handler is an event handler exposed to the client.
type Handler interface {
	HandlerID() string
	Owner() Node
	Trigger()
}

// Reversible handlers provide an exact inverse of Trigger.
type Reversible interface {
	Undo()
}

// Region is a versioned area of session state that can be rolled back.
type Region interface {
	Checkpoint() int
	RollbackTo(mark int)
}
