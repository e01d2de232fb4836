package render

import "github.com/danmuck/edgeview/internal/node"

// DirtyTracker is the set of nodes awaiting resynchronization. Iteration
// follows first-mark order so collected batches are reproducible.
type DirtyTracker struct {
	index map[node.Node]int
	order []node.Node
	more  bool
}

func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{index: make(map[node.Node]int)}
}

// MarkDirty adds n. Unless laterOnly is set it also asks the collector for
// another pass.
func (d *DirtyTracker) MarkDirty(n node.Node, laterOnly bool) {
	if n == nil {
		return
	}
	if _, ok := d.index[n]; !ok {
		d.index[n] = len(d.order)
		d.order = append(d.order, n)
	}
	if !laterOnly {
		d.more = true
	}
}

func (d *DirtyTracker) MarkClean(n node.Node) {
	i, ok := d.index[n]
	if !ok {
		return
	}
	delete(d.index, n)
	d.order = append(d.order[:i], d.order[i+1:]...)
	for j := i; j < len(d.order); j++ {
		d.index[d.order[j]] = j
	}
}

func (d *DirtyTracker) Contains(n node.Node) bool {
	_, ok := d.index[n]
	return ok
}

func (d *DirtyTracker) IsEmpty() bool {
	return len(d.order) == 0
}

func (d *DirtyTracker) Len() int {
	return len(d.order)
}

// Nodes returns a copy of the current members.
func (d *DirtyTracker) Nodes() []node.Node {
	out := make([]node.Node, len(d.order))
	copy(out, d.order)
	return out
}

// MoreWork reports whether new work was raised since the last reset.
func (d *DirtyTracker) MoreWork() bool {
	return d.more
}

func (d *DirtyTracker) resetMore() {
	d.more = false
}

// dirtySnapshot is a restorable copy of the tracker.
type dirtySnapshot struct {
	order []node.Node
	more  bool
}

// take empties the tracker and returns what it held.
func (d *DirtyTracker) take() dirtySnapshot {
	snap := dirtySnapshot{order: d.order, more: d.more}
	d.index = make(map[node.Node]int)
	d.order = nil
	d.more = false
	return snap
}

// restore replaces the tracker contents with snap.
func (d *DirtyTracker) restore(snap dirtySnapshot) {
	d.index = make(map[node.Node]int, len(snap.order))
	d.order = make([]node.Node, 0, len(snap.order))
	for _, n := range snap.order {
		d.index[n] = len(d.order)
		d.order = append(d.order, n)
	}
	d.more = snap.more
}
