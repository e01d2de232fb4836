package widget

import (
	"errors"
	"fmt"

	"github.com/danmuck/edgeview/internal/node"
)

var (
	ErrUnknownHandler = errors.New("widget: unknown handler")
	ErrUnknownWidget  = errors.New("widget: unknown widget")
	ErrNotInput       = errors.New("widget: not an input")
)

// Sink receives change notifications. The session wires it to its renderer.
type Sink interface {
	MarkDirty(n node.Node, laterOnly bool)
	IsLearning() bool
	LearningIncomplete()
}

type journalEntry struct {
	w     *Widget
	saved state
}

// Tree owns every widget of one session.
type Tree struct {
	sink    Sink
	nextID  int
	roots   []*Widget
	widgets map[string]*Widget

	handlers     map[string]node.Handler
	handlerOrder []string

	journal []journalEntry
	open    int
}

func NewTree() *Tree {
	return &Tree{
		widgets:  make(map[string]*Widget),
		handlers: make(map[string]node.Handler),
	}
}

// SetSink attaches the tree to a renderer. Widgets created earlier are
// reported dirty so nothing built before attachment is lost.
func (t *Tree) SetSink(s Sink) {
	t.sink = s
	for _, root := range t.roots {
		t.markDirty(root, false)
	}
}

// NewRoot creates a top-level container.
func (t *Tree) NewRoot() *Widget {
	w := t.newWidget(KindContainer)
	t.roots = append(t.roots, w)
	t.markDirty(w, false)
	return w
}

// Roots returns the top-level widgets as render nodes.
func (t *Tree) Roots() []node.Node {
	out := make([]node.Node, len(t.roots))
	for i, r := range t.roots {
		out[i] = r
	}
	return out
}

// Lookup finds a widget by id.
func (t *Tree) Lookup(id string) (*Widget, bool) {
	w, ok := t.widgets[id]
	return w, ok
}

// Len returns the number of widgets created in this tree.
func (t *Tree) Len() int {
	return len(t.widgets)
}

// Handler finds a registered handler by id.
func (t *Tree) Handler(id string) (node.Handler, error) {
	h, ok := t.handlers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHandler, id)
	}
	return h, nil
}

// ExposedHandlers returns handlers that may be learned, in registration order.
func (t *Tree) ExposedHandlers() []node.Handler {
	out := make([]node.Handler, 0, len(t.handlerOrder))
	for _, id := range t.handlerOrder {
		h := t.handlers[id]
		if l, ok := h.(interface{ Learnable() bool }); ok && l.Learnable() {
			out = append(out, h)
		}
	}
	return out
}

// ApplyClientValue records a value the client already shows, without
// scheduling an update back to it.
func (t *Tree) ApplyClientValue(id, value string) error {
	w, ok := t.widgets[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWidget, id)
	}
	if w.kind != KindInput {
		return fmt.Errorf("%w: %q", ErrNotInput, id)
	}
	w.save()
	w.st.value = value
	return nil
}

// Checkpoint opens a rollback mark. Every widget change made while a mark is
// open is journaled until RollbackTo releases it.
func (t *Tree) Checkpoint() int {
	t.open++
	return len(t.journal)
}

// RollbackTo restores every widget changed since mark, newest change first.
func (t *Tree) RollbackTo(mark int) {
	for i := len(t.journal) - 1; i >= mark; i-- {
		e := t.journal[i]
		e.w.st = e.saved
	}
	t.journal = t.journal[:mark]
	if t.open > 0 {
		t.open--
	}
}

func (t *Tree) newWidget(kind Kind) *Widget {
	t.nextID++
	w := &Widget{tree: t, id: fmt.Sprintf("w%d", t.nextID), kind: kind}
	t.widgets[w.id] = w
	return w
}

func (t *Tree) register(h node.Handler) {
	if _, ok := t.handlers[h.HandlerID()]; !ok {
		t.handlerOrder = append(t.handlerOrder, h.HandlerID())
	}
	t.handlers[h.HandlerID()] = h
}

func (t *Tree) markDirty(w *Widget, laterOnly bool) {
	if t.sink != nil {
		t.sink.MarkDirty(w, laterOnly)
	}
}

func (t *Tree) learning() bool {
	return t.sink != nil && t.sink.IsLearning()
}
