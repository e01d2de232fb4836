package widget

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/danmuck/edgeview/internal/node"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind is the element a widget renders as.
type Kind int

const (
	KindContainer Kind = iota
	KindText
	KindButton
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindText:
		return "text"
	case KindButton:
		return "button"
	case KindInput:
		return "input"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// state is everything the rollback journal restores.
type state struct {
	text     string
	value    string
	hidden   bool
	parent   *Widget
	children []*Widget

	// rendered: the client holds an element for this widget.
	// stub: that element is an empty placeholder for hidden content.
	rendered bool
	stub     bool

	textChanged   bool
	valueChanged  bool
	hiddenChanged bool
	added         []*Widget
	removed       []string
}

func (s state) clone() state {
	s.children = slices.Clone(s.children)
	s.added = slices.Clone(s.added)
	s.removed = slices.Clone(s.removed)
	return s
}

func (s *state) clearChanges() {
	s.textChanged = false
	s.valueChanged = false
	s.hiddenChanged = false
	s.added = nil
	s.removed = nil
}

// Widget is one element of the tree. It implements node.Node.
type Widget struct {
	tree *Tree
	id   string
	kind Kind
	st   state
}

func (w *Widget) ID() string { return w.id }
func (w *Widget) Kind() Kind { return w.kind }

func (w *Widget) Parent() node.Node {
	if w.st.parent == nil {
		return nil
	}
	return w.st.parent
}

func (w *Widget) IsRendered() bool { return w.st.rendered }

func (w *Widget) Text() string { return w.st.text }
func (w *Widget) Hidden() bool { return w.st.hidden }
func (w *Widget) Children() []*Widget {
	return slices.Clone(w.st.children)
}

// Value returns an input's current value. The value typed on the client is
// unknown to a learning pass, so reading it marks learning incomplete.
func (w *Widget) Value() string {
	if w.tree.learning() {
		w.tree.sink.LearningIncomplete()
	}
	return w.st.value
}

func (w *Widget) SetText(text string) {
	if w.st.text == text {
		return
	}
	w.save()
	w.st.text = text
	w.st.textChanged = true
	w.tree.markDirty(w, false)
}

func (w *Widget) SetValue(value string) {
	if w.st.value == value {
		return
	}
	w.save()
	w.st.value = value
	w.st.valueChanged = true
	w.tree.markDirty(w, false)
}

func (w *Widget) SetHidden(hidden bool) {
	if w.st.hidden == hidden {
		return
	}
	w.save()
	w.st.hidden = hidden
	w.st.hiddenChanged = !w.st.hiddenChanged
	w.tree.markDirty(w, false)
}

// AddChild appends a container child. The child must not have a parent.
func (w *Widget) AddChild(c *Widget) error {
	if w.kind != KindContainer {
		return fmt.Errorf("widget: %s %s cannot hold children", w.kind, w.id)
	}
	if c.st.parent != nil || c == w {
		return fmt.Errorf("widget: %s already attached", c.id)
	}
	w.save()
	c.save()
	w.st.children = append(w.st.children, c)
	c.st.parent = w
	if w.st.rendered && !w.st.stub {
		w.st.added = append(w.st.added, c)
		w.tree.markDirty(w, false)
	}
	return nil
}

// RemoveChild detaches c and its subtree.
func (w *Widget) RemoveChild(c *Widget) {
	i := slices.Index(w.st.children, c)
	if i < 0 {
		return
	}
	w.save()
	c.save()
	w.st.children = slices.Delete(w.st.children, i, i+1)
	if j := slices.Index(w.st.added, c); j >= 0 {
		w.st.added = slices.Delete(w.st.added, j, j+1)
	} else if c.st.rendered && w.st.rendered && !w.st.stub {
		w.st.removed = append(w.st.removed, c.id)
	}
	c.st.parent = nil
	c.unrender()
	w.tree.markDirty(w, false)
}

// NewContainer creates a container under parent.
func (w *Widget) NewContainer() *Widget {
	return w.attach(w.tree.newWidget(KindContainer))
}

// NewText creates a text span under parent.
func (w *Widget) NewText(text string) *Widget {
	c := w.tree.newWidget(KindText)
	c.st.text = text
	return w.attach(c)
}

// NewButton creates a button under parent.
func (w *Widget) NewButton(label string) *Widget {
	c := w.tree.newWidget(KindButton)
	c.st.text = label
	return w.attach(c)
}

// NewInput creates a text input under parent.
func (w *Widget) NewInput(value string) *Widget {
	c := w.tree.newWidget(KindInput)
	c.st.value = value
	return w.attach(c)
}

func (w *Widget) attach(c *Widget) *Widget {
	if err := w.AddChild(c); err != nil {
		panic(err)
	}
	return c
}

// MarkRenderOk drops pending changes without emitting anything.
func (w *Widget) MarkRenderOk() {
	w.save()
	w.st.clearChanges()
}

// ProduceMutations appends this widget's records. A stub stays a stub while
// it is hidden and the batch is restricted to visible work.
func (w *Widget) ProduceMutations(b *node.Batch) error {
	if !w.st.rendered {
		// an ancestor's full render will carry the current state
		w.save()
		w.st.clearChanges()
		return nil
	}
	if w.st.stub {
		if b.VisibleOnly && w.st.hidden {
			w.tree.markDirty(w, true)
			return nil
		}
		markup, err := w.markup(b.VisibleOnly)
		if err != nil {
			return err
		}
		return b.Add(update(w.id, "replace", markup))
	}

	w.save()
	for _, id := range w.st.removed {
		if err := b.Add(node.ScriptRecord{NodeID: id, Phase: node.PriorityDelete, Text: "edgeview.del(" + node.Quote(id) + ");"}); err != nil {
			return err
		}
	}
	if w.st.hiddenChanged {
		if err := b.Add(node.ScriptRecord{NodeID: w.id, Phase: node.PriorityUpdate, Text: fmt.Sprintf("edgeview.show(%s,%t);", node.Quote(w.id), !w.st.hidden)}); err != nil {
			return err
		}
	}
	if w.st.textChanged {
		if err := b.Add(update(w.id, "text", w.st.text)); err != nil {
			return err
		}
	}
	if w.st.valueChanged {
		if err := b.Add(update(w.id, "value", w.st.value)); err != nil {
			return err
		}
	}
	added := w.st.added
	w.st.clearChanges()
	for _, c := range added {
		markup, err := c.markup(b.VisibleOnly)
		if err != nil {
			return err
		}
		if err := b.Add(update(w.id, "append", markup)); err != nil {
			return err
		}
	}
	return nil
}

func update(id, op, arg string) node.ScriptRecord {
	return node.ScriptRecord{
		NodeID: id,
		Phase:  node.PriorityUpdate,
		Text:   "edgeview." + op + "(" + node.Quote(id) + "," + node.Quote(arg) + ");",
	}
}

// CreateFullRepresentation writes the subtree as HTML. Hidden descendants
// are written as placeholders and left for a later off-screen pass.
func (w *Widget) CreateFullRepresentation(out io.Writer) error {
	return html.Render(out, w.element(true))
}

func (w *Widget) markup(stubHidden bool) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, w.element(stubHidden)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// element builds the html node for w and records that the client now holds it.
func (w *Widget) element(stubHidden bool) *html.Node {
	w.save()
	w.st.clearChanges()
	w.st.rendered = true

	n := &html.Node{Type: html.ElementNode, Attr: []html.Attribute{{Key: "id", Val: w.id}}}
	if w.st.hidden {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: "display:none"})
	}
	if stubHidden && w.st.hidden && w.kind == KindContainer {
		n.DataAtom, n.Data = atom.Div, "div"
		w.st.stub = true
		for _, c := range w.st.children {
			c.unrender()
		}
		w.tree.markDirty(w, true)
		return n
	}
	w.st.stub = false

	switch w.kind {
	case KindText:
		n.DataAtom, n.Data = atom.Span, "span"
		n.AppendChild(&html.Node{Type: html.TextNode, Data: w.st.text})
	case KindButton:
		n.DataAtom, n.Data = atom.Button, "button"
		n.Attr = append(n.Attr,
			html.Attribute{Key: "type", Val: "submit"},
			html.Attribute{Key: "name", Val: "signal"},
			html.Attribute{Key: "value", Val: clickID(w.id)},
		)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: w.st.text})
	case KindInput:
		n.DataAtom, n.Data = atom.Input, "input"
		n.Attr = append(n.Attr,
			html.Attribute{Key: "name", Val: w.id},
			html.Attribute{Key: "value", Val: w.st.value},
		)
	default:
		n.DataAtom, n.Data = atom.Div, "div"
		for _, c := range w.st.children {
			n.AppendChild(c.element(stubHidden))
		}
	}
	return n
}

// unrender forgets that the client holds w or any descendant.
func (w *Widget) unrender() {
	if !w.st.rendered {
		return
	}
	w.save()
	w.st.rendered = false
	w.st.stub = false
	w.st.clearChanges()
	for _, c := range w.st.children {
		c.unrender()
	}
}

// FormObjects adds the ids of inputs present on the client.
func (w *Widget) FormObjects(out map[string]struct{}) {
	if !w.st.rendered || w.st.stub {
		return
	}
	if w.kind == KindInput {
		out[w.id] = struct{}{}
	}
	for _, c := range w.st.children {
		c.FormObjects(out)
	}
}

// save journals w's state while a rollback mark is open.
func (w *Widget) save() {
	if w.tree.open == 0 {
		return
	}
	w.tree.journal = append(w.tree.journal, journalEntry{w: w, saved: w.st.clone()})
}
