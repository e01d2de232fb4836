package render

import (
	"errors"
	"io"
	"net/http"

	"github.com/danmuck/edgeview/internal/node"
)

// fakeNode emits one update record per change, plus a delete record when
// withDelete is set.
type fakeNode struct {
	id         string
	parent     *fakeNode
	rendered   bool
	withDelete bool
	value      int
	inputs     []string
	fail       error

	produced int
	renderOk int
	onProduce func()
}

func (n *fakeNode) ID() string { return n.id }

func (n *fakeNode) Parent() node.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *fakeNode) IsRendered() bool { return n.rendered }

func (n *fakeNode) MarkRenderOk() { n.renderOk++ }

func (n *fakeNode) ProduceMutations(b *node.Batch) error {
	if n.fail != nil {
		return n.fail
	}
	n.produced++
	if n.withDelete {
		if err := b.Add(node.ScriptRecord{NodeID: n.id, Phase: node.PriorityDelete, Text: "del(" + n.id + ");"}); err != nil {
			return err
		}
	}
	if err := b.Add(node.ScriptRecord{NodeID: n.id, Phase: node.PriorityUpdate, Text: "upd(" + n.id + ");"}); err != nil {
		return err
	}
	n.rendered = true
	if n.onProduce != nil {
		n.onProduce()
	}
	return nil
}

func (n *fakeNode) CreateFullRepresentation(w io.Writer) error {
	if n.fail != nil {
		return n.fail
	}
	n.rendered = true
	_, err := io.WriteString(w, "<div id=\""+n.id+"\"></div>")
	return err
}

func (n *fakeNode) FormObjects(out map[string]struct{}) {
	for _, id := range n.inputs {
		out[id] = struct{}{}
	}
}

type fakeApp struct {
	roots        []node.Node
	env          Environment
	redirect     string
	cookies      []*http.Cookie
	title        string
	titleChanged bool
	handlers     []node.Handler
	region       node.Region
	quit         bool
}

func (a *fakeApp) SessionID() string        { return "test-session" }
func (a *fakeApp) Roots() []node.Node       { return a.roots }
func (a *fakeApp) Environment() Environment { return a.env }

func (a *fakeApp) TakeRedirect() string {
	r := a.redirect
	a.redirect = ""
	return r
}

func (a *fakeApp) TakeCookies() []*http.Cookie {
	c := a.cookies
	a.cookies = nil
	return c
}

func (a *fakeApp) Title() string { return a.title }

func (a *fakeApp) TakeTitleChange() (string, bool) {
	changed := a.titleChanged
	a.titleChanged = false
	return a.title, changed
}

func (a *fakeApp) ExposedHandlers() []node.Handler { return a.handlers }

func (a *fakeApp) Region() node.Region {
	if a.region == nil {
		return nil
	}
	return a.region
}

func (a *fakeApp) Quitted() bool { return a.quit }

// counterHandler bumps target.value and undoes it exactly.
type counterHandler struct {
	id      string
	target  *fakeNode
	r       *Renderer
	partial bool
}

func (h *counterHandler) HandlerID() string { return h.id }
func (h *counterHandler) Owner() node.Node  { return h.target }

func (h *counterHandler) Trigger() {
	h.target.value++
	if h.partial {
		h.r.LearningIncomplete()
	}
	h.r.MarkDirty(h.target, false)
}

func (h *counterHandler) Undo() {
	h.target.value--
	h.r.MarkDirty(h.target, false)
}

// statefulHandler has no inverse and relies on a region.
type statefulHandler struct {
	id     string
	target *fakeNode
	r      *Renderer
}

func (h *statefulHandler) HandlerID() string { return h.id }
func (h *statefulHandler) Owner() node.Node  { return h.target }

func (h *statefulHandler) Trigger() {
	h.target.value += 10
	h.r.MarkDirty(h.target, false)
}

// valueRegion journals fakeNode values.
type valueRegion struct {
	nodes   []*fakeNode
	history [][]int
}

func (g *valueRegion) Checkpoint() int {
	vals := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		vals[i] = n.value
	}
	g.history = append(g.history, vals)
	return len(g.history) - 1
}

func (g *valueRegion) RollbackTo(mark int) {
	for i, n := range g.nodes {
		n.value = g.history[mark][i]
	}
	g.history = g.history[:mark]
}

var errBrokenNode = errors.New("broken node")

func newTestRenderer(app *fakeApp) *Renderer {
	cfg := DefaultConfig()
	return New(cfg, app)
}
