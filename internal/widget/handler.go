package widget

import "github.com/danmuck/edgeview/internal/node"

func clickID(widgetID string) string {
	return widgetID + ".click"
}

// Handler runs fn when its widget is clicked.
type Handler struct {
	id        string
	owner     *Widget
	fn        func()
	learnable bool
}

func (h *Handler) HandlerID() string { return h.id }

func (h *Handler) Owner() node.Node {
	if h.owner == nil {
		return nil
	}
	return h.owner
}

func (h *Handler) Trigger() { h.fn() }

// Learnable reports whether the client may replay this handler on its own.
func (h *Handler) Learnable() bool { return h.learnable }

// ReversibleHandler carries an explicit inverse.
type ReversibleHandler struct {
	Handler
	undo func()
}

func (h *ReversibleHandler) Undo() { h.undo() }

// OnClick registers a handler that always runs on the server.
func (w *Widget) OnClick(fn func()) *Handler {
	h := &Handler{id: clickID(w.id), owner: w, fn: fn}
	w.tree.register(h)
	return h
}

// OnClickStateless registers a handler whose effect is confined to the
// widget tree. It is learned by rolling the tree back after one run. The
// client replays the learned script until the session state changes, so fn
// should set absolute values (show, hide) rather than derive them.
func (w *Widget) OnClickStateless(fn func()) *Handler {
	h := &Handler{id: clickID(w.id), owner: w, fn: fn, learnable: true}
	w.tree.register(h)
	return h
}

// OnClickReversible registers a learnable handler with its own inverse.
func (w *Widget) OnClickReversible(fn, undo func()) *ReversibleHandler {
	h := &ReversibleHandler{Handler: Handler{id: clickID(w.id), owner: w, fn: fn, learnable: true}, undo: undo}
	w.tree.register(h)
	return h
}
