package render

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/danmuck/edgeview/internal/observability"
	"github.com/rs/zerolog/log"
)

// BuildResponse assembles the response of the given kind. A pending redirect
// always wins. On failure the returned response is still usable: either a
// reload (invariant violation in production) or a halting error response,
// and the error says why.
func (r *Renderer) BuildResponse(kind Kind, req Request) (*Response, error) {
	s := r.state
	if s.building || s.learning || s.collecting {
		return nil, ErrBuildActive
	}
	s.building = true
	defer func() { s.building = false }()

	resp := newResponse(kind)
	if redirect := r.app.TakeRedirect(); redirect != "" {
		r.serveRedirect(resp, redirect)
		observability.RecordResponse(kind.String(), "redirect")
		return resp, nil
	}

	var err error
	outcome := "ok"
	switch kind {
	case KindPage:
		outcome, err = r.servePage(resp, req)
	case KindScript:
		err = r.serveScript(resp, req)
	default:
		outcome, err = r.serveUpdate(resp, req)
	}
	if err == nil {
		observability.RecordResponse(kind.String(), outcome)
		return resp, nil
	}

	s.needsResync = true
	if r.recoverable(err) {
		log.Warn().
			Err(err).
			Str("session", r.app.SessionID()).
			Str("kind", kind.String()).
			Msg("render.BuildResponse forcing resync")
		resp = r.reload(kind)
		observability.RecordResponse(kind.String(), "resync")
		return resp, nil
	}
	log.Error().
		Err(err).
		Str("session", r.app.SessionID()).
		Str("kind", kind.String()).
		Msg("render.BuildResponse failed")
	observability.RecordResponse(kind.String(), "error")
	return r.ServeError(kind, err.Error()), err
}

// ServeError builds the minimal response that halts scripted interaction.
func (r *Renderer) ServeError(kind Kind, message string) *Response {
	resp := newResponse(kind)
	if kind == KindPage {
		resp.Status = http.StatusInternalServerError
		resp.Header.Set("Content-Type", contentTypeHTML)
		resp.Body = "<title>Error occurred.</title><h2>Error occurred.</h2>" + html.EscapeString(message) + "\n"
		return resp
	}
	resp.Header.Set("Content-Type", contentTypeScript)
	resp.Body = r.directive("quit()") +
		"document.title='Error occurred.';" +
		"document.body.innerHTML='<h2>Error occurred.</h2>'+" + jsString(html.EscapeString(message)) + ";"
	return resp
}

// reload tells the client to fetch a fresh document.
func (r *Renderer) reload(kind Kind) *Response {
	resp := newResponse(kind)
	if kind == KindPage {
		r.setHeaders(resp, contentTypeHTML)
		resp.Body = "<html><script type=\"text/javascript\">window.location.reload(true);</script><body></body></html>"
		return resp
	}
	r.setHeaders(resp, contentTypeScript)
	resp.Body = "window.location.reload(true);"
	return resp
}

func (r *Renderer) serveRedirect(resp *Response, redirect string) {
	if resp.Kind == KindPage {
		r.setHeaders(resp, contentTypeHTML)
		resp.Status = http.StatusFound
		resp.Header.Set("Location", redirect)
		return
	}
	r.setHeaders(resp, contentTypeScript)
	target := jsString(redirect)
	resp.Body = "if(window.location.replace)window.location.replace(" + target + ");" +
		"else window.location.href=" + target + ";"
}

// setHeaders moves queued cookies onto resp and sets its content type.
func (r *Renderer) setHeaders(resp *Response, contentType string) {
	for _, c := range r.app.TakeCookies() {
		if v := c.String(); v != "" {
			resp.Header.Add("Set-Cookie", v)
		}
	}
	resp.Header.Set("Content-Type", contentType)
}

func noCache(resp *Response) {
	resp.Header.Set("Cache-Control", "no-cache, no-store")
	resp.Header.Set("Expires", "-1")
}

func (r *Renderer) serveUpdate(resp *Response, req Request) (string, error) {
	s := r.state
	if !s.rendered || s.needsResync {
		*resp = *r.reload(KindUpdate)
		return "reload", nil
	}
	r.setHeaders(resp, contentTypeScript)
	if req.FollowUp {
		s.visibleOnly = false
	}
	err := r.collectJavaScript()
	s.visibleOnly = true
	if err != nil {
		return "", err
	}

	id := s.ack.Stamp()
	resp.Body = s.unacked.String() + r.directive("response("+strconv.Itoa(id)+")")
	if req.Reliable {
		if err := r.Ack(id); err != nil {
			return "", invariantError("self acknowledgment %d: %v", id, err)
		}
	}
	return "ok", nil
}

func (r *Renderer) servePage(resp *Response, req Request) (string, error) {
	s := r.state
	env := r.app.Environment()
	doc := Document{
		Title:       r.app.Title(),
		SessionID:   r.app.SessionID(),
		AppClass:    r.cfg.AppClass,
		RuntimeURL:  r.cfg.RuntimeURL,
		SelfURL:     req.SelfURL,
		PushEnabled: r.cfg.PushEnabled,
	}
	if !env.Probed {
		doc.Kind = DocumentBoot
		var body strings.Builder
		if err := r.cfg.Composer.Compose(&body, doc); err != nil {
			return "", err
		}
		noCache(resp)
		r.setHeaders(resp, contentTypeHTML)
		resp.Body = body.String()
		s.rendered = false
		return "boot", nil
	}

	var tree strings.Builder
	if err := r.renderTree(&tree, nil); err != nil {
		return "", err
	}
	doc.Kind = DocumentPlain
	if env.Scripting {
		doc.Kind = DocumentHybrid
		noCache(resp)
	}
	doc.Body = tree.String()
	doc.FormObjects = s.formObjects
	r.app.TakeTitleChange()

	var body strings.Builder
	if err := r.cfg.Composer.Compose(&body, doc); err != nil {
		return "", err
	}
	r.setHeaders(resp, contentTypeHTML)
	resp.Body = body.String()
	return doc.Kind.String(), nil
}

func (r *Renderer) serveScript(resp *Response, req Request) error {
	s := r.state
	r.setHeaders(resp, contentTypeScript)
	var out strings.Builder
	out.WriteString("window.loadWidgetTree=function(){\n")

	if !s.rendered || s.needsResync {
		mount := func(html string) {
			out.WriteString(r.directive("mount(" + jsString(html) + ")"))
		}
		if err := r.renderTree(nil, mount); err != nil {
			return err
		}
		out.WriteString(r.directive("setFormObjects([" + s.formObjects + "])"))
		r.app.TakeTitleChange()
		if err := r.preLearn(&out); err != nil {
			return err
		}
	} else {
		s.visibleOnly = false
		err := r.collectJavaScript()
		s.visibleOnly = true
		if err != nil {
			return err
		}
		out.WriteString(s.unacked.String())
		out.WriteString(r.directive("response(" + strconv.Itoa(s.ack.Stamp()) + ")"))
	}

	if r.app.Quitted() {
		out.WriteString(r.directive("quit()"))
	} else {
		out.WriteString(r.directive("update(null,'load',null,false)"))
	}
	out.WriteString("};\n")
	out.WriteString(r.directive("setServerPush(" + strconv.FormatBool(r.cfg.PushEnabled) + ")"))
	out.WriteString("window.edgeviewScriptLoaded=true;if(window.isLoaded)onLoad();\n")
	resp.Body = out.String()
	return nil
}

// renderTree serializes every root, either concatenated into w or handed
// one by one to each. The full representation replaces whatever was pending,
// so the dirty set is settled first; placeholders written during the render
// mark themselves dirty again.
func (r *Renderer) renderTree(w *strings.Builder, each func(string)) error {
	s := r.state
	roots := r.app.Roots()
	if len(roots) == 0 {
		return ErrNoRoot
	}
	for _, n := range s.dirty.Nodes() {
		if distanceFromRoot(n, roots) == 0 {
			n.MarkRenderOk()
		}
		s.dirty.MarkClean(n)
	}
	s.dirty.resetMore()

	s.visibleOnly = true
	for _, root := range roots {
		var one strings.Builder
		if err := root.CreateFullRepresentation(&one); err != nil {
			return fmt.Errorf("%w: root %q: %v", ErrContractViolation, root.ID(), err)
		}
		if w != nil {
			w.WriteString(one.String())
		}
		if each != nil {
			each(one.String())
		}
	}

	s.rendered = true
	s.needsResync = false
	s.setSynced(true)
	s.stateless.Reset()
	clear(s.learned)
	clear(s.stale)
	s.formObjects = r.formObjectsList()
	return nil
}
