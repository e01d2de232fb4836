package render

import (
	"fmt"
	"html"
	"io"
	"net/http"
)

// Kind is the response a request deserves.
type Kind int

const (
	KindPage Kind = iota
	KindScript
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindScript:
		return "script"
	case KindUpdate:
		return "update"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Request is the transport-independent view of an incoming request.
type Request struct {
	// Script asks for the bootstrap script.
	Script bool
	// Update asks for an incremental update.
	Update bool
	// FollowUp marks the fetch a client issues after a deferred off-screen
	// batch was advertised.
	FollowUp bool
	// Reliable is set for flushes over a push channel that never drops.
	Reliable bool
	// SelfURL is the URL the client uses to reach this session.
	SelfURL string
}

// Classify picks the response kind for req.
func Classify(req Request) Kind {
	switch {
	case req.Update:
		return KindUpdate
	case req.Script:
		return KindScript
	default:
		return KindPage
	}
}

// Response is a fully assembled reply. The transport copies it verbatim.
type Response struct {
	Kind   Kind
	Status int
	Header http.Header
	Body   string
}

func newResponse(kind Kind) *Response {
	return &Response{Kind: kind, Status: http.StatusOK, Header: make(http.Header)}
}

func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Redirect returns the Location of a redirect response.
func (r *Response) Redirect() string {
	return r.Header.Get("Location")
}

const (
	contentTypeHTML   = "text/html; charset=UTF-8"
	contentTypeScript = "text/javascript; charset=UTF-8"
)

// DocumentKind selects the page template.
type DocumentKind int

const (
	// DocumentBoot probes the client before the tree is built.
	DocumentBoot DocumentKind = iota
	// DocumentPlain is a complete page for clients without scripting.
	DocumentPlain
	// DocumentHybrid is a complete page that upgrades itself to scripted mode.
	DocumentHybrid
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentBoot:
		return "boot"
	case DocumentPlain:
		return "plain"
	case DocumentHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("document(%d)", int(k))
	}
}

// Document carries everything a composer needs for one full page.
type Document struct {
	Kind       DocumentKind
	Title      string
	SessionID  string
	AppClass   string
	RuntimeURL string
	SelfURL    string
	// Body is the serialized tree; empty for boot documents.
	Body string
	// FormObjects is the rendered initial form-object list.
	FormObjects string
	PushEnabled bool
}

// DocumentComposer writes full documents around the serialized tree.
type DocumentComposer interface {
	Compose(w io.Writer, doc Document) error
}

// defaultComposer is used when no composer is configured.
type defaultComposer struct{}

func (defaultComposer) Compose(w io.Writer, doc Document) error {
	title := html.EscapeString(doc.Title)
	switch doc.Kind {
	case DocumentBoot:
		self := html.EscapeString(doc.SelfURL)
		_, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html><head><title>%s</title>"+
				"<noscript><meta http-equiv=\"refresh\" content=\"0;url=%s?js=no\"></noscript></head>"+
				"<body><script>window.location.replace(%s+'?js=yes');</script></body></html>",
			title, self, jsString(doc.SelfURL))
		return err
	case DocumentHybrid:
		_, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html><head><title>%s</title></head><body>%s"+
				"<script src=\"%s\"></script><script src=\"%s?request=script\"></script></body></html>",
			title, doc.Body, html.EscapeString(doc.RuntimeURL), html.EscapeString(doc.SelfURL))
		return err
	default:
		_, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html><head><title>%s</title></head><body>"+
				"<form method=\"post\" action=\"%s\">%s</form></body></html>",
			title, html.EscapeString(doc.SelfURL), doc.Body)
		return err
	}
}
