// Package page composes the full HTML documents the renderer serves on first
// load: the capability probe, the plain form page and the scripted page.
package page

import (
	"fmt"
	"html/template"
	"io"

	"github.com/danmuck/edgeview/internal/render"
)

const documentsTemplate = `
{{- define "head" -}}
<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
{{- end -}}

{{- define "boot" -}}
{{template "head" .}}
<noscript><meta http-equiv="refresh" content="0;url={{.SelfURL}}?js=no"></noscript>
</head><body>
<script>window.location.replace({{.SelfURL}} + '?js=yes');</script>
</body></html>
{{- end -}}

{{- define "plain" -}}
{{template "head" .}}
</head><body>
<form method="post" action="{{.SelfURL}}">{{.Body}}</form>
</body></html>
{{- end -}}

{{- define "hybrid" -}}
{{template "head" .}}
<script>window.edgeviewConfig={session:{{.SessionID}},appClass:{{.AppClass}},selfURL:{{.SelfURL}},push:{{.PushEnabled}},formObjects:[{{.FormObjects}}]};</script>
</head><body>
{{.Body}}
<script src="{{.RuntimeURL}}"></script>
<script src="{{.SelfURL}}?request=script"></script>
</body></html>
{{- end -}}
`

var documents = template.Must(template.New("documents").Parse(documentsTemplate))

// view is the template data. Body and FormObjects are produced by the
// renderer and are already encoded for their context.
type view struct {
	Title       string
	SessionID   string
	AppClass    string
	RuntimeURL  string
	SelfURL     string
	Body        template.HTML
	FormObjects template.JS
	PushEnabled bool
}

// Composer implements render.DocumentComposer with html/template.
type Composer struct{}

func New() Composer {
	return Composer{}
}

func (Composer) Compose(w io.Writer, doc render.Document) error {
	name := doc.Kind.String()
	if documents.Lookup(name) == nil {
		return fmt.Errorf("page: no template for %s document", name)
	}
	return documents.ExecuteTemplate(w, name, view{
		Title:       doc.Title,
		SessionID:   doc.SessionID,
		AppClass:    doc.AppClass,
		RuntimeURL:  doc.RuntimeURL,
		SelfURL:     doc.SelfURL,
		Body:        template.HTML(doc.Body),
		FormObjects: template.JS(doc.FormObjects),
		PushEnabled: doc.PushEnabled,
	})
}
