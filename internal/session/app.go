package session

import (
	"net/http"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/widget"
)

// App is the application side of a session: its widget tree plus the
// browser-facing state the renderer drains on each response.
type App struct {
	id    string
	tree  *widget.Tree
	env   render.Environment
	title string

	titleChanged bool
	redirect     string
	cookies      []*http.Cookie
	quitted      bool
}

func newApp(id string) *App {
	return &App{id: id, tree: widget.NewTree()}
}

func (a *App) SessionID() string { return a.id }

// Tree returns the widget tree the application builds into.
func (a *App) Tree() *widget.Tree { return a.tree }

func (a *App) Roots() []node.Node { return a.tree.Roots() }

func (a *App) Environment() render.Environment { return a.env }

func (a *App) ExposedHandlers() []node.Handler { return a.tree.ExposedHandlers() }

func (a *App) Region() node.Region { return a.tree }

func (a *App) Title() string { return a.title }

// SetTitle changes the document title. Scripted clients receive it with
// the next update.
func (a *App) SetTitle(title string) {
	if a.title == title {
		return
	}
	a.title = title
	a.titleChanged = true
}

func (a *App) TakeTitleChange() (string, bool) {
	changed := a.titleChanged
	a.titleChanged = false
	return a.title, changed
}

// Redirect sends the client to url on its next request.
func (a *App) Redirect(url string) {
	a.redirect = url
}

func (a *App) TakeRedirect() string {
	url := a.redirect
	a.redirect = ""
	return url
}

// SetCookie queues a cookie for the next response of any kind.
func (a *App) SetCookie(c *http.Cookie) {
	a.cookies = append(a.cookies, c)
}

func (a *App) TakeCookies() []*http.Cookie {
	out := a.cookies
	a.cookies = nil
	return out
}

// Quit stops scripted interaction after the next response.
func (a *App) Quit() {
	a.quitted = true
}

func (a *App) Quitted() bool { return a.quitted }
