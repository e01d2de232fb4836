package session

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DemoRows is the size of the demo's hidden panel. It is large enough to be
// deferred under the default off-screen threshold.
const DemoRows = 120

// Demo returns the builder of the sample application served by viewctl:
// a counter, learnable show and hide buttons, a large hidden panel, a form
// echo and a quit button. Learnable handlers set absolute state so the
// script the client replays never depends on what it shows.
func Demo(title string) Builder {
	return func(app *App) error {
		return buildDemo(app, title)
	}
}

func buildDemo(app *App, title string) error {
	app.SetTitle(title)
	app.SetCookie(&http.Cookie{Name: "edgeview_visited", Value: "1", Path: "/", HttpOnly: true})

	root := app.Tree().NewRoot()

	count := 0
	counter := root.NewText("0")
	root.NewButton("+1").OnClick(func() {
		count++
		counter.SetText(strconv.Itoa(count))
	})
	root.NewButton("reset").OnClick(func() {
		count = 0
		counter.SetText("0")
		app.SetTitle(title + " (reset)")
	})

	details := root.NewText("Rendered on the server, replayed in the browser.")
	details.SetHidden(true)
	root.NewButton("show details").OnClickStateless(func() { details.SetHidden(false) })
	root.NewButton("hide details").OnClickStateless(func() { details.SetHidden(true) })

	panel := root.NewContainer()
	panel.SetHidden(true)
	for i := 0; i < DemoRows; i++ {
		panel.NewText(fmt.Sprintf("row %03d %s", i, strings.Repeat(".", 24)))
	}
	root.NewButton("show rows").OnClickStateless(func() { panel.SetHidden(false) })
	root.NewButton("hide rows").OnClickStateless(func() { panel.SetHidden(true) })

	name := root.NewInput("")
	greeting := root.NewText("")
	root.NewButton("greet").OnClick(func() {
		if v := strings.TrimSpace(name.Value()); v != "" {
			greeting.SetText("hello, " + v)
		}
	})

	root.NewButton("quit").OnClick(app.Quit)
	return nil
}
