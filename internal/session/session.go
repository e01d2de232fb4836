package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/widget"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

// Builder populates a fresh application. It runs once per session, before
// the first response.
type Builder func(app *App) error

// Input is one decoded client request.
type Input struct {
	Request render.Request
	// JS is the capability probe answer: "yes", "no" or empty.
	JS string
	// Cookies reports that the client returned the session cookie.
	Cookies bool
	HasAck  bool
	AckID   int
	// Signal names a handler to run, e.g. "w3.click".
	Signal string
	// Learned is set when the client already applied the signal's learned
	// script locally.
	Learned bool
	// Values carries input widget values keyed by widget id.
	Values map[string]string
}

// Session serializes every request of one client through its renderer.
type Session struct {
	mu       sync.Mutex
	id       string
	created  time.Time
	lastSeen time.Time
	requests int
	app      *App
	renderer *render.Renderer
}

// Info is a point-in-time view of a session for the admin listing.
type Info struct {
	ID          string    `json:"id"`
	Created     time.Time `json:"created"`
	LastSeen    time.Time `json:"last_seen"`
	Requests    int       `json:"requests"`
	Widgets     int       `json:"widgets"`
	Rendered    bool      `json:"rendered"`
	Scripting   bool      `json:"scripting"`
	ExpectedAck int       `json:"expected_ack"`
	Learned     int       `json:"learned"`
	Dirty       bool      `json:"dirty"`
}

func New(cfg render.Config, build Builder) (*Session, error) {
	id := ulid.Make().String()
	app := newApp(id)
	if build != nil {
		if err := build(app); err != nil {
			return nil, err
		}
	}
	r := render.New(cfg, app)
	app.tree.SetSink(r)
	now := time.Now()
	return &Session{id: id, created: now, lastSeen: now, app: app, renderer: r}, nil
}

func (s *Session) ID() string { return s.id }

// Handle applies in to the session and builds the response it deserves.
// The response is usable even when an error is returned.
func (s *Session) Handle(in Input) (*render.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	s.requests++

	kind := render.Classify(in.Request)
	switch in.JS {
	case "yes", "no":
		s.app.env = render.Environment{Probed: true, Scripting: in.JS == "yes", Cookies: in.Cookies}
	}
	if in.HasAck {
		if err := s.renderer.Ack(in.AckID); err != nil && !errors.Is(err, render.ErrStaleAck) {
			return s.renderer.ServeError(kind, err.Error()), err
		}
	}
	s.applyValues(in.Values)
	if in.Signal != "" {
		if err := s.dispatch(in.Signal, in.Learned); err != nil {
			return s.renderer.ServeError(kind, err.Error()), err
		}
		s.renderer.InvalidateLearned()
	}
	return s.renderer.BuildResponse(kind, in.Request)
}

// Push builds a reliable update when the client has something to receive.
// It reports false when there is nothing to send.
func (s *Session) Push() (*render.Response, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.renderer.State().Rendered() || !s.renderer.IsDirty() {
		return nil, false, nil
	}
	resp, err := s.renderer.BuildResponse(render.KindUpdate, render.Request{Update: true, Reliable: true})
	return resp, true, err
}

// Update runs fn against the application under the session lock, for
// changes that do not originate from a client request.
func (s *Session) Update(fn func(app *App)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.app)
	s.renderer.InvalidateLearned()
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.renderer.State()
	return Info{
		ID:          s.id,
		Created:     s.created,
		LastSeen:    s.lastSeen,
		Requests:    s.requests,
		Widgets:     s.app.tree.Len(),
		Rendered:    st.Rendered(),
		Scripting:   s.app.env.Scripting,
		ExpectedAck: st.ExpectedAckID(),
		Learned:     st.LearnedCount(),
		Dirty:       s.renderer.IsDirty(),
	}
}

func (s *Session) applyValues(values map[string]string) {
	ids := maps.Keys(values)
	slices.Sort(ids)
	for _, id := range ids {
		if err := s.app.tree.ApplyClientValue(id, values[id]); err != nil {
			log.Debug().Err(err).Str("session", s.id).Str("widget", id).Msg("session.applyValues skipped")
		}
	}
}

// dispatch runs the handler named by signal. A handler whose learned script
// the client already applied runs with its changes discarded.
func (s *Session) dispatch(signal string, learned bool) error {
	h, err := s.app.tree.Handler(signal)
	if err != nil {
		if errors.Is(err, widget.ErrUnknownHandler) {
			log.Warn().Str("session", s.id).Str("signal", signal).Msg("session.dispatch unknown signal")
			return nil
		}
		return err
	}
	if _, ok := s.renderer.State().Learned(signal); !ok || !learned {
		h.Trigger()
		return nil
	}
	if err := s.renderer.SaveChanges(); err != nil {
		return err
	}
	h.Trigger()
	return s.renderer.DiscardChanges()
}
