package render

import (
	"errors"
	"net/http"
	"strings"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/observability"
	"github.com/rs/zerolog/log"
)

// DefaultTwoPhaseThreshold is the off-screen script size, in bytes, above
// which work is deferred to a follow-up fetch.
const DefaultTwoPhaseThreshold = 5000

// Environment describes what the client supports.
type Environment struct {
	// Probed is false until the bootstrap page reported capabilities.
	Probed    bool
	Scripting bool
	Cookies   bool
}

// App is the session-side collaborator the renderer draws content from.
type App interface {
	SessionID() string
	Roots() []node.Node
	Environment() Environment
	// TakeRedirect returns and clears a pending redirect.
	TakeRedirect() string
	// TakeCookies returns and clears cookies queued for the client.
	TakeCookies() []*http.Cookie
	Title() string
	// TakeTitleChange reports a title change since the last call.
	TakeTitleChange() (string, bool)
	ExposedHandlers() []node.Handler
	// Region returns the rollback region covering the UI tree, or nil.
	Region() node.Region
	Quitted() bool
}

// Config tunes one renderer.
type Config struct {
	// AppClass is the client-side object receiving renderer directives.
	AppClass          string
	TwoPhaseThreshold int
	Estimator         SizeEstimator
	Mode              Mode
	Composer          DocumentComposer
	// RuntimeURL is the client runtime referenced by composed documents.
	RuntimeURL string
	// PushEnabled advertises a reliable push channel to the client.
	PushEnabled bool
}

func DefaultConfig() Config {
	return Config{
		AppClass:          "EV",
		TwoPhaseThreshold: DefaultTwoPhaseThreshold,
		Estimator:         RenderedSize{},
		Mode:              ModeDevelopment,
		RuntimeURL:        "/edgeview.js",
	}
}

// WithDefaults fills zero fields from DefaultConfig. A zero threshold is
// kept: it disables the inline shadow pass.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.AppClass) == "" {
		c.AppClass = def.AppClass
	}
	if c.Estimator == nil {
		c.Estimator = def.Estimator
	}
	c.Mode = NormalizeMode(c.Mode)
	if c.Composer == nil {
		c.Composer = defaultComposer{}
	}
	if strings.TrimSpace(c.RuntimeURL) == "" {
		c.RuntimeURL = def.RuntimeURL
	}
	return c
}

// Renderer builds every response for one session. It is not safe for
// concurrent use; the session serializes access.
type Renderer struct {
	cfg   Config
	app   App
	state *State
}

func New(cfg Config, app App) *Renderer {
	return &Renderer{
		cfg:   cfg.WithDefaults(),
		app:   app,
		state: NewState(),
	}
}

func (r *Renderer) State() *State {
	return r.state
}

func (r *Renderer) Config() Config {
	return r.cfg
}

func (r *Renderer) SetTwoPhaseThreshold(bytes int) {
	r.cfg.TwoPhaseThreshold = bytes
}

func (r *Renderer) MarkDirty(n node.Node, laterOnly bool) {
	r.state.dirty.MarkDirty(n, laterOnly)
}

func (r *Renderer) MarkClean(n node.Node) {
	r.state.dirty.MarkClean(n)
}

// IsLearning reports whether a learning pass is running.
func (r *Renderer) IsLearning() bool {
	return r.state.learning
}

// LearningIncomplete is called by a dependency whose value cannot be known
// without a live round trip.
func (r *Renderer) LearningIncomplete() {
	if r.state.learning {
		r.state.incomplete = true
	}
}

// IsDirty reports whether anything still has to reach the client.
func (r *Renderer) IsDirty() bool {
	return !r.state.dirty.IsEmpty() || r.state.HasPendingOutput()
}

// Ack processes an update acknowledgment from the client. Stale ids are
// ignored and reported as ErrStaleAck.
func (r *Renderer) Ack(id int) error {
	if err := r.state.ack.Ack(id); err != nil {
		observability.RecordAck(false)
		log.Debug().
			Str("session", r.app.SessionID()).
			Int("ack_id", id).
			Int("expected", r.state.ack.Expected()).
			Msg("render.Ack ignored")
		return err
	}
	r.state.setSynced(false)
	observability.RecordAck(true)
	return nil
}

// SaveChanges collects pending changes into the outgoing buffer.
func (r *Renderer) SaveChanges() error {
	_, err := r.collectJS(&r.state.unacked)
	return err
}

// DiscardChanges consumes pending changes without sending them. Used after
// running a handler whose effect the client already applied itself.
func (r *Renderer) DiscardChanges() error {
	_, err := r.collectJS(nil)
	return err
}

// recoverable reports whether err should degrade to a full resync.
func (r *Renderer) recoverable(err error) bool {
	return errors.Is(err, ErrInvariant) && r.cfg.Mode == ModeProduction
}

func (r *Renderer) directive(call string) string {
	return r.cfg.AppClass + "._p_." + call + ";"
}
