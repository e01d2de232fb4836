package render

import "strings"

// State is everything the renderer keeps for one session. It is owned by the
// session and passed through every phase (collect, deliver, learn, ack).
type State struct {
	dirty *DirtyTracker
	ack   AckSequencer

	// visibleOnly restricts collection to nodes already rendered on the client.
	visibleOnly bool
	learning    bool
	incomplete  bool
	collecting  bool
	building    bool

	// rendered is set once the client holds a page built by this renderer.
	rendered bool
	// needsResync forces the next exchange through a full document.
	needsResync bool

	// unacked holds script sent but not yet acknowledged.
	unacked strings.Builder
	// invisible holds captured off-screen work awaiting a follow-up fetch.
	invisible strings.Builder
	// stateless holds learned-handler install directives for the next response.
	stateless strings.Builder

	learned map[string]string
	// stale holds scripts the client still runs for handlers awaiting a re-learn.
	stale       map[string]string
	formObjects string
}

func NewState() *State {
	return &State{
		dirty:       NewDirtyTracker(),
		visibleOnly: true,
		learned:     make(map[string]string),
		stale:       make(map[string]string),
	}
}

func (s *State) Dirty() *DirtyTracker {
	return s.dirty
}

func (s *State) ExpectedAckID() int {
	return s.ack.Expected()
}

func (s *State) AckState() AckState {
	return s.ack.State()
}

func (s *State) Rendered() bool {
	return s.rendered
}

func (s *State) NeedsResync() bool {
	return s.needsResync
}

func (s *State) Learning() bool {
	return s.learning
}

// Learned returns the cached client script for a handler.
func (s *State) Learned(handlerID string) (string, bool) {
	js, ok := s.learned[handlerID]
	return js, ok
}

func (s *State) LearnedCount() int {
	return len(s.learned)
}

// PendingScript returns the unacknowledged script.
func (s *State) PendingScript() string {
	return s.unacked.String()
}

// InvisibleScript returns deferred off-screen work not yet sent.
func (s *State) InvisibleScript() string {
	return s.invisible.String()
}

// HasPendingOutput reports whether any buffer still holds script for the client.
func (s *State) HasPendingOutput() bool {
	return s.unacked.Len() > 0 || s.invisible.Len() > 0
}

// setSynced drops the acknowledged script. Unless invisibleToo is set, held
// off-screen work moves into the outgoing buffer for the next response.
func (s *State) setSynced(invisibleToo bool) {
	held := s.invisible.String()
	s.unacked.Reset()
	s.invisible.Reset()
	if !invisibleToo {
		s.unacked.WriteString(held)
	}
}
