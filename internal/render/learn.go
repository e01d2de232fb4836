package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/observability"
	"github.com/rs/zerolog/log"
)

// Learn runs h once against the live tree, captures the client script it
// produces and undoes it. Pending dirty work is flushed to the outgoing
// buffer first so the captured script holds only the handler's effect.
func (r *Renderer) Learn(h node.Handler) (string, error) {
	s := r.state
	if s.learning || s.collecting {
		return "", ErrLearningActive
	}
	if s.building {
		return "", ErrBuildActive
	}
	if js, ok := s.learned[h.HandlerID()]; ok {
		return js, nil
	}
	if _, err := r.collectJS(&s.unacked); err != nil {
		return "", err
	}
	return r.learn(h)
}

func (r *Renderer) learn(h node.Handler) (string, error) {
	s := r.state
	if s.learning || s.collecting {
		return "", ErrLearningActive
	}
	rev, reversible := h.(node.Reversible)
	region := r.app.Region()
	if !reversible && region == nil {
		return "", fmt.Errorf("%w: %s", ErrNotReversible, h.HandlerID())
	}

	stash := s.dirty.take()
	s.learning = true
	s.incomplete = false
	mark := 0
	if !reversible {
		mark = region.Checkpoint()
	}

	h.Trigger()
	var js strings.Builder
	_, collectErr := r.collectJS(&js)

	if reversible {
		rev.Undo()
	} else {
		region.RollbackTo(mark)
	}
	_, discardErr := r.collectJS(nil)
	s.dirty.restore(stash)
	s.learning = false

	if err := errors.Join(collectErr, discardErr); err != nil {
		observability.RecordLearn("error")
		return "", err
	}
	if s.incomplete {
		s.incomplete = false
		observability.RecordLearn("incomplete")
		log.Debug().
			Str("session", r.app.SessionID()).
			Str("handler", h.HandlerID()).
			Msg("render.learn incomplete, deferred")
		return "", fmt.Errorf("%w: %s", ErrIncompleteLearning, h.HandlerID())
	}

	script := js.String()
	s.learned[h.HandlerID()] = script
	prev, relearned := s.stale[h.HandlerID()]
	delete(s.stale, h.HandlerID())
	if !relearned || prev != script {
		s.stateless.WriteString(r.directive("learn(" + jsString(h.HandlerID()) + ",function(){" + script + "})"))
	}
	observability.RecordLearn("ok")
	return script, nil
}

// InvalidateLearned moves every cached script aside after the session state
// changed. The next pre-learning pass captures each handler again and
// reinstalls it on the client only when its script changed. A handler that
// can no longer be learned is withdrawn from the client.
func (r *Renderer) InvalidateLearned() {
	s := r.state
	for id, js := range s.learned {
		s.stale[id] = js
	}
	clear(s.learned)
}

// preLearn flushes pending work to out, learns every exposed handler that is
// not yet learned and whose owner is on the client, then writes the queued
// install directives. Clients without scripting get nothing learned.
func (r *Renderer) preLearn(out *strings.Builder) error {
	if !r.app.Environment().Scripting {
		return nil
	}
	if _, err := r.collectJS(out); err != nil {
		return err
	}
	for _, h := range r.app.ExposedHandlers() {
		if _, ok := r.state.learned[h.HandlerID()]; ok {
			continue
		}
		if owner := h.Owner(); owner != nil && !owner.IsRendered() {
			continue
		}
		if _, err := r.learn(h); err != nil {
			if errors.Is(err, ErrIncompleteLearning) || errors.Is(err, ErrNotReversible) {
				r.withdraw(h.HandlerID())
				continue
			}
			return err
		}
	}
	out.WriteString(r.state.stateless.String())
	r.state.stateless.Reset()
	return nil
}

// withdraw removes a stale learned script from the client so the next click
// goes to the server.
func (r *Renderer) withdraw(handlerID string) {
	if _, ok := r.state.stale[handlerID]; !ok {
		return
	}
	delete(r.state.stale, handlerID)
	r.state.stateless.WriteString(r.directive("learn(" + jsString(handlerID) + ",null)"))
}
