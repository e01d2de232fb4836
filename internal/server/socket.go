package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/edgeview/internal/observability"
	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const socketWriteTimeout = 10 * time.Second

// socketMessage is one client event over the websocket.
type socketMessage struct {
	Signal   string            `json:"signal"`
	Learned  bool              `json:"learned"`
	FollowUp bool              `json:"followUp"`
	Values   map[string]string `json:"values,omitempty"`
}

func (m socketMessage) input() session.Input {
	return session.Input{
		Request: render.Request{Update: true, Reliable: true, FollowUp: m.FollowUp},
		Cookies: true,
		Signal:  m.Signal,
		Learned: m.Learned,
		Values:  m.Values,
	}
}

// handleSocket upgrades to a websocket that carries client events in and
// self-acknowledged update scripts out, including server-initiated pushes.
func (s *Server) handleSocket(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": session.ErrUnknownSession.Error()})
		return
	}
	observability.SetRequestInfo(c, observability.RequestInfo{Session: sess.ID(), Kind: "socket"})

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID()).Msg("server.handleSocket upgrade failed")
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(resp *render.Response) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, []byte(resp.Body))
	}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		// the read loop blocks in ReadJSON; closing the conn unblocks it
		// once the push loop stops
		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()
		for {
			var msg socketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return err
			}
			resp, err := sess.Handle(msg.input())
			if err != nil {
				log.Warn().Err(err).Str("session", sess.ID()).Msg("server.handleSocket degraded response")
			}
			if err := write(resp); err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.opts.PushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			resp, ok, err := sess.Push()
			if err != nil {
				log.Warn().Err(err).Str("session", sess.ID()).Msg("server.handleSocket push degraded")
			}
			if !ok {
				continue
			}
			if err := write(resp); err != nil {
				return err
			}
		}
	})

	err = g.Wait()
	if err != nil && !isSocketClose(err) {
		log.Warn().Err(err).Str("session", sess.ID()).Msg("server.handleSocket closed")
		return
	}
	log.Debug().Str("session", sess.ID()).Msg("server.handleSocket closed")
}

func isSocketClose(err error) bool {
	return errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
