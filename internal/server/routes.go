package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/edgeview/internal/auth"
	"github.com/danmuck/edgeview/internal/observability"
	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() {
	s.router.GET("/", s.handleApp)
	s.router.POST("/", s.handleApp)
	s.router.GET(runtimePath, serveRuntime)
	if s.opts.Websocket {
		s.router.GET("/ws", s.handleSocket)
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":    true,
			"uptime":   time.Since(s.Appeared).String(),
			"service":  s.ID,
			"sessions": s.registry.Len(),
			"version":  "0.0.1",
		})
	})

	admin := s.router.Group("/admin", auth.Middleware(auth.StaticToken{Token: s.opts.AdminToken}))
	admin.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"sessions": s.registry.Snapshot(),
		})
	})
	admin.DELETE("/sessions/:session", func(c *gin.Context) {
		id := c.Param("session")
		if _, err := s.registry.Get(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.registry.Remove(id)
		log.Info().Str("session", id).Msg("admin removed session")
		c.Status(http.StatusNoContent)
	})
}

// handleApp serves every document, script and update of the application.
func (s *Server) handleApp(c *gin.Context) {
	in, err := decodeInput(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := render.Classify(in.Request)

	sess, known := s.lookup(c)
	if !known {
		if kind != render.KindPage {
			// the session is gone; the client has to start over
			writeResponse(c, staleSessionResponse(kind))
			return
		}
		sess, err = s.registry.Create()
		if err != nil {
			log.Error().Err(err).Msg("server.handleApp session create failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	in.Cookies = known
	observability.SetRequestInfo(c, observability.RequestInfo{
		Session: sess.ID(),
		Kind:    kind.String(),
		Signal:  in.Signal,
		Learned: in.Learned,
		HasAck:  in.HasAck,
		AckID:   in.AckID,
	})

	resp, err := sess.Handle(in)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID()).Str("kind", kind.String()).Msg("server.handleApp degraded response")
	}
	writeResponse(c, resp)
}

func (s *Server) lookup(c *gin.Context) (*session.Session, bool) {
	id, err := c.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	sess, err := s.registry.Get(id)
	if err != nil {
		if !errors.Is(err, session.ErrUnknownSession) {
			log.Error().Err(err).Str("session", id).Msg("server.lookup failed")
		}
		return nil, false
	}
	return sess, true
}

func writeResponse(c *gin.Context, resp *render.Response) {
	for key, values := range resp.Header {
		if key == "Content-Type" {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	c.Data(resp.Status, resp.ContentType(), []byte(resp.Body))
}

func staleSessionResponse(kind render.Kind) *render.Response {
	resp := &render.Response{Kind: kind, Status: http.StatusOK, Header: make(http.Header)}
	resp.Header.Set("Content-Type", "text/javascript; charset=UTF-8")
	resp.Body = "window.location.reload(true);"
	return resp
}
