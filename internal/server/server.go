package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/edgeview/internal/observability"
	"github.com/danmuck/edgeview/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SessionCookie carries the session id between requests.
const SessionCookie = "edgeview_session"

const defaultPushInterval = 250 * time.Millisecond

type Options struct {
	ID          string
	Addr        string
	CorsOrigins []string
	AdminToken  string
	Websocket   bool
	// TLSCertFile and TLSKeyFile switch the listener to HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string
	// PushInterval is how often an open websocket checks its session for
	// pending output.
	PushInterval time.Duration
}

// Server is the HTTP front end of a session registry.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	opts     Options
	registry *session.Registry
	router   *gin.Engine
	upgrader websocket.Upgrader
}

func New(opts Options, registry *session.Registry) *Server {
	observability.RegisterMetrics()
	if opts.ID == "" {
		opts.ID = "viewctl"
	}
	if opts.PushInterval <= 0 {
		opts.PushInterval = defaultPushInterval
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     normalizeOrigins(opts.CorsOrigins),
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:       opts.ID,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		opts:     opts,
		registry: registry,
		router:   r,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled. ln is closed on return.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	secure := s.opts.TLSCertFile != "" && s.opts.TLSKeyFile != ""
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("server", s.ID).
			Str("addr", ln.Addr().String()).
			Bool("tls", secure).
			Msg("server listening")
		if secure {
			errCh <- srv.ServeTLS(ln, s.opts.TLSCertFile, s.opts.TLSKeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("server", s.ID).Msg("server stopped")
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
