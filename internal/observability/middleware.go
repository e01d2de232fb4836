package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const contextRequestKey = "edgeview.request"

// RequestInfo describes what an application request asked of its session.
type RequestInfo struct {
	Session string
	Kind    string
	Signal  string
	Learned bool
	HasAck  bool
	AckID   int
}

// SetRequestInfo attaches info to c for the request logger.
func SetRequestInfo(c *gin.Context, info RequestInfo) {
	c.Set(contextRequestKey, info)
}

func requestInfo(c *gin.Context) (RequestInfo, bool) {
	v, ok := c.Get(contextRequestKey)
	if !ok {
		return RequestInfo{}, false
	}
	info, ok := v.(RequestInfo)
	return info, ok
}

func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		if info, ok := requestInfo(c); ok {
			event = event.Str("session", info.Session).Str("kind", info.Kind)
			if info.Signal != "" {
				event = event.Str("signal", info.Signal).Bool("learned", info.Learned)
			}
			if info.HasAck {
				event = event.Int("ack_id", info.AckID)
			}
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("http_request")
	}
}

func RequestMetricsMiddleware(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		RecordHTTPRequest(node, c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
