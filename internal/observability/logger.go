package observability

import (
	"github.com/danmuck/edgeview/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime profile and tags every line with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
