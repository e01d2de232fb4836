package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/edgeview/internal/render"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the on-disk shape of a viewctl config file.
type Config struct {
	Addr              string   `toml:"addr"`
	Mode              string   `toml:"mode"`
	Title             string   `toml:"title"`
	AppClass          string   `toml:"app_class"`
	TwoPhaseThreshold int      `toml:"two_phase_threshold"`
	SizeEstimator     string   `toml:"size_estimator"`
	RecordCost        int      `toml:"record_cost"`
	SessionTimeout    int      `toml:"session_timeout"`
	MaxSessions       int      `toml:"max_sessions"`
	CorsOrigins       []string `toml:"cors_origins"`
	AdminToken        string   `toml:"admin_token"`
	WebsocketEnabled  bool     `toml:"websocket_enabled"`
	TLSCertFile       string   `toml:"tls_cert_file"`
	TLSKeyFile        string   `toml:"tls_key_file"`
}

func Default() Config {
	return Config{
		Addr:              ":8080",
		Mode:              string(render.ModeDevelopment),
		Title:             "edgeview",
		AppClass:          "EV",
		TwoPhaseThreshold: render.DefaultTwoPhaseThreshold,
		SizeEstimator:     "rendered",
		RecordCost:        200,
		SessionTimeout:    600,
		MaxSessions:       1024,
		CorsOrigins:       []string{"http://localhost:3000"},
		WebsocketEnabled:  true,
	}
}

// Load reads path strictly: unknown keys are rejected. Missing keys keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	}
	if err := render.ValidateMode(render.Mode(c.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.TwoPhaseThreshold < 0 {
		return fmt.Errorf("%w: two_phase_threshold must not be negative", ErrInvalidConfig)
	}
	if _, err := render.NewSizeEstimator(c.SizeEstimator, c.RecordCost); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("%w: session_timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalidConfig)
	}
	if (strings.TrimSpace(c.TLSCertFile) == "") != (strings.TrimSpace(c.TLSKeyFile) == "") {
		return fmt.Errorf("%w: tls_cert_file and tls_key_file must be set together", ErrInvalidConfig)
	}
	if render.NormalizeMode(render.Mode(c.Mode)) == render.ModeProduction && strings.TrimSpace(c.AdminToken) == "" {
		return fmt.Errorf("%w: admin_token is required in production mode", ErrInvalidConfig)
	}
	return nil
}

// Render converts the file settings into renderer settings.
func (c Config) Render() (render.Config, error) {
	est, err := render.NewSizeEstimator(c.SizeEstimator, c.RecordCost)
	if err != nil {
		return render.Config{}, err
	}
	cfg := render.DefaultConfig()
	cfg.AppClass = strings.TrimSpace(c.AppClass)
	cfg.TwoPhaseThreshold = c.TwoPhaseThreshold
	cfg.Estimator = est
	cfg.Mode = render.NormalizeMode(render.Mode(c.Mode))
	cfg.PushEnabled = c.WebsocketEnabled
	return cfg.WithDefaults(), nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTimeout) * time.Second
}
