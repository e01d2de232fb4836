package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/edgeview/internal/config"
	"github.com/rs/zerolog/log"
)

// viewctl config.toml key mapping. Pointers are not needed: meta.IsDefined
// tells set keys from zero values.
type fileConfig struct {
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

// loadServeConfig overlays the file at path onto the defaults. Unknown keys
// are logged and ignored; `viewctl config validate` rejects them.
func loadServeConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.Validate()
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Config{}, fmt.Errorf("load viewctl config: %w", err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Str("path", path).Msg("viewctl config key ignored")
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("mode") {
		cfg.Mode = strings.TrimSpace(raw.Mode)
	}
	if meta.IsDefined("title") {
		cfg.Title = raw.Title
	}
	if meta.IsDefined("app_class") {
		cfg.AppClass = strings.TrimSpace(raw.AppClass)
	}
	if meta.IsDefined("two_phase_threshold") {
		cfg.TwoPhaseThreshold = raw.TwoPhaseThreshold
	}
	if meta.IsDefined("size_estimator") {
		cfg.SizeEstimator = strings.TrimSpace(raw.SizeEstimator)
	}
	if meta.IsDefined("record_cost") {
		cfg.RecordCost = raw.RecordCost
	}
	if meta.IsDefined("session_timeout") {
		cfg.SessionTimeout = raw.SessionTimeout
	}
	if meta.IsDefined("max_sessions") {
		cfg.MaxSessions = raw.MaxSessions
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("websocket_enabled") {
		cfg.WebsocketEnabled = raw.WebsocketEnabled
	}
	if meta.IsDefined("tls_cert_file") {
		cfg.TLSCertFile = strings.TrimSpace(raw.TLSCertFile)
	}
	if meta.IsDefined("tls_key_file") {
		cfg.TLSKeyFile = strings.TrimSpace(raw.TLSKeyFile)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("load viewctl config: %w", err)
	}
	return cfg, nil
}
