package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func TestTemplateRoundTripsDefaults(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("template drifted from defaults (-want +got):\n%s", diff)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("addr = \":9000\"\ncolour = \"red\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestValidate(t *testing.T) {
	testlog.Start(t)

	cases := map[string]func(*Config){
		"empty addr":       func(c *Config) { c.Addr = " " },
		"bad mode":         func(c *Config) { c.Mode = "staging" },
		"negative":         func(c *Config) { c.TwoPhaseThreshold = -1 },
		"estimator":        func(c *Config) { c.SizeEstimator = "guess" },
		"record cost":      func(c *Config) { c.SizeEstimator = "records"; c.RecordCost = 0 },
		"timeout":          func(c *Config) { c.SessionTimeout = 0 },
		"production token": func(c *Config) { c.Mode = "production" },
		"tls half":         func(c *Config) { c.TLSCertFile = "server.crt" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestRenderConversion(t *testing.T) {
	testlog.Start(t)

	cfg := Default()
	cfg.Mode = "Production"
	cfg.AdminToken = "secret"
	cfg.SizeEstimator = "records"
	cfg.RecordCost = 1000
	cfg.TwoPhaseThreshold = 0
	cfg.SessionTimeout = 90

	rc, err := cfg.Render()
	if err != nil {
		t.Fatalf("render config: %v", err)
	}
	if rc.Mode != render.ModeProduction || rc.TwoPhaseThreshold != 0 || rc.Estimator != (render.RecordCost{Cost: 1000}) {
		t.Fatalf("unexpected render config: %+v", rc)
	}
	if !rc.PushEnabled || rc.AppClass != "EV" {
		t.Fatalf("unexpected push/app class: %+v", rc)
	}
	if cfg.SessionTTL() != 90*time.Second {
		t.Fatalf("unexpected ttl: %s", cfg.SessionTTL())
	}
}
