package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/edgeview/internal/config"
	"github.com/danmuck/edgeview/internal/observability"
	"github.com/danmuck/edgeview/internal/page"
	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/server"
	"github.com/danmuck/edgeview/internal/session"
	"github.com/docopt/docopt-go"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const ViewCtlVersion = "0.0.1"

const usage = `viewctl serves the edgeview demo application.

Usage:
    viewctl serve [--config=<path>]
    viewctl config init [--output=<path>] [--force]
    viewctl config validate [--config=<path>]
    viewctl -h | --help
    viewctl --version

Options:
    -h --help          Show this screen.
    --version          Show version.
    --config=<path>    TOML config file. Defaults apply when omitted.
    --output=<path>    Where to write the config template [default: viewctl.toml].
    --force            Overwrite an existing file.`

const statsInterval = time.Minute

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], ViewCtlVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewctl: %v\n", err)
		os.Exit(2)
	}

	if serve_, _ := opts.Bool("serve"); serve_ {
		err = serve(opts)
	} else if init_, _ := opts.Bool("init"); init_ {
		err = configInit(opts)
	} else if validate_, _ := opts.Bool("validate"); validate_ {
		err = configValidate(opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewctl: %v\n", err)
		os.Exit(1)
	}
}

func serve(opts docopt.Opts) error {
	path, _ := opts.String("--config")
	cfg, err := loadServeConfig(path)
	if err != nil {
		return err
	}
	logger := observability.InitLogger("viewctl")

	rc, err := cfg.Render()
	if err != nil {
		return err
	}
	rc.Composer = page.New()
	if rc.Mode == render.ModeProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	registry := session.NewRegistry(ctx, rc, cfg.SessionTTL(), cfg.MaxSessions, session.Demo(cfg.Title))
	srv := server.New(server.Options{
		ID:          "viewctl",
		Addr:        cfg.Addr,
		CorsOrigins: cfg.CorsOrigins,
		AdminToken:  cfg.AdminToken,
		Websocket:   cfg.WebsocketEnabled,
		TLSCertFile: cfg.TLSCertFile,
		TLSKeyFile:  cfg.TLSKeyFile,
	}, registry)

	logger.Info().
		Str("addr", cfg.Addr).
		Str("mode", string(rc.Mode)).
		Int("two_phase_threshold", rc.TwoPhaseThreshold).
		Bool("websocket", cfg.WebsocketEnabled).
		Msg("viewctl starting")

	g.Go(func() error {
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				logger.Info().Int("sessions", registry.Len()).Msg("viewctl stats")
			}
		}
	})
	return g.Wait()
}

func configInit(opts docopt.Opts) error {
	output, _ := opts.String("--output")
	force, _ := opts.Bool("--force")
	if err := config.WriteTemplate(output, force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", output)
	return nil
}

func configValidate(opts docopt.Opts) error {
	path, _ := opts.String("--config")
	if path == "" {
		path = "viewctl.toml"
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Printf("validated %s\n", path)
	return nil
}
