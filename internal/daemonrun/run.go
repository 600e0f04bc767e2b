// Package daemonrun assembles and runs the daemon process: logger, session
// store, processing gateway, workflow manager, regeneration controller, and
// the daemon itself, torn down on SIGINT/SIGTERM.
package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"revoice/internal/config"
	"revoice/internal/daemon"
	"revoice/internal/gateway"
	"revoice/internal/logging"
	"revoice/internal/regen"
	"revoice/internal/session"
	"revoice/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the revoice daemon and blocks until the context is canceled or
// a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store := session.NewStore()
	proc := gateway.NewClient(cfg, logger)
	manager := workflow.NewManager(store, proc, logger)
	regenCtrl := regen.NewController(store, proc, logger)

	d, err := daemon.New(cfg, manager, regenCtrl, logger)
	if err != nil {
		return fmt.Errorf("init daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("daemon close", logging.Error(err))
		}
	}()

	logger.Info("revoice daemon ready",
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.String("processing_base_url", cfg.Processing.BaseURL),
	)

	<-signalCtx.Done()
	logger.Info("shutdown signal received")
	return nil
}
