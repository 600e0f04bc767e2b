package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"revoice/internal/api"
	"revoice/internal/config"
	"revoice/internal/logging"
	"revoice/internal/regen"
	"revoice/internal/workflow"
)

// Daemon hosts the operator API and enforces single-instance execution via a
// lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *workflow.Manager
	regen   *regen.Controller

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, manager *workflow.Manager, regenCtrl *regen.Controller, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || manager == nil || regenCtrl == nil || logger == nil {
		return nil, errors.New("daemon requires config, workflow manager, regeneration controller, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "revoiced.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		manager:  manager,
		regen:    regenCtrl,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another revoice daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("revoice daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("revoice daemon stopped")
}

// Close releases all daemon resources.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Addr reports the API listen address once started, for tests binding port 0.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Info describes the running daemon for status responses.
func (d *Daemon) Info() api.DaemonInfo {
	return api.DaemonInfo{PID: os.Getpid()}
}
