package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/petrel-ftp/petrel/auth"
	"github.com/petrel-ftp/petrel/host"
	"github.com/petrel-ftp/petrel/internal/config"
	"github.com/petrel-ftp/petrel/internal/logger"
	"github.com/petrel-ftp/petrel/metrics"
	"github.com/petrel-ftp/petrel/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FTP server",
	Long: `Start the FTP server with the configured listener, credentials and
root directory, and run until interrupted.

Examples:
  # Serve with ./petrel.yaml or /etc/petrel/petrel.yaml
  petreld serve

  # Serve with an explicit config file
  petreld serve --config /etc/petrel/petrel.yaml

  # Override a setting from the environment
  PETREL_LOGGING_LEVEL=debug petreld serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.Init(cfg.Logging)
	if err != nil {
		return err
	}

	creds := auth.NewStore()
	for i, spec := range cfg.Auth.Credentials {
		// The entry carries a password digest; report the position, not
		// the content.
		if err := creds.Register(spec); err != nil {
			return fmt.Errorf("auth.credentials[%d]: %w", i, err)
		}
	}
	if creds.Len() == 0 {
		log.Warn("no credentials configured, every login will be refused")
	}

	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return fmt.Errorf("creating root directory: %w", err)
	}
	fsys := afero.NewBasePathFs(afero.NewOsFs(), cfg.Root)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SITE SHUTDOWN -h/-r winds down this process rather than the
	// machine; a supervisor decides what happens next.
	machine := host.New(log,
		host.WithHaltHook(stop),
		host.WithRestartHook(stop),
	)

	opts := []server.Option{
		server.WithCredentials(creds),
		server.WithFilesystem(fsys),
		server.WithLogger(log),
		server.WithBanner(cfg.Server.Banner),
		server.WithPublicHost(cfg.Server.PublicHost),
		server.WithIdleTimeout(cfg.Server.IdleTimeout),
		server.WithDataTimeout(cfg.Server.DataTimeout),
		server.WithMaxSessions(cfg.Server.MaxSessions),
		server.WithPassivePorts(cfg.Server.PasvPortMin, cfg.Server.PasvPortMax),
		server.WithBandwidthLimit(int64(cfg.Server.BandwidthLimit)),
		server.WithAllowForeignPort(cfg.Server.AllowForeignPort),
		server.WithFailureDelay(cfg.Auth.FailureDelay),
		server.WithLoginLimit(cfg.Auth.FailureLimit, cfg.Auth.FailureWindow),
		server.WithHost(machine),
		server.WithDiskPath(cfg.Root),
	}

	var status *metrics.StatusServer
	if cfg.Status.Enabled {
		prom := metrics.NewPrometheus()
		status = metrics.NewStatusServer(cfg.Status.Bind, prom, log)
		opts = append(opts, server.WithMetrics(prom))
	}

	srv, err := server.NewServer(cfg.Server.Addr(), opts...)
	if err != nil {
		return err
	}

	if err := config.Watch(cfgFile, log, func(next *config.Config) {
		if err := logger.SetLevel(next.Logging.Level); err != nil {
			log.Warn("config reload: bad log level", "error", err)
		}
	}); err != nil {
		log.Warn("config watch unavailable", "error", err)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	if status != nil {
		log.Info("status endpoint listening", "addr", cfg.Status.Bind)
		go func() {
			errCh <- status.ListenAndServe()
		}()
	}

	log.Info("petreld started",
		"version", Version,
		"addr", cfg.Server.Addr(),
		"root", cfg.Root,
		"users", creds.Len(),
	)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, server.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if status != nil {
		if err := status.Shutdown(shutdownCtx); err != nil {
			log.Warn("status endpoint shutdown", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", "error", err)
	}
	log.Info("petreld stopped")
	return nil
}
