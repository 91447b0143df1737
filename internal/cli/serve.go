package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/haskel/aerotwin/internal/config"
	"github.com/haskel/aerotwin/internal/logger"
	"github.com/haskel/aerotwin/internal/scheduler"
	"github.com/haskel/aerotwin/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction server",
	Long: `Start the aerotwin HTTP server in foreground mode.

The model is loaded from the artifact directory, or trained, on the first
prediction. With --warm (or model.warm_on_start) initialization starts in
the background as soon as the server is up. A positive
model.reload_interval_sec makes the server pick up artifacts written by
another process.`,
	RunE: runServe,
}

var warmStart bool

func init() {
	serveCmd.Flags().BoolVar(&warmStart, "warm", false, "load or train the model at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, source, err := config.Resolve(cfgFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if warmStart {
		cfg.Model.WarmOnStart = true
	}

	file := cfg.Logging.File
	log, logCloser := logger.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, logger.FileOptions{
		Path:       file.Path,
		MaxSizeMB:  file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAgeDays: file.MaxAgeDays,
		Compress:   file.Compress,
	})
	defer logCloser.Close()

	log.Info("aerotwin starting",
		"version", Version,
		"config", source,
		"artifact_dir", cfg.Model.ArtifactDir,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	predictor, store := newLocalPredictor(cfg, log, reg)
	log.Info("artifact store", "status", artifactSummary(store))

	if cfg.Server.PIDFile != "" {
		if err := writePIDFile(cfg.Server.PIDFile); err != nil {
			log.Warn("failed to write PID file", "error", err)
		} else {
			defer os.Remove(cfg.Server.PIDFile)
		}
	}

	srv := server.New(cfg, predictor, reg, log, Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Model.WarmOnStart {
		go func() {
			if err := predictor.Warm(ctx); err != nil {
				log.Error("model warm-up failed", "error", err)
			}
		}()
	}

	if interval := cfg.Model.ReloadInterval(); interval > 0 {
		watcher := scheduler.New(artifactWatchJob(store, predictor, log), scheduler.Config{
			Name:     "artifact-watch",
			Interval: interval,
			Logger:   log,
		})
		srv.SetArtifactWatcher(watcher)
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	sighupCh := make(chan os.Signal, 1)
	sigCh := make(chan os.Signal, 1)
	shutdownDone := make(chan struct{})

	signal.Notify(sighupCh, syscall.SIGHUP)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-sighupCh:
				log.Info("SIGHUP received, reloading configuration")

				newCfg, err := loadConfig()
				if err != nil {
					log.Error("invalid configuration, reload aborted", "error", err)
					continue
				}
				srv.ReloadConfig(newCfg)
			case <-shutdownDone:
				return
			}
		}
	}()

	go func() {
		<-sigCh

		log.Info("shutdown signal received")

		signal.Stop(sighupCh)
		signal.Stop(sigCh)
		close(shutdownDone)

		// abort an in-flight warm-up training run
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	log.Info("aerotwin ready", "addr", srv.Addr())

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("aerotwin stopped")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if d := cfg.ShutdownTimeout(); d > 0 {
		return d
	}
	return 30 * time.Second
}

func writePIDFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", pid)), 0644)
}
