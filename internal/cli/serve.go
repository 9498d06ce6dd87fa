package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/timescope/internal/config"
	"github.com/lazypower/timescope/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket timeline API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := newEngine(cfg, db)
	eng.StartPruneTimer(cfg.Retention())
	defer eng.Stop()

	srv := server.New(db, eng, VersionString())
	defer srv.Close()
	applyServerConfig(srv, cfg)
	srv.StartJanitor(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.Watch(ctx, configFile(), func(next config.Config) {
		applyServerConfig(srv, next)
		fmt.Fprintln(os.Stderr, "  config reloaded")
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: config watch disabled: %v\n", err)
	}

	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "timescope serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		if cfg.Memoir.Offline {
			fmt.Fprintln(os.Stderr, "  memoir: offline, cache only")
		} else {
			fmt.Fprintf(os.Stderr, "  memoir: %s\n", cfg.Memoir.URL)
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}

// applyServerConfig pushes the reloadable settings into the server. The
// listen address and database are fixed for the life of the process.
func applyServerConfig(srv *server.Server, cfg config.Config) {
	srv.SetTimelineDefaults(cfg.Timeline.Options(), cfg.Timeline.Window())
	if idle, err := cfg.IdleTimeout(); err == nil {
		srv.SetSessionIdle(idle)
	}
}

func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}
