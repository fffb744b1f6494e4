// Command wkmp-ai is the library import service (§6.3): it drives the
// ten-phase import pipeline (internal/importpipeline) behind the
// HTTP/SSE control surface exposed by internal/api/ai.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mangocats/wkmp/internal/api/ai"
	"github.com/mangocats/wkmp/internal/buildinfo"
	"github.com/mangocats/wkmp/internal/conf"
	"github.com/mangocats/wkmp/internal/datastore"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/importpipeline"
	"github.com/mangocats/wkmp/internal/logging"
)

// version and buildDate are overridden at build time via -ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

// runtimeError marks a failure that occurred after startup succeeded, as
// distinct from a misused flag or bad configuration (§6.3 exit codes).
type runtimeError struct{ err error }

func (r *runtimeError) Error() string { return r.err.Error() }
func (r *runtimeError) Unwrap() error { return r.err }

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string

	cmd := &cobra.Command{
		Use:   "wkmp-ai",
		Short: "WKMP Import: ten-phase library scan and fingerprint/identity pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", viper.GetString("config"), "path to YAML configuration file")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "error binding flags: %v\n", err)
		return 1
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var rerr *runtimeError
		if errors.As(err, &rerr) {
			return 2
		}
		return 1
	}
	return 0
}

func serve(configPath string) error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(settings.Log.JSON)
	log := logging.ForService("wkmp-ai")

	store, err := datastore.Open(settings)
	if err != nil {
		return &runtimeError{fmt.Errorf("opening datastore: %w", err)}
	}

	bus := eventbus.New(256)
	orchestrator := importpipeline.NewWorkflowOrchestrator(store, bus, settings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orchestrator.RecoverStaleSessions(ctx); err != nil {
		log.Warn("failed to recover stale import sessions", "error", err)
	}

	runtime := &buildinfo.Context{Version: version, BuildDate: buildDate}
	controller := ai.New(orchestrator, store, bus, runtime)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	controller.RegisterRoutes(e.Group(""))

	addr := fmt.Sprintf("%s:%d", settings.Service.Host, settings.Service.Port)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(addr)
	}()
	log.Info("wkmp-ai listening", "addr", addr)

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return &runtimeError{fmt.Errorf("graceful shutdown: %w", err)}
		}
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return &runtimeError{fmt.Errorf("http server: %w", err)}
		}
		return nil
	}
}
