// Command wkmp-ap is the playback engine service (§6.3): it owns the
// queue, the crossfade mixer, and the transport control HTTP/SSE surface
// exposed by internal/api/ap.
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

	"github.com/mangocats/wkmp/internal/api/ap"
	"github.com/mangocats/wkmp/internal/buildinfo"
	"github.com/mangocats/wkmp/internal/conf"
	"github.com/mangocats/wkmp/internal/datastore"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/playback/chain"
	"github.com/mangocats/wkmp/internal/playback/engine"
	"github.com/mangocats/wkmp/internal/playback/mixer"
	"github.com/mangocats/wkmp/internal/playback/worker"
	"github.com/mangocats/wkmp/internal/ringbuffer"
)

// version and buildDate are overridden at build time via -ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

// workingRate is the internal sample rate every decoder, chain, and the
// mixer share (§4.1). The real-time audio callback is out of scope here:
// no audio device library sits in the dependency graph, so the mixer is
// driven by a ticker standing in for the hardware callback.
const workingRate = 48000

// callbackFrames is the batch size MixBatch drains per tick, matching a
// 20ms real-time audio callback period.
const callbackFrames = workingRate / 50

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
		Use:   "wkmp-ap",
		Short: "WKMP Audio Player: queue, crossfade mixer, and transport control",
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
	log := logging.ForService("wkmp-ap")

	store, err := datastore.Open(settings)
	if err != nil {
		return &runtimeError{fmt.Errorf("opening datastore: %w", err)}
	}

	bus := eventbus.New(256)
	wk := worker.New(50*time.Millisecond, workingRate)
	out := ringbuffer.New(workingRate * 2)
	mx := mixer.New(mixer.Config{
		WorkingRate:         workingRate,
		PositionEventMs:     100,
		PauseDecayFactor:    0.995,
		PauseDecayFloor:     0.001,
		BackpressureGraceMs: 500,
	}, out, bus)

	eng := engine.New(engine.Config{
		MaximumDecodeStreams: 2,
		WorkingRate:          workingRate,
	}, store, bus, wk, mx, nil)

	runtime := &buildinfo.Context{Version: version, BuildDate: buildDate}
	controller := ap.New(eng, bus, runtime)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	controller.RegisterRoutes(e.Group(""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go wk.Run(ctx, func(entryID int64, res chain.Result, err error) {
		if err != nil {
			log.Warn("decode step failed", "entry_id", entryID, "error", err)
		}
	})
	go pumpMixer(ctx, mx)

	addr := fmt.Sprintf("%s:%d", settings.Service.Host, settings.Service.Port)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(addr)
	}()
	log.Info("wkmp-ap listening", "addr", addr)

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

// pumpMixer drains the mixer at a fixed cadence until ctx is cancelled,
// standing in for the real-time audio callback (§4.8).
func pumpMixer(ctx context.Context, mx *mixer.Mixer) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mx.MixBatch(callbackFrames)
		}
	}
}
