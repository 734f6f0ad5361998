package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/ride-network-sim/core"
	"github.com/signalsfoundry/ride-network-sim/internal/feed"
	"github.com/signalsfoundry/ride-network-sim/internal/health"
	"github.com/signalsfoundry/ride-network-sim/internal/logging"
	"github.com/signalsfoundry/ride-network-sim/internal/observability"
	"github.com/signalsfoundry/ride-network-sim/internal/render"
	"github.com/signalsfoundry/ride-network-sim/internal/view"
	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/timectrl"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logCfg := logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}
	if cfg.UI == UIDashboard {
		// The dashboard owns the whole terminal.
		logCfg.Output = io.Discard
	}
	log := logging.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log, os.Stdout)
	stop()

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println("Simulation stopped manually.")
	case err != nil:
		log.Error(context.Background(), "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

// run seeds the world and drives the tick loop until cfg.Ticks ticks have
// run or ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, stdout io.Writer) error {
	ctx, log = logging.WithRunLogger(ctx, log)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	r := core.NewRand(cfg.Seed)
	store := kb.NewKnowledgeBase()
	scenario, err := loadWorld(store, cfg.ScenarioPath, r)
	if err != nil {
		return err
	}
	collector.SetEntityCounts(store.Counts())
	log.Info(ctx, "world seeded",
		logging.String("scenario", scenarioName(cfg.ScenarioPath)),
		logging.Int("locations", len(scenario.Locations)),
		logging.Int("base_stations", scenario.BaseStations),
		logging.Int("passengers", scenario.Passengers),
		logging.Int("drivers", scenario.Drivers),
	)

	engine := core.NewSimulationEngine(store, scenario.Locations, r,
		core.WithMetricsRecorder(collector),
		core.WithLogger(log),
		core.WithReleaseOnTick(cfg.ReleaseDrivers),
		core.WithCapacityEnforcement(cfg.EnforceCapacity),
	)
	defer engine.Close()

	renderer, err := newRenderer(ctx, cancel, cfg, stdout)
	if err != nil {
		return err
	}
	defer renderer.Close()

	var snapshots *feed.Server
	if cfg.HTTPAddress != "" {
		snapshots = feed.NewServer(log)
		srv, err := serveHTTP(ctx, cfg.HTTPAddress, newHTTPHandler(collector, snapshots), log)
		if err != nil {
			snapshots.Close()
			return err
		}
		defer shutdownHTTP(srv, log)
		// Streams close first so Shutdown does not wait on subscribers.
		defer snapshots.Close()
	}

	if cfg.GRPCAddress != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("listen for gRPC on %s: %w", cfg.GRPCAddress, err)
		}
		hs := health.NewServer(collector, log)
		go func() {
			if err := hs.Serve(lis); err != nil {
				log.Warn(ctx, "health server exited", logging.Err(err))
			}
		}()
		hs.SetServing(true)
		defer hs.Stop()
	}

	engine.RegisterTickListener(func(ctx context.Context, report core.TickReport) error {
		snap := view.Project(store, report.Tick, report.Time)
		if err := renderer.Render(snap); err != nil {
			return fmt.Errorf("render tick %d: %w", report.Tick, err)
		}
		if snapshots != nil {
			if err := snapshots.Publish(ctx, snap); err != nil {
				log.Warn(ctx, "publish snapshot failed", logging.Err(err))
			}
		}
		return nil
	})

	tc := timectrl.NewTimeController(time.Now().UTC(), cfg.TickInterval, cfg.mode())
	tc.AddListener(func(ctx context.Context, simTime time.Time) error {
		_, err := engine.Tick(ctx, simTime)
		return err
	})

	log.Info(ctx, "starting simulation",
		logging.Duration("tick", cfg.TickInterval),
		logging.Int("ticks", cfg.Ticks),
		logging.String("mode", cfg.mode().String()),
		logging.Bool("release_drivers", cfg.ReleaseDrivers),
		logging.Bool("enforce_capacity", cfg.EnforceCapacity),
	)
	err = tc.Run(ctx, cfg.Ticks)
	log.Info(ctx, "simulation stopped", logging.Int("ticks", engine.Ticks()))
	return err
}

func loadWorld(store *kb.KnowledgeBase, path string, r kb.Rand) (*core.Scenario, error) {
	if path == "" {
		return core.DefaultScenario(store, r), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()
	scenario, err := core.LoadScenario(store, f, r)
	if err != nil {
		return nil, fmt.Errorf("load scenario %q: %w", path, err)
	}
	return scenario, nil
}

func scenarioName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

func newRenderer(ctx context.Context, cancel context.CancelFunc, cfg Config, stdout io.Writer) (render.Renderer, error) {
	switch cfg.UI {
	case UIDashboard:
		d, err := render.NewDashboardRenderer()
		if err != nil {
			return nil, err
		}
		go d.Watch(ctx, cancel)
		return d, nil
	case UINone:
		return render.Discard{}, nil
	default:
		return render.NewTextRenderer(stdout, !cfg.NoClear), nil
	}
}

func newHTTPHandler(collector *observability.SimCollector, snapshots *feed.Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/events", snapshots)
	return mux
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, log logging.Logger) (*http.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for HTTP on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "HTTP server exited", logging.Err(err))
		}
	}()
	log.Info(ctx, "serving metrics and snapshot events", logging.String("addr", lis.Addr().String()))
	return srv, nil
}

func shutdownHTTP(srv *http.Server, log logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn(ctx, "HTTP shutdown", logging.Err(err))
	}
}
