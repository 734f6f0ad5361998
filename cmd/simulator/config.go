package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/signalsfoundry/ride-network-sim/internal/observability"
	"github.com/signalsfoundry/ride-network-sim/timectrl"
)

// UI modes accepted by --ui.
const (
	UIText      = "text"
	UIDashboard = "dashboard"
	UINone      = "none"
)

// Config holds everything run needs. Environment variables provide the
// defaults and flags override them.
type Config struct {
	TickInterval    time.Duration
	Ticks           int
	Accelerated     bool
	Seed            int64
	ScenarioPath    string
	UI              string
	NoClear         bool
	ReleaseDrivers  bool
	EnforceCapacity bool
	HTTPAddress     string
	GRPCAddress     string
	LogLevel        string
	LogFormat       string
	Tracing         observability.TracingConfig
}

func defaultConfig() Config {
	return Config{
		TickInterval: timectrl.DefaultTick,
		UI:           UIText,
		LogLevel:     "info",
		LogFormat:    "text",
		Tracing:      observability.DefaultTracingConfig(),
	}
}

// parseConfig reads SIM_* and LOG_* variables through getenv, then args.
func parseConfig(args []string, getenv func(string) string, stderr io.Writer) (Config, error) {
	cfg := defaultConfig()
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "pause between ticks in real-time mode")
	fs.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "number of ticks to run (0 runs until interrupted)")
	fs.BoolVar(&cfg.Accelerated, "accelerated", cfg.Accelerated, "run ticks back to back without pausing")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 seeds from the clock)")
	fs.StringVar(&cfg.ScenarioPath, "scenario", cfg.ScenarioPath, "path to a JSON scenario (default: built-in world)")
	fs.StringVar(&cfg.UI, "ui", cfg.UI, "output mode: text, dashboard or none")
	fs.BoolVar(&cfg.NoClear, "no-clear", cfg.NoClear, "append frames instead of clearing the screen")
	fs.BoolVar(&cfg.ReleaseDrivers, "release-drivers", cfg.ReleaseDrivers, "return busy drivers to the pool every tick")
	fs.BoolVar(&cfg.EnforceCapacity, "enforce-capacity", cfg.EnforceCapacity, "refuse connections to full base stations")
	fs.StringVar(&cfg.HTTPAddress, "http-addr", cfg.HTTPAddress, "HTTP address for /metrics and /events (empty disables)")
	fs.StringVar(&cfg.GRPCAddress, "grpc-addr", cfg.GRPCAddress, "TCP address for the gRPC health service (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	tracing, err := observability.TracingConfigFromEnv(getenv)
	if err != nil {
		return err
	}
	cfg.Tracing = tracing

	if v := getenv("SIM_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIM_TICK: %w", err)
		}
		cfg.TickInterval = d
	}
	if v := getenv("SIM_TICKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIM_TICKS: %w", err)
		}
		cfg.Ticks = n
	}
	if v := getenv("SIM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SIM_SEED: %w", err)
		}
		cfg.Seed = n
	}
	for key, dst := range map[string]*bool{
		"SIM_ACCELERATED":      &cfg.Accelerated,
		"SIM_RELEASE_DRIVERS":  &cfg.ReleaseDrivers,
		"SIM_ENFORCE_CAPACITY": &cfg.EnforceCapacity,
	} {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	for key, dst := range map[string]*string{
		"SIM_SCENARIO":  &cfg.ScenarioPath,
		"SIM_UI":        &cfg.UI,
		"SIM_HTTP_ADDR": &cfg.HTTPAddress,
		"SIM_GRPC_ADDR": &cfg.GRPCAddress,
		"LOG_LEVEL":     &cfg.LogLevel,
		"LOG_FORMAT":    &cfg.LogFormat,
	} {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	return nil
}

func (c Config) validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", c.Ticks)
	}
	switch c.UI {
	case UIText, UIDashboard, UINone:
	default:
		return fmt.Errorf("unknown ui %q (want %s, %s or %s)", c.UI, UIText, UIDashboard, UINone)
	}
	return nil
}

func (c Config) mode() timectrl.Mode {
	if c.Accelerated {
		return timectrl.Accelerated
	}
	return timectrl.RealTime
}
