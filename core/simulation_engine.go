package core

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/ride-network-sim/internal/logging"
	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

const tracerName = "github.com/signalsfoundry/ride-network-sim/core"

// StationLoad is a per-station connection count taken after a tick.
type StationLoad struct {
	ID        string
	Location  model.Location
	Connected int
	Capacity  int
}

// TickReport describes what one tick changed.
type TickReport struct {
	Tick         int
	Time         time.Time
	Duration     time.Duration
	Connectivity ConnectivityReport
	Dispatch     DispatchReport
	Stations     []StationLoad
}

// MetricsRecorder receives a report after every tick.
type MetricsRecorder interface {
	RecordTick(TickReport)
}

// TickListener runs after the core steps of a tick, on the engine's
// goroutine. A non-nil error aborts the tick.
type TickListener func(ctx context.Context, report TickReport) error

// SimulationEngine owns the per-tick pipeline: move passengers and
// drivers, rebuild connectivity, dispatch, then notify listeners.
type SimulationEngine struct {
	KB                  *kb.KnowledgeBase
	Mobility            *MobilityModel
	ConnectivityService *ConnectivityService
	DispatchService     *DispatchService

	metrics MetricsRecorder
	log     logging.Logger
	now     func() time.Time

	tick          int
	tickListeners []TickListener

	unsubscribe func()
	eventsMu    sync.Mutex
	events      []kb.Event
}

// EngineOption customises SimulationEngine construction.
type EngineOption func(*SimulationEngine)

// WithMetricsRecorder attaches a recorder invoked after every tick.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(se *SimulationEngine) {
		se.metrics = m
	}
}

// WithLogger sets the fallback logger used when the tick context carries
// none.
func WithLogger(l logging.Logger) EngineOption {
	return func(se *SimulationEngine) {
		if l != nil {
			se.log = l
		}
	}
}

// WithClock overrides the wall clock used by Run.
func WithClock(now func() time.Time) EngineOption {
	return func(se *SimulationEngine) {
		if now != nil {
			se.now = now
		}
	}
}

// WithReleaseOnTick enables returning busy drivers to the pool every tick.
func WithReleaseOnTick(enabled bool) EngineOption {
	return func(se *SimulationEngine) {
		se.DispatchService.ReleaseOnTick = enabled
	}
}

// WithCapacityEnforcement makes full stations refuse further devices.
func WithCapacityEnforcement(enabled bool) EngineOption {
	return func(se *SimulationEngine) {
		se.ConnectivityService.EnforceCapacity = enabled
	}
}

// NewSimulationEngine wires the services over store. All random choices
// are drawn from r.
func NewSimulationEngine(store *kb.KnowledgeBase, locations []model.Location, r kb.Rand, opts ...EngineOption) *SimulationEngine {
	se := &SimulationEngine{
		KB:                  store,
		Mobility:            NewMobilityModel(locations, r),
		ConnectivityService: NewConnectivityService(store, r),
		DispatchService:     NewDispatchService(store, r),
		log:                 logging.Noop(),
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(se)
	}
	se.unsubscribe = store.Subscribe(func(e kb.Event) {
		se.eventsMu.Lock()
		se.events = append(se.events, e)
		se.eventsMu.Unlock()
	})
	return se
}

// Close detaches the engine from its KB.
func (se *SimulationEngine) Close() {
	if se.unsubscribe != nil {
		se.unsubscribe()
		se.unsubscribe = nil
	}
}

func (se *SimulationEngine) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return se.log
}

func (se *SimulationEngine) logEvents(ctx context.Context, log logging.Logger) {
	se.eventsMu.Lock()
	events := se.events
	se.events = nil
	se.eventsMu.Unlock()

	for _, e := range events {
		log.Info(ctx, "dispatch event",
			logging.String("event", e.Type.String()),
			logging.String("driver_id", e.DriverID),
			logging.String("passenger_id", e.PassengerID),
		)
	}
}

// RegisterTickListener appends fn to the listeners run after every tick.
func (se *SimulationEngine) RegisterTickListener(fn TickListener) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Ticks returns how many ticks have completed.
func (se *SimulationEngine) Ticks() int {
	return se.tick
}

// Tick runs one full iteration at simulated time at.
func (se *SimulationEngine) Tick(ctx context.Context, at time.Time) (TickReport, error) {
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}

	start := time.Now()
	se.tick++
	report := TickReport{Tick: se.tick, Time: at}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "simulation.tick", trace.WithAttributes(attribute.Int("sim.tick", se.tick)))
	defer span.End()

	_, step := tracer.Start(ctx, "mobility")
	se.Mobility.RandomizePassengers(se.KB)
	se.Mobility.RandomizeDrivers(se.KB)
	step.End()

	_, step = tracer.Start(ctx, "connectivity")
	report.Connectivity = se.ConnectivityService.UpdateConnectivity()
	step.SetAttributes(
		attribute.Int("sim.devices.connected", report.Connectivity.Connected),
		attribute.Int("sim.devices.unconnected", report.Connectivity.Unconnected),
		attribute.Int("sim.devices.rejected", report.Connectivity.Rejected),
	)
	step.End()

	_, step = tracer.Start(ctx, "dispatch")
	report.Dispatch = se.DispatchService.Dispatch()
	step.SetAttributes(
		attribute.Int("sim.dispatch.assigned", len(report.Dispatch.Assignments)),
		attribute.Int("sim.dispatch.released", report.Dispatch.Released),
		attribute.Int("sim.dispatch.unassigned", report.Dispatch.Unassigned),
	)
	step.End()
	log := se.logger(ctx)
	se.logEvents(ctx, log)

	for _, bs := range se.KB.BaseStations() {
		report.Stations = append(report.Stations, StationLoad{
			ID:        bs.ID,
			Location:  bs.Location,
			Connected: bs.ConnectedCount(),
			Capacity:  bs.Capacity,
		})
	}
	report.Duration = time.Since(start)

	if se.metrics != nil {
		se.metrics.RecordTick(report)
	}
	log.Debug(ctx, "tick complete",
		logging.Int("tick", report.Tick),
		logging.Int("connected", report.Connectivity.Connected),
		logging.Int("assigned", len(report.Dispatch.Assignments)),
		logging.Int("available_drivers", report.Dispatch.Available),
		logging.Duration("duration", report.Duration),
	)

	for _, fn := range se.tickListeners {
		if err := fn(ctx, report); err != nil {
			span.RecordError(err)
			return report, err
		}
	}
	return report, nil
}

// Run executes up to ticks iterations back to back, or until ctx is
// cancelled when ticks <= 0. The context is checked before every tick.
// Pacing is the caller's concern; see timectrl.
func (se *SimulationEngine) Run(ctx context.Context, ticks int) error {
	for n := 0; ticks <= 0 || n < ticks; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := se.Tick(ctx, se.now()); err != nil {
			return err
		}
	}
	return nil
}
