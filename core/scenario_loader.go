package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

var (
	// ErrEmptyLocations indicates a scenario without any location.
	ErrEmptyLocations = errors.New("scenario has no locations")
	// ErrUnknownLocation indicates a reference to a location outside the set.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrUnknownDevice indicates a passenger referencing a missing device.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrDeviceOwned indicates a device claimed by more than one passenger.
	ErrDeviceOwned = errors.New("device already owned by another passenger")
)

// DefaultDriverNames are the drivers of the built-in scenario.
var DefaultDriverNames = []string{"Alice", "Bob", "Charlie", "David", "Eva"}

const defaultPassengers = 10

// Scenario is a small summary of what was seeded into the KB.
type Scenario struct {
	Locations    []model.Location
	BaseStations int
	Devices      int
	Passengers   int
	Drivers      int
}

// internal JSON shapes – keep them unexported so we're free to evolve them.
type scenarioJSON struct {
	Locations    []string          `json:"locations"`
	BaseStations []baseStationJSON `json:"base_stations"`
	Devices      []deviceJSON      `json:"devices"`
	Passengers   []passengerJSON   `json:"passengers"`
	Drivers      []driverJSON      `json:"drivers"`
}

type baseStationJSON struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Capacity *int   `json:"capacity"` // optional; defaults to model.DefaultCapacity
}

type deviceJSON struct {
	ID string `json:"id"`
}

type passengerJSON struct {
	ID          string `json:"id"`
	DeviceID    string `json:"device_id"`
	Destination string `json:"destination"` // optional; random when empty
}

type driverJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"` // optional; random when empty
}

// DefaultScenario seeds the built-in world: one station per default
// location, ten device-owning passengers and five drivers. Initial
// destinations and driver locations are drawn from r.
func DefaultScenario(store *kb.KnowledgeBase, r kb.Rand) *Scenario {
	locations := model.DefaultLocations
	mobility := NewMobilityModel(locations, r)
	for i, loc := range locations {
		store.AddBaseStation(model.NewBaseStation(fmt.Sprintf("BS-%03d", i+1), loc))
	}
	for i := range defaultPassengers {
		device := model.NewDevice(fmt.Sprintf("D-%d", 1000+i))
		store.AddDevice(device)
		dest := mobility.RandomLocation()
		store.AddPassenger(model.NewPassenger(fmt.Sprintf("P-%d", 300+i), device, dest))
	}
	for i, name := range DefaultDriverNames {
		loc := mobility.RandomLocation()
		store.AddDriver(model.NewDriver(fmt.Sprintf("DR-%d", 200+i), name, loc))
	}

	return &Scenario{
		Locations:    append([]model.Location(nil), locations...),
		BaseStations: len(locations),
		Devices:      defaultPassengers,
		Passengers:   defaultPassengers,
		Drivers:      len(DefaultDriverNames),
	}
}

// LoadScenario reads a JSON scenario from rd, validates it and seeds store.
// Nothing is added to store when validation fails.
func LoadScenario(store *kb.KnowledgeBase, rd io.Reader, r kb.Rand) (*Scenario, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadScenario: kb is nil")
	}

	var payload scenarioJSON
	dec := json.NewDecoder(rd)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	if len(payload.Locations) == 0 {
		return nil, fmt.Errorf("LoadScenario: %w", ErrEmptyLocations)
	}

	locations := make([]model.Location, 0, len(payload.Locations))
	for _, l := range payload.Locations {
		locations = append(locations, model.Location(l))
	}
	checkLocation := func(kind, id, loc string) error {
		if !model.ContainsLocation(locations, model.Location(loc)) {
			return fmt.Errorf("LoadScenario: %s %q: %w %q", kind, id, ErrUnknownLocation, loc)
		}
		return nil
	}

	mobility := NewMobilityModel(locations, r)

	stations := make([]*model.BaseStation, 0, len(payload.BaseStations))
	for _, b := range payload.BaseStations {
		if err := checkLocation("base station", b.ID, b.Location); err != nil {
			return nil, err
		}
		bs := model.NewBaseStation(b.ID, model.Location(b.Location))
		if b.Capacity != nil {
			bs.Capacity = *b.Capacity
		}
		stations = append(stations, bs)
	}

	devices := make(map[string]*model.Device, len(payload.Devices))
	deviceOrder := make([]*model.Device, 0, len(payload.Devices))
	for _, d := range payload.Devices {
		dev := model.NewDevice(d.ID)
		if _, seen := devices[d.ID]; !seen {
			devices[d.ID] = dev
		}
		deviceOrder = append(deviceOrder, dev)
	}

	owned := make(map[string]string)
	passengers := make([]*model.Passenger, 0, len(payload.Passengers))
	for _, p := range payload.Passengers {
		dev, ok := devices[p.DeviceID]
		if !ok {
			return nil, fmt.Errorf("LoadScenario: passenger %q: %w %q", p.ID, ErrUnknownDevice, p.DeviceID)
		}
		if owner, taken := owned[p.DeviceID]; taken {
			return nil, fmt.Errorf("LoadScenario: passenger %q: %w %q (owner %q)", p.ID, ErrDeviceOwned, p.DeviceID, owner)
		}
		owned[p.DeviceID] = p.ID

		dest := model.Location(p.Destination)
		if dest == "" {
			dest = mobility.RandomLocation()
		} else if err := checkLocation("passenger", p.ID, p.Destination); err != nil {
			return nil, err
		}
		passengers = append(passengers, model.NewPassenger(p.ID, dev, dest))
	}

	drivers := make([]*model.Driver, 0, len(payload.Drivers))
	for _, d := range payload.Drivers {
		loc := model.Location(d.Location)
		if loc == "" {
			loc = mobility.RandomLocation()
		} else if err := checkLocation("driver", d.ID, d.Location); err != nil {
			return nil, err
		}
		drivers = append(drivers, model.NewDriver(d.ID, d.Name, loc))
	}

	for _, bs := range stations {
		store.AddBaseStation(bs)
	}
	for _, dev := range deviceOrder {
		store.AddDevice(dev)
	}
	for _, p := range passengers {
		store.AddPassenger(p)
	}
	for _, d := range drivers {
		store.AddDriver(d)
	}

	return &Scenario{
		Locations:    locations,
		BaseStations: len(stations),
		Devices:      len(deviceOrder),
		Passengers:   len(passengers),
		Drivers:      len(drivers),
	}, nil
}
