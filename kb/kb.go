package kb

import (
	"slices"
	"sync"

	"github.com/signalsfoundry/ride-network-sim/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventDriverAssigned EventType = iota
	EventDriverReleased
)

func (t EventType) String() string {
	switch t {
	case EventDriverAssigned:
		return "driver_assigned"
	case EventDriverReleased:
		return "driver_released"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type        EventType
	DriverID    string
	PassengerID string
}

// Rand is the source of uniform choices. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Counts summarises collection sizes.
type Counts struct {
	BaseStations int
	Devices      int
	Passengers   int
	Drivers      int
}

// KnowledgeBase is the world state: four ordered collections of base
// stations, devices, passengers and drivers. Insertion order is preserved
// and lookups are linear scans.
//
// The simulation loop is the only writer. The lock lets the metrics and
// feed surfaces read collection membership concurrently; entity fields are
// mutated in place by the loop and must only be read from listeners that
// run on the loop's goroutine.
type KnowledgeBase struct {
	mu sync.RWMutex

	baseStations []*model.BaseStation
	devices      []*model.Device
	passengers   []*model.Passenger
	drivers      []*model.Driver

	subs   map[int]func(Event)
	nextID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{}
}

// AddBaseStation appends bs. Duplicate IDs are not rejected.
func (kb *KnowledgeBase) AddBaseStation(bs *model.BaseStation) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.baseStations = append(kb.baseStations, bs)
}

// AddDevice appends d. Duplicate IDs are not rejected.
func (kb *KnowledgeBase) AddDevice(d *model.Device) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.devices = append(kb.devices, d)
}

// AddPassenger appends p. Duplicate IDs are not rejected.
func (kb *KnowledgeBase) AddPassenger(p *model.Passenger) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.passengers = append(kb.passengers, p)
}

// AddDriver appends d. Duplicate IDs are not rejected.
func (kb *KnowledgeBase) AddDriver(d *model.Driver) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.drivers = append(kb.drivers, d)
}

// BaseStations returns a snapshot slice of all base stations in insertion order.
func (kb *KnowledgeBase) BaseStations() []*model.BaseStation {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]*model.BaseStation(nil), kb.baseStations...)
}

// Devices returns a snapshot slice of all devices in insertion order.
func (kb *KnowledgeBase) Devices() []*model.Device {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]*model.Device(nil), kb.devices...)
}

// Passengers returns a snapshot slice of all passengers in insertion order.
func (kb *KnowledgeBase) Passengers() []*model.Passenger {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]*model.Passenger(nil), kb.passengers...)
}

// Drivers returns a snapshot slice of all drivers in insertion order.
func (kb *KnowledgeBase) Drivers() []*model.Driver {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]*model.Driver(nil), kb.drivers...)
}

// BaseStationsAt returns the stations located at loc, in insertion order.
func (kb *KnowledgeBase) BaseStationsAt(loc model.Location) []*model.BaseStation {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var res []*model.BaseStation
	for _, bs := range kb.baseStations {
		if bs.Location == loc {
			res = append(res, bs)
		}
	}
	return res
}

// AvailableDrivers returns the drivers whose availability flag is set.
func (kb *KnowledgeBase) AvailableDrivers() []*model.Driver {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.availableLocked()
}

func (kb *KnowledgeBase) availableLocked() []*model.Driver {
	var res []*model.Driver
	for _, d := range kb.drivers {
		if d.Available {
			res = append(res, d)
		}
	}
	return res
}

// Counts returns the size of every collection.
func (kb *KnowledgeBase) Counts() Counts {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return Counts{
		BaseStations: len(kb.baseStations),
		Devices:      len(kb.devices),
		Passengers:   len(kb.passengers),
		Drivers:      len(kb.drivers),
	}
}

// Subscribe registers a callback for KB events. Callbacks run in
// subscription order. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.subs == nil {
		kb.subs = make(map[int]func(Event))
	}
	id := kb.nextID
	kb.nextID++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	kb.mu.RLock()
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, kb.subs[id])
	}
	kb.mu.RUnlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, ev := range events {
		for _, sub := range subs {
			sub(ev)
		}
	}
}
